package compare

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// Partial hashing configuration
const (
	// Minimum file size to enable partial hashing (1MB)
	partialHashThreshold = 1 * 1024 * 1024
	// Size of partial hash to compute (256KB)
	partialHashSize = 256 * 1024
)

// Hasher decides byte identity of two files with streaming SHA-256
type Hasher struct {
	bufferPool        *sync.Pool
	enablePartialHash bool
	bytesHashed       atomic.Int64
}

// NewHasher creates a hasher using buffers of bufferSize bytes
func NewHasher(bufferSize int) *Hasher {
	if bufferSize < 4096 {
		bufferSize = 4096
	}
	return &Hasher{
		enablePartialHash: true,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}
}

// SetPartialHashEnabled enables or disables partial hashing optimization
func (h *Hasher) SetPartialHashEnabled(enabled bool) {
	h.enablePartialHash = enabled
}

// BytesHashed returns the total number of bytes read so far
func (h *Hasher) BytesHashed() int64 {
	return h.bytesHashed.Load()
}

// Identical reports whether the two files have the same content
func (h *Hasher) Identical(ctx context.Context, pathA, pathB string) (bool, error) {
	infoA, err := os.Stat(pathA)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", pathA, err)
	}
	infoB, err := os.Stat(pathB)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", pathB, err)
	}

	// If sizes differ, files are different
	if infoA.Size() != infoB.Size() {
		return false, nil
	}

	// Large files: compare the leading block first for quick rejection
	if h.enablePartialHash && infoA.Size() >= partialHashThreshold {
		partA, partB, errA, errB := h.parallel(ctx, pathA, pathB, partialHashSize)
		if errA == nil && errB == nil && partA != partB {
			return false, nil
		}
		// If either partial hash fails, fall back to full hash
	}

	sumA, sumB, errA, errB := h.parallel(ctx, pathA, pathB, -1)
	if errA != nil {
		return false, errA
	}
	if errB != nil {
		return false, errB
	}
	return sumA == sumB, nil
}

// Sum returns the hex SHA-256 of the file
func (h *Hasher) Sum(ctx context.Context, path string) (string, error) {
	return h.sum(ctx, path, -1)
}

func (h *Hasher) parallel(ctx context.Context, pathA, pathB string, limit int64) (sumA, sumB string, errA, errB error) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sumA, errA = h.sum(ctx, pathA, limit)
	}()
	go func() {
		defer wg.Done()
		sumB, errB = h.sum(ctx, pathB, limit)
	}()
	wg.Wait()
	return
}

// sum hashes at most limit bytes of the file (the whole file when limit < 0)
func (h *Hasher) sum(ctx context.Context, path string, limit int64) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file
	if limit >= 0 {
		reader = io.LimitReader(file, limit)
	}

	hasher := sha256.New()

	// Get buffer from pool
	bufPtr := h.bufferPool.Get().(*[]byte)
	buffer := *bufPtr
	defer h.bufferPool.Put(bufPtr)

	for {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := reader.Read(buffer)
		if n > 0 {
			hasher.Write(buffer[:n])
			h.bytesHashed.Add(int64(n))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
	}

	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}
