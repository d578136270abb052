package compare

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// FirstDifference returns the offset of the first byte at which the two
// files differ, or -1 when they are identical. When one file is a prefix of
// the other the offset is the length of the shorter one.
func FirstDifference(ctx context.Context, pathA, pathB string, bufferSize int) (int64, error) {
	if bufferSize < 4096 {
		bufferSize = 4096
	}

	fileA, err := os.Open(pathA)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", pathA, err)
	}
	defer fileA.Close()

	fileB, err := os.Open(pathB)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", pathB, err)
	}
	defer fileB.Close()

	bufA := make([]byte, bufferSize)
	bufB := make([]byte, bufferSize)
	var offset int64

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		nA, errA := io.ReadFull(fileA, bufA)
		nB, errB := io.ReadFull(fileB, bufB)
		if errA != nil && !isEOF(errA) {
			return 0, fmt.Errorf("failed to read %s: %w", pathA, errA)
		}
		if errB != nil && !isEOF(errB) {
			return 0, fmt.Errorf("failed to read %s: %w", pathB, errB)
		}

		n := nA
		if nB < n {
			n = nB
		}
		if !bytes.Equal(bufA[:n], bufB[:n]) {
			// Find exact byte offset where they differ
			for i := 0; i < n; i++ {
				if bufA[i] != bufB[i] {
					return offset + int64(i), nil
				}
			}
		}
		if nA != nB {
			return offset + int64(n), nil
		}
		offset += int64(n)

		if isEOF(errA) || isEOF(errB) {
			return -1, nil
		}
	}
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// HexDump renders data in the classic offset/hex/ASCII layout used for
// diffing binary content.
func HexDump(data []byte) string {
	return hex.Dump(data)
}
