// Package batch compares every package found under the same relative path
// in two directory trees.
package batch

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sdejongh/apkdiff/pkg/compare"
	"github.com/sdejongh/apkdiff/pkg/logging"
	"github.com/sdejongh/apkdiff/pkg/models"
	"github.com/sdejongh/apkdiff/pkg/output"
	"github.com/sdejongh/apkdiff/pkg/storage"
)

// Config holds configuration for the engine
type Config struct {
	// MaxWorkers is the number of pairs compared at once
	MaxWorkers int
	// Exclude holds glob patterns of relative paths to skip
	Exclude []string
	// Output receives the formatter's output
	Output io.Writer
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{MaxWorkers: 2}
}

// Engine orchestrates a batch comparison
type Engine struct {
	comparator compare.Comparator
	formatter  output.Formatter
	logger     logging.Logger
	config     Config

	processed  atomic.Int32
	progressMu sync.Mutex
}

// NewEngine creates a new batch engine. formatter may be nil.
func NewEngine(comparator compare.Comparator, formatter output.Formatter, logger logging.Logger, config Config) *Engine {
	if config.MaxWorkers < 1 {
		config.MaxWorkers = 1
	}
	return &Engine{
		comparator: comparator,
		formatter:  formatter,
		logger:     logging.OrNull(logger),
		config:     config,
	}
}

// Run compares the packages under left and right and returns the report.
// A cancelled run returns the partial report with StatusCancelled.
func (e *Engine) Run(ctx context.Context, left, right string) (*models.Report, error) {
	report := &models.Report{
		ID:        uuid.New().String(),
		LeftPath:  left,
		RightPath: right,
		StartTime: time.Now(),
	}

	e.logger.Info(ctx, "Starting batch comparison", logging.Fields{
		"id":          report.ID,
		"left":        left,
		"right":       right,
		"max_workers": e.config.MaxWorkers,
	})

	leftStore, err := storage.NewLocal(left)
	if err != nil {
		return nil, fmt.Errorf("failed to open left directory: %w", err)
	}
	defer leftStore.Close()
	rightStore, err := storage.NewLocal(right)
	if err != nil {
		return nil, fmt.Errorf("failed to open right directory: %w", err)
	}
	defer rightStore.Close()

	pairing, err := PairDirectories(ctx, leftStore, rightStore, e.config.Exclude)
	if err != nil {
		return nil, err
	}
	report.OnlyLeft = pairing.OnlyLeft
	report.OnlyRight = pairing.OnlyRight

	if e.formatter != nil {
		e.formatter.Start(e.config.Output, len(pairing.Pairs), e.config.MaxWorkers)
	}

	var hashedBefore int64
	hasher := e.hasher()
	if hasher != nil {
		hashedBefore = hasher.BytesHashed()
	}

	e.processed.Store(0)
	tasks := e.runWorkers(ctx, pairing.Pairs)

	for _, task := range tasks {
		if task.Status == TaskPending {
			continue
		}
		report.Results = append(report.Results, task.Result())
		switch {
		case task.Status == TaskError:
			report.Stats.PairsErrored++
		case task.Difference == nil:
			report.Stats.PairsIdentical++
		default:
			report.Stats.PairsDifferent++
		}
		report.Stats.PairsCompared++
	}
	if hasher != nil {
		report.Stats.BytesCompared = hasher.BytesHashed() - hashedBefore
	}

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	report.Status = report.ComputeStatus()
	if ctx.Err() != nil {
		report.Status = models.StatusCancelled
	}

	if e.formatter != nil {
		e.formatter.Complete(report)
	}

	e.logger.Info(ctx, "Batch comparison completed", logging.Fields{
		"duration":        report.Duration.String(),
		"status":          report.Status,
		"pairs_identical": report.Stats.PairsIdentical,
		"pairs_different": report.Stats.PairsDifferent,
		"pairs_errored":   report.Stats.PairsErrored,
		"only_left":       len(report.OnlyLeft),
		"only_right":      len(report.OnlyRight),
	})

	return report, nil
}

// hasher returns the comparator's hasher when it exposes one
func (e *Engine) hasher() *compare.Hasher {
	if h, ok := e.comparator.(interface{ Hasher() *compare.Hasher }); ok {
		return h.Hasher()
	}
	return nil
}

// runWorkers feeds the pairs to MaxWorkers workers through a queue. Tasks
// are returned in pair order; tasks left pending were never started.
func (e *Engine) runWorkers(ctx context.Context, pairs []Pair) []*PairTask {
	tasks := make([]*PairTask, len(pairs))
	for i, p := range pairs {
		tasks[i] = NewPairTask(p, i)
	}

	queue := make(chan *PairTask, e.config.MaxWorkers)
	var wg sync.WaitGroup
	for i := 0; i < e.config.MaxWorkers; i++ {
		wg.Add(1)
		go e.runWorker(ctx, i, queue, len(pairs), &wg)
	}

produce:
	for _, task := range tasks {
		select {
		case <-ctx.Done():
			break produce
		case queue <- task:
		}
	}
	close(queue)
	wg.Wait()

	return tasks
}

// runWorker is the worker goroutine that processes tasks
func (e *Engine) runWorker(ctx context.Context, workerID int, queue <-chan *PairTask, total int, wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range queue {
		if ctx.Err() != nil {
			continue
		}
		e.processTask(ctx, workerID, task, total)
	}
}

func (e *Engine) processTask(ctx context.Context, workerID int, task *PairTask, total int) {
	start := time.Now()
	task.MarkProcessing(workerID)
	e.progress(output.ProgressUpdate{Type: output.UpdatePairStart, Name: task.Pair.Name, TotalPairs: total})

	diff, err := e.comparator.Compare(ctx,
		compare.NewFile(task.Pair.Left, task.Pair.Name),
		compare.NewFile(task.Pair.Right, task.Pair.Name))

	current := int(e.processed.Add(1))
	if err != nil {
		task.MarkError(err, time.Since(start))
		e.logger.Error(ctx, "pair comparison failed", err, logging.Fields{"pair": task.Pair.Name, "worker": workerID})
		e.progress(output.ProgressUpdate{
			Type:        output.UpdatePairError,
			Name:        task.Pair.Name,
			CurrentPair: current,
			TotalPairs:  total,
			Error:       err,
		})
		return
	}

	task.MarkCompleted(diff, time.Since(start))
	e.logger.Debug(ctx, "pair compared", logging.Fields{
		"pair":      task.Pair.Name,
		"identical": diff == nil,
		"duration":  task.Duration.String(),
	})
	e.progress(output.ProgressUpdate{
		Type:        output.UpdatePairComplete,
		Name:        task.Pair.Name,
		Identical:   diff == nil,
		CurrentPair: current,
		TotalPairs:  total,
	})
}

// progress serializes formatter calls from the workers
func (e *Engine) progress(update output.ProgressUpdate) {
	if e.formatter == nil {
		return
	}
	e.progressMu.Lock()
	defer e.progressMu.Unlock()
	e.formatter.Progress(update)
}
