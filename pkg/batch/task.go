package batch

import (
	"time"

	"github.com/sdejongh/apkdiff/pkg/models"
)

// TaskStatus represents the status of a pair task
type TaskStatus string

const (
	// TaskPending indicates the task is waiting to be processed
	TaskPending TaskStatus = "pending"
	// TaskProcessing indicates the task is currently being processed by a worker
	TaskProcessing TaskStatus = "processing"
	// TaskCompleted indicates the comparison ran to completion
	TaskCompleted TaskStatus = "completed"
	// TaskError indicates the comparison could not run
	TaskError TaskStatus = "error"
)

// PairTask is one pair travelling through the worker queue
type PairTask struct {
	Pair Pair
	// Index is the position of the pair in the report
	Index int

	Status     TaskStatus
	Difference *models.Difference
	Error      error
	Duration   time.Duration
	WorkerID   int
}

// NewPairTask creates a pending task
func NewPairTask(pair Pair, index int) *PairTask {
	return &PairTask{Pair: pair, Index: index, Status: TaskPending}
}

// MarkProcessing marks the task as being processed by a worker
func (t *PairTask) MarkProcessing(workerID int) {
	t.Status = TaskProcessing
	t.WorkerID = workerID
}

// MarkCompleted records the comparison result
func (t *PairTask) MarkCompleted(diff *models.Difference, duration time.Duration) {
	t.Status = TaskCompleted
	t.Difference = diff
	t.Duration = duration
}

// MarkError marks the task as failed with an error
func (t *PairTask) MarkError(err error, duration time.Duration) {
	t.Status = TaskError
	t.Error = err
	t.Duration = duration
}

// Result converts the task into its report entry
func (t *PairTask) Result() models.PairResult {
	r := models.PairResult{
		Name:       t.Pair.Name,
		LeftPath:   t.Pair.Left,
		RightPath:  t.Pair.Right,
		Difference: t.Difference,
		Duration:   t.Duration,
	}
	if t.Error != nil {
		r.Error = t.Error.Error()
	}
	return r
}
