// internal/engine/progress.go

package engine

import "time"

// Status is the run state of the scheduler. Transitions: IDLE→RUNNING;
// RUNNING→{PAUSED, COMPLETED, FAILED}; PAUSED→RUNNING via Resume.
// COMPLETED and FAILED are terminal until Reset.
type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusRunning   Status = "RUNNING"
	StatusPaused    Status = "PAUSED"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Progress describes one validation run. It is mutated only by the
// orchestrator between batches; Progress() returns snapshots.
// ProcessedItems is a multiple of the batch size, or equals TotalItems,
// whenever Status leaves RUNNING.
type Progress struct {
	Status                 Status        `json:"status"`
	TotalItems             int           `json:"total_items"`
	ProcessedItems         int           `json:"processed_items"`
	ValidCount             int           `json:"valid_count"`
	InvalidCount           int           `json:"invalid_count"`
	MissingCount           int           `json:"missing_count"`
	CurrentBatch           int           `json:"current_batch"`
	TotalBatches           int           `json:"total_batches"`
	StartTime              time.Time     `json:"start_time,omitempty"`
	EstimatedTimeRemaining time.Duration `json:"estimated_time_remaining"`
	Error                  string        `json:"error,omitempty"`
}

// estimateRemaining linearly extrapolates the remaining duration from
// elapsed time and processed count.
func estimateRemaining(elapsed time.Duration, processed, total int) time.Duration {
	if processed <= 0 || processed >= total {
		return 0
	}
	perItem := float64(elapsed) / float64(processed)
	return time.Duration(perItem * float64(total-processed))
}
