package queue

import (
	"time"

	"github.com/elissoncardoso1/All-Press/spool"
)

// JobStatus is the lifecycle state of a print job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusPrinting   JobStatus = "printing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
	StatusPaused     JobStatus = "paused"
)

// Retryable reports whether a job in this state may be re-enqueued.
func (s JobStatus) Retryable() bool {
	return s == StatusFailed || s == StatusCancelled
}

// Terminal reports whether the state ends the job's lifecycle (modulo a
// user-initiated retry).
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// PrintJob is one queued print request. Ids increase monotonically in
// submission order. SpoolerID stays 0 until the spooler accepts the job.
// Progress is in [0, 1].
type PrintJob struct {
	ID             int           `json:"id"`
	Printer        string        `json:"printer"`
	PrinterURI     string        `json:"printer_uri,omitempty"`
	FilePath       string        `json:"file_path"`
	FileName       string        `json:"file_name"`
	Options        spool.Options `json:"options"`
	Status         JobStatus     `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	StartedAt      time.Time     `json:"started_at,omitempty"`
	CompletedAt    time.Time     `json:"completed_at,omitempty"`
	SpoolerID      int           `json:"spooler_id"`
	ErrorMessage   string        `json:"error_message,omitempty"`
	Progress       float64       `json:"progress"`
	FileSize       int64         `json:"file_size"`
	EstimatedPages int           `json:"estimated_pages"`

	queued bool
}

// estimatePages guesses a page count from the source size. Rough by
// nature; only used for queue time reporting.
func estimatePages(fileSize int64) int {
	const bytesPerPage = 100 * 1024
	pages := int(fileSize / bytesPerPage)
	if pages < 1 {
		return 1
	}
	return pages
}
