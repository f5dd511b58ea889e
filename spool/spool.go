// Package spool defines the gateway to the underlying print spooler: the
// component that owns device-side queueing and transport. The core treats
// every gateway call as potentially blocking and potentially failing, and
// never assumes a particular spooler implementation behind the interface.
package spool

import (
	"context"
	"errors"
	"time"
)

// Printer state integers as reported by IPP-style spoolers.
const (
	StateIdle       = 3
	StateProcessing = 4
	StateStopped    = 5
)

// ErrRejected is returned when the spooler refuses a submission or
// returns no job id. The queue maps it to a terminal job failure.
var ErrRejected = errors.New("spooler rejected job")

// Options carries the user-selected print options for one job.
type Options struct {
	MediaSize   string `json:"media_size"`
	ColorMode   string `json:"color_mode"`
	Duplex      string `json:"duplex"`
	Copies      int    `json:"copies"`
	Quality     int    `json:"quality"` // 1-5, mapped to DPI by the protocol layer
	Orientation string `json:"orientation"`
	Collate     bool   `json:"collate"`
}

// DefaultOptions returns the submission defaults.
func DefaultOptions() Options {
	return Options{
		MediaSize:   "A4",
		ColorMode:   "color",
		Duplex:      "none",
		Copies:      1,
		Quality:     3,
		Orientation: "portrait",
		Collate:     true,
	}
}

// Printer is one enumerated spooler destination. State and StateReasons
// reflect the spooler's view only; network reachability is layered on by
// the device directory.
type Printer struct {
	Name         string    `json:"name"`
	URI          string    `json:"uri"`
	MakeModel    string    `json:"make_model"`
	Location     string    `json:"location"`
	Description  string    `json:"description"`
	State        int       `json:"state"`
	StateReasons []string  `json:"state_reasons,omitempty"`
	LastUpdated  time.Time `json:"last_updated"`
}

// Gateway is the abstract spooler sink. Submit returns the
// spooler-assigned job id (always > 0 on success).
type Gateway interface {
	Enumerate(ctx context.Context) ([]Printer, error)
	Submit(ctx context.Context, printer, filePath string, opts Options) (int, error)
	Cancel(ctx context.Context, spoolID int) error
	PrinterAttributes(ctx context.Context, uri string) (Printer, error)
}

// Logger is the minimal structured logger the spool package needs.
// Satisfied by the application logger.
type Logger interface {
	Error(msg string, context ...interface{})
	Warn(msg string, context ...interface{})
	Info(msg string, context ...interface{})
	Debug(msg string, context ...interface{})
}
