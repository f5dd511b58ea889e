package ws

import (
	"encoding/json"
	"time"
)

// Message is the WebSocket frame shape pushed to UI clients.
type Message struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp,omitempty"`
}

// Marshal marshals the message to JSON bytes.
func (m *Message) Marshal() ([]byte, error) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	return json.Marshal(m)
}

// Message types pushed by the core.
const (
	MessageTypeJobStatus     = "job_status"
	MessageTypeJobProgress   = "job_progress"
	MessageTypePrinterStatus = "printer_status"
	MessageTypeLogEntry      = "log_entry"
	MessageTypeHeartbeat     = "heartbeat"
	MessageTypeError         = "error"
)

// JobStatusMessage builds a job state change frame.
func JobStatusMessage(id int, status string, errorMessage string) Message {
	data := map[string]interface{}{
		"job_id": id,
		"status": status,
	}
	if errorMessage != "" {
		data["error"] = errorMessage
	}
	return Message{Type: MessageTypeJobStatus, Data: data, Timestamp: time.Now()}
}

// JobProgressMessage builds a progress tick frame.
func JobProgressMessage(id int, progress float64) Message {
	return Message{
		Type: MessageTypeJobProgress,
		Data: map[string]interface{}{
			"job_id":   id,
			"progress": progress,
		},
		Timestamp: time.Now(),
	}
}

// PrinterStatusMessage builds a device reachability change frame.
func PrinterStatusMessage(uri, name string, online bool, state int) Message {
	return Message{
		Type: MessageTypePrinterStatus,
		Data: map[string]interface{}{
			"uri":       uri,
			"name":      name,
			"is_online": online,
			"state":     state,
		},
		Timestamp: time.Now(),
	}
}
