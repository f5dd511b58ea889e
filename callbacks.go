package main

import (
	"time"

	"github.com/elissoncardoso1/All-Press/directory"
	"github.com/elissoncardoso1/All-Press/logger"
	"github.com/elissoncardoso1/All-Press/queue"
	"github.com/elissoncardoso1/All-Press/storage"
	"github.com/elissoncardoso1/All-Press/ws"
)

// wireCallbacks connects the core event sources to the websocket hub and
// the printer store. Job persistence is handled inside the queue via its
// job store; here we only fan events out to UI clients.
func wireCallbacks(q *queue.Queue, dir *directory.Directory, hub *ws.Hub, store *storage.SQLiteStore, appLogger *logger.Logger) {
	q.SetStatusCallback(func(job queue.PrintJob) {
		hub.Broadcast(ws.JobStatusMessage(job.ID, string(job.Status), job.ErrorMessage))
	})

	q.SetProgressCallback(func(id int, progress float64) {
		hub.Broadcast(ws.JobProgressMessage(id, progress))
	})

	dir.SetStatusCallback(func(dev directory.Device) {
		hub.Broadcast(ws.PrinterStatusMessage(dev.URI, dev.Name, dev.IsOnline, dev.SpoolerState))
		if store != nil {
			if err := store.SavePrinter(dev); err != nil {
				appLogger.Warn("Failed to persist printer state", "uri", dev.URI, "error", err)
			}
		}
	})

	appLogger.SetOnLogCallback(func(entry logger.LogEntry) {
		hub.Broadcast(ws.Message{
			Type: ws.MessageTypeLogEntry,
			Data: map[string]interface{}{
				"timestamp": entry.Timestamp.Format(time.RFC3339),
				"level":     logger.LevelToString(entry.Level),
				"message":   entry.Message,
				"context":   entry.Context,
			},
			Timestamp: time.Now(),
		})
	})
}
