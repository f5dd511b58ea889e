package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elissoncardoso1/All-Press/directory"
	"github.com/elissoncardoso1/All-Press/logger"
	"github.com/elissoncardoso1/All-Press/queue"
	"github.com/elissoncardoso1/All-Press/spool"
	"github.com/elissoncardoso1/All-Press/storage"
	"github.com/elissoncardoso1/All-Press/ws"
)

// webServer exposes the REST and websocket surface over the queue and
// the device directory.
type webServer struct {
	queue     *queue.Queue
	directory *directory.Directory
	hub       *ws.Hub
	store     *storage.SQLiteStore
	logger    *logger.Logger
	cfg       *AllPressConfig
}

func newWebServer(q *queue.Queue, dir *directory.Directory, hub *ws.Hub, store *storage.SQLiteStore, appLogger *logger.Logger, cfg *AllPressConfig) *webServer {
	return &webServer{
		queue:     q,
		directory: dir,
		hub:       hub,
		store:     store,
		logger:    appLogger,
		cfg:       cfg,
	}
}

// handler builds the HTTP mux.
func (s *webServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/jobs", s.handleJobs)
	mux.HandleFunc("/api/jobs/", s.handleJobByID)
	mux.HandleFunc("/api/queue", s.handleQueueStats)
	mux.HandleFunc("/api/printers", s.handlePrinters)
	mux.HandleFunc("/api/printers/advanced", s.handlePrinterAdvanced)
	mux.HandleFunc("/api/discover", s.handleDiscover)
	mux.HandleFunc("/api/scan", s.handleScan)
	mux.HandleFunc("/api/mdns", s.handleMDNS)
	mux.HandleFunc("/api/logs", s.handleLogs)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// submitRequest is the POST /api/jobs body.
type submitRequest struct {
	Printer    string        `json:"printer"`
	PrinterURI string        `json:"printer_uri"`
	FilePath   string        `json:"file_path"`
	Options    spool.Options `json:"options"`
}

func (s *webServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var jobs []queue.PrintJob
		switch {
		case r.URL.Query().Get("printer") != "":
			jobs = s.queue.JobsForPrinter(r.URL.Query().Get("printer"))
		case r.URL.Query().Get("state") == "active":
			jobs = s.queue.ActiveJobs()
		case r.URL.Query().Get("state") == "completed":
			jobs = s.queue.CompletedJobs()
		default:
			jobs = s.queue.Jobs()
		}
		writeJSON(w, http.StatusOK, jobs)

	case http.MethodPost:
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Printer == "" || req.FilePath == "" {
			writeError(w, http.StatusBadRequest, "printer and file_path are required")
			return
		}
		req.Options = mergeDefaults(req.Options)
		id, err := s.queue.Add(req.Printer, req.PrinterURI, req.FilePath, req.Options)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, queue.ErrQueueFull) {
				status = http.StatusTooManyRequests
			}
			writeError(w, status, err.Error())
			return
		}
		s.logger.Info("Job submitted via API", "job_id", id, "printer", req.Printer)
		writeJSON(w, http.StatusCreated, map[string]int{"id": id})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// mergeDefaults fills unset option fields with the submission defaults.
func mergeDefaults(opts spool.Options) spool.Options {
	def := spool.DefaultOptions()
	if opts.MediaSize == "" {
		opts.MediaSize = def.MediaSize
	}
	if opts.ColorMode == "" {
		opts.ColorMode = def.ColorMode
	}
	if opts.Duplex == "" {
		opts.Duplex = def.Duplex
	}
	if opts.Copies <= 0 {
		opts.Copies = def.Copies
	}
	if opts.Quality <= 0 {
		opts.Quality = def.Quality
	}
	if opts.Orientation == "" {
		opts.Orientation = def.Orientation
	}
	return opts
}

// moveRequest is the body for the move job operation.
type moveRequest struct {
	Printer    string `json:"printer"`
	PrinterURI string `json:"printer_uri"`
}

// handleJobByID serves /api/jobs/{id} and /api/jobs/{id}/{op}.
func (s *webServer) handleJobByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	idStr, op, _ := strings.Cut(rest, "/")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	if op == "" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		job, ok := s.queue.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeJSON(w, http.StatusOK, job)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var ok bool
	switch op {
	case "cancel":
		ok = s.queue.Cancel(id)
	case "pause":
		ok = s.queue.Pause(id)
	case "resume":
		ok = s.queue.Resume(id)
	case "retry":
		ok = s.queue.Retry(id)
	case "move":
		var req moveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Printer == "" {
			writeError(w, http.StatusBadRequest, "printer is required")
			return
		}
		ok = s.queue.Move(id, req.Printer, req.PrinterURI)
	default:
		writeError(w, http.StatusNotFound, "unknown operation")
		return
	}

	if !ok {
		writeError(w, http.StatusConflict, fmt.Sprintf("cannot %s job %d in its current state", op, id))
		return
	}
	s.logger.Info("Job operation applied", "job_id", id, "op", op)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *webServer) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"queued":            s.queue.QueueSize(),
		"active":            s.queue.ActiveJobCount(),
		"estimated_seconds": int(s.queue.EstimatedQueueTime().Seconds()),
	})
}

func (s *webServer) handlePrinters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.directory.Devices())
}

func (s *webServer) handlePrinterAdvanced(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		writeError(w, http.StatusBadRequest, "uri is required")
		return
	}
	info, err := s.directory.AdvancedInfo(uri)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *webServer) handleDiscover(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	devices, err := s.directory.Discover(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *webServer) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	subnet := r.URL.Query().Get("subnet")
	if subnet == "" {
		subnet = s.cfg.Discovery.Subnet
	}
	timeout := time.Duration(s.cfg.Discovery.TimeoutMs) * time.Millisecond

	// Subnet sweeps take a while; bound them independently of the
	// request context so a dropped client does not abort the scan.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	devices, err := s.directory.ScanSubnet(ctx, subnet, timeout)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *webServer) handleMDNS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	devices, err := s.directory.BrowseMDNS(r.Context(), 5*time.Second)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *webServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	entries := s.logger.GetBuffer()
	if lvl := r.URL.Query().Get("level"); lvl != "" {
		entries = s.logger.GetBufferFiltered(logger.LevelFromString(strings.ToUpper(lvl)))
	}
	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]interface{}{
			"timestamp": e.Timestamp.Format(time.RFC3339),
			"level":     logger.LevelToString(e.Level),
			"message":   e.Message,
			"context":   e.Context,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *webServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"queued":     s.queue.QueueSize(),
		"active":     s.queue.ActiveJobCount(),
		"ws_clients": s.hub.ClientCount(),
	})
}

// handleWebSocket upgrades the connection and pumps hub frames until the
// client goes away.
func (s *webServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.UpgradeHTTP(w, r)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	clientID := fmt.Sprintf("ws_%s_%d", conn.RemoteAddr(), time.Now().UnixNano())
	ch := make(chan ws.Message, 10)
	s.hub.Register(clientID, ch)
	defer s.hub.Unregister(clientID)

	s.logger.Debug("WebSocket client connected", "client", clientID)

	// Reader goroutine only detects disconnects; clients send nothing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(&msg, 10*time.Second); err != nil {
				s.logger.Debug("WebSocket write failed", "client", clientID, "error", err)
				return
			}
		case <-pingTicker.C:
			if err := conn.WritePing(10 * time.Second); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
