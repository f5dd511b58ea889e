package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/elissoncardoso1/All-Press/directory"
	"github.com/elissoncardoso1/All-Press/logger"
	"github.com/elissoncardoso1/All-Press/queue"
	"github.com/elissoncardoso1/All-Press/spool"
	"github.com/elissoncardoso1/All-Press/ws"
)

// stubGateway answers enumerate with a fixed printer list and accepts
// every submission.
type stubGateway struct {
	printers []spool.Printer
	nextID   int
}

func (g *stubGateway) Enumerate(ctx context.Context) ([]spool.Printer, error) {
	return g.printers, nil
}

func (g *stubGateway) Submit(ctx context.Context, printer, filePath string, opts spool.Options) (int, error) {
	g.nextID++
	return g.nextID, nil
}

func (g *stubGateway) Cancel(ctx context.Context, spoolID int) error { return nil }

func (g *stubGateway) PrinterAttributes(ctx context.Context, uri string) (spool.Printer, error) {
	return spool.Printer{URI: uri}, nil
}

func newTestServer(t *testing.T) (*webServer, *queue.Queue, *directory.Directory) {
	t.Helper()
	gw := &stubGateway{
		printers: []spool.Printer{
			{Name: "office", URI: "usb://HP/LaserJet", MakeModel: "HP LaserJet 4000", State: spool.StateIdle},
		},
	}
	appLogger := logger.New(logger.ERROR, "", 100)
	dir := directory.New(gw, time.Second, appLogger)
	q := queue.New(gw, 1, appLogger)
	q.SetDirectory(dir)
	hub := ws.NewHub()
	t.Cleanup(hub.Stop)
	return newWebServer(q, dir, hub, nil, appLogger, DefaultConfig()), q, dir
}

func tempDocument(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 test"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSubmitAndGetJob(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.handler()

	body, _ := json.Marshal(submitRequest{
		Printer:  "office",
		FilePath: tempDocument(t),
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d body = %s", rec.Code, rec.Body.String())
	}
	var created map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	id := created["id"]
	if id == 0 {
		t.Fatal("no job id returned")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/jobs/%d", id), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var job queue.PrintJob
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatal(err)
	}
	if job.Status != queue.StatusPending {
		t.Errorf("status = %s, want pending", job.Status)
	}
	if job.Options.Copies != 1 || job.Options.MediaSize != "A4" {
		t.Errorf("defaults not applied: %+v", job.Options)
	}
}

func TestSubmitRejectsBadRequests(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewReader([]byte("{not json"))))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d", rec.Code)
	}

	body, _ := json.Marshal(submitRequest{FilePath: "/tmp/x.pdf"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing printer status = %d", rec.Code)
	}
}

func TestJobOperations(t *testing.T) {
	srv, q, _ := newTestServer(t)
	h := srv.handler()

	id, err := q.Add("office", "", tempDocument(t), spool.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/jobs/%d/pause", id), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("pause status = %d", rec.Code)
	}
	if job, _ := q.Get(id); job.Status != queue.StatusPaused {
		t.Errorf("status = %s, want paused", job.Status)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/jobs/%d/resume", id), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("resume status = %d", rec.Code)
	}

	// Retry on a pending job is a state conflict
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/jobs/%d/retry", id), nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("retry on pending status = %d, want conflict", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/jobs/%d/frobnicate", id), nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown op status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/notanumber", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", rec.Code)
	}
}

func TestMoveJob(t *testing.T) {
	srv, q, _ := newTestServer(t)
	h := srv.handler()

	id, err := q.Add("office", "", tempDocument(t), spool.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	body, _ := json.Marshal(moveRequest{Printer: "basement", PrinterURI: "socket://10.0.0.9:9100"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/jobs/%d/move", id), bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("move status = %d", rec.Code)
	}
	if job, _ := q.Get(id); job.Printer != "basement" {
		t.Errorf("printer = %s after move", job.Printer)
	}
}

func TestQueueStatsAndHealth(t *testing.T) {
	srv, q, _ := newTestServer(t)
	h := srv.handler()

	if _, err := q.Add("office", "", tempDocument(t), spool.DefaultOptions()); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/queue", nil))
	var stats map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats["queued"].(float64) != 1 {
		t.Errorf("queued = %v", stats["queued"])
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}

func TestPrintersEndpoint(t *testing.T) {
	srv, _, dir := newTestServer(t)
	h := srv.handler()

	if _, err := dir.Discover(context.Background()); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/printers", nil))
	var devices []directory.Device
	if err := json.Unmarshal(rec.Body.Bytes(), &devices); err != nil {
		t.Fatal(err)
	}
	if len(devices) != 1 || devices[0].Name != "office" {
		t.Errorf("devices = %+v", devices)
	}
}

func TestAdvancedEndpointRequiresKnownDevice(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/printers/advanced?uri=ipp://nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown device status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/printers/advanced", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing uri status = %d", rec.Code)
	}
}

func TestWebSocketDeliversFrames(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	wsURL := "ws" + ts.URL[len("http"):] + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer resp.Body.Close()
	defer conn.Close()

	// Give the server loop a moment to register the client.
	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	srv.hub.Broadcast(ws.JobStatusMessage(3, "printing", ""))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg ws.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != ws.MessageTypeJobStatus {
		t.Errorf("type = %s", msg.Type)
	}
}
