// Package queue implements the print job queue and its worker pool. Jobs
// move through a fixed state machine; workers claim them FIFO, translate
// plotter jobs into wire payloads, and hand everything to the spooler
// gateway. Cancellation is cooperative and becomes visible within one
// progress tick.
package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/elissoncardoso1/All-Press/directory"
	"github.com/elissoncardoso1/All-Press/protocol"
	"github.com/elissoncardoso1/All-Press/spool"
)

// Error kinds recorded into a failed job's error message. The worker
// classifies lower-layer failures into exactly one of these at its
// boundary.
var (
	ErrFileMissing      = errors.New("source file missing")
	ErrValidationFailed = errors.New("validation failed")
	ErrGenerationFailed = errors.New("protocol generation failed")
	ErrSpoolerRejected  = errors.New("spooler rejected")
	ErrCancelled        = errors.New("cancelled by user")
	ErrQueueFull        = errors.New("queue full")
)

// DeviceInfo is the narrow view of the device directory the queue needs.
// Set after construction; the queue never owns the directory.
type DeviceInfo interface {
	Device(uri string) (directory.Device, bool)
	AdvancedInfo(uri string) (directory.AdvancedInfo, error)
	ValidateDocument(info directory.AdvancedInfo, opts spool.Options) error
}

// JobStore persists job snapshots. Optional: the queue is authoritative
// for in-flight state and runs fine without one.
type JobStore interface {
	SaveJob(job PrintJob) error
	UpdateJob(job PrintJob) error
}

// estimatedTimePerJob is the queue time heuristic per outstanding job.
const estimatedTimePerJob = 30 * time.Second

// Queue is the FIFO job queue plus worker pool. One mutex guards the
// FIFO, the id lookup map and callback registration; a condition variable
// wakes idle workers. Callbacks always fire outside the mutex on a copied
// job snapshot.
type Queue struct {
	gateway spool.Gateway
	logger  spool.Logger

	maxWorkers int
	maxDepth   int // 0 = unbounded
	tick       time.Duration

	mu       sync.Mutex
	cond     *sync.Cond
	jobs     map[int]*PrintJob
	fifo     []int
	nextID   int
	active   int
	stopping bool

	devices    DeviceInfo
	store      JobStore
	onStatus   func(PrintJob)
	onProgress func(id int, progress float64)

	ctx context.Context
	wg  sync.WaitGroup
}

// New creates a queue over the given spooler gateway. maxWorkers ≤ 0
// selects the default of 4.
func New(gateway spool.Gateway, maxWorkers int, logger spool.Logger) *Queue {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	q := &Queue{
		gateway:    gateway,
		logger:     logger,
		maxWorkers: maxWorkers,
		tick:       100 * time.Millisecond,
		jobs:       make(map[int]*PrintJob),
		nextID:     1,
		ctx:        context.Background(),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// SetDirectory wires the device directory back-pointer.
func (q *Queue) SetDirectory(devices DeviceInfo) {
	q.mu.Lock()
	q.devices = devices
	q.mu.Unlock()
}

// SetStore wires the optional persistence layer.
func (q *Queue) SetStore(store JobStore) {
	q.mu.Lock()
	q.store = store
	q.mu.Unlock()
}

// SetStatusCallback registers the single status callback slot.
// Re-registration replaces the previous registrant.
func (q *Queue) SetStatusCallback(fn func(PrintJob)) {
	q.mu.Lock()
	q.onStatus = fn
	q.mu.Unlock()
}

// SetProgressCallback registers the single progress callback slot.
func (q *Queue) SetProgressCallback(fn func(id int, progress float64)) {
	q.mu.Lock()
	q.onProgress = fn
	q.mu.Unlock()
}

// SetTickInterval overrides the synthetic progress tick delay. Intended
// for tests; production keeps the 100 ms default.
func (q *Queue) SetTickInterval(d time.Duration) {
	q.mu.Lock()
	q.tick = d
	q.mu.Unlock()
}

// SetMaxDepth caps queued-but-unclaimed jobs. Zero keeps the queue
// unbounded.
func (q *Queue) SetMaxDepth(n int) {
	q.mu.Lock()
	q.maxDepth = n
	q.mu.Unlock()
}

// Start launches the worker pool. ctx bounds all gateway calls issued by
// workers; cancel it before Stop for a faster shutdown.
func (q *Queue) Start(ctx context.Context) {
	if ctx != nil {
		q.ctx = ctx
	}
	for i := 0; i < q.maxWorkers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	if q.logger != nil {
		q.logger.Info("Job queue started", "workers", q.maxWorkers)
	}
}

// Stop drains the pool: workers finish their current job and exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopping = true
	q.mu.Unlock()
	q.cond.Broadcast()
	q.wg.Wait()
	if q.logger != nil {
		q.logger.Info("Job queue stopped")
	}
}

// Add enqueues a print request and returns its id. printerURI may be
// empty for spooler-only targets; plotter classification then never
// applies.
func (q *Queue) Add(printer, printerURI, filePath string, opts spool.Options) (int, error) {
	var size int64
	if fi, err := os.Stat(filePath); err == nil {
		size = fi.Size()
	}

	q.mu.Lock()
	if q.maxDepth > 0 && len(q.fifo) >= q.maxDepth {
		q.mu.Unlock()
		return 0, ErrQueueFull
	}
	id := q.nextID
	q.nextID++
	job := &PrintJob{
		ID:             id,
		Printer:        printer,
		PrinterURI:     printerURI,
		FilePath:       filePath,
		FileName:       filepath.Base(filePath),
		Options:        opts,
		Status:         StatusPending,
		CreatedAt:      time.Now(),
		FileSize:       size,
		EstimatedPages: estimatePages(size),
		queued:         true,
	}
	q.jobs[id] = job
	q.fifo = append(q.fifo, id)
	snap := *job
	q.mu.Unlock()

	q.cond.Signal()
	q.fireStatus(snap, true)
	if q.logger != nil {
		q.logger.Info("Job queued", "id", id, "printer", printer, "file", job.FileName)
	}
	return id, nil
}

// Cancel flips a job to Cancelled. Workers observe the flag on the next
// tick boundary; a job already handed to the spooler keeps its spooler id
// and must be cancelled there separately. Returns false for unknown ids
// and jobs already terminal.
func (q *Queue) Cancel(id int) bool {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok || job.Status.Terminal() {
		q.mu.Unlock()
		return false
	}
	job.Status = StatusCancelled
	snap := *job
	q.mu.Unlock()

	q.fireStatus(snap, false)
	return true
}

// Pause holds a Pending job back from workers. Returns false otherwise.
func (q *Queue) Pause(id int) bool {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok || job.Status != StatusPending {
		q.mu.Unlock()
		return false
	}
	job.Status = StatusPaused
	snap := *job
	q.mu.Unlock()

	q.fireStatus(snap, false)
	return true
}

// Resume returns a Paused job to Pending and re-enqueues it if a worker
// already dropped it from the FIFO.
func (q *Queue) Resume(id int) bool {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok || job.Status != StatusPaused {
		q.mu.Unlock()
		return false
	}
	job.Status = StatusPending
	if !job.queued {
		job.queued = true
		q.fifo = append(q.fifo, id)
	}
	snap := *job
	q.mu.Unlock()

	q.cond.Signal()
	q.fireStatus(snap, false)
	return true
}

// Retry re-enqueues a Failed or Cancelled job with cleared transient
// state. Returns false for non-terminal jobs.
func (q *Queue) Retry(id int) bool {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok || !job.Status.Retryable() {
		q.mu.Unlock()
		return false
	}
	job.Status = StatusPending
	job.ErrorMessage = ""
	job.Progress = 0
	job.SpoolerID = 0
	job.StartedAt = time.Time{}
	job.CompletedAt = time.Time{}
	if !job.queued {
		job.queued = true
		q.fifo = append(q.fifo, id)
	}
	snap := *job
	q.mu.Unlock()

	q.cond.Signal()
	q.fireStatus(snap, false)
	if q.logger != nil {
		q.logger.Info("Job retried", "id", id)
	}
	return true
}

// Move reassigns a Pending job to another printer. Returns false once a
// worker has claimed the job.
func (q *Queue) Move(id int, printer, printerURI string) bool {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok || job.Status != StatusPending {
		q.mu.Unlock()
		return false
	}
	job.Printer = printer
	job.PrinterURI = printerURI
	snap := *job
	q.mu.Unlock()

	q.fireStatus(snap, false)
	return true
}

// Get returns a snapshot of one job.
func (q *Queue) Get(id int) (PrintJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return PrintJob{}, false
	}
	return *job, true
}

// Jobs returns snapshots of every known job.
func (q *Queue) Jobs() []PrintJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]PrintJob, 0, len(q.jobs))
	for _, job := range q.jobs {
		out = append(out, *job)
	}
	return out
}

// JobsForPrinter returns snapshots of jobs targeting the named printer.
func (q *Queue) JobsForPrinter(printer string) []PrintJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []PrintJob
	for _, job := range q.jobs {
		if job.Printer == printer {
			out = append(out, *job)
		}
	}
	return out
}

// ActiveJobs returns jobs currently held by workers.
func (q *Queue) ActiveJobs() []PrintJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []PrintJob
	for _, job := range q.jobs {
		if job.Status == StatusProcessing || job.Status == StatusPrinting {
			out = append(out, *job)
		}
	}
	return out
}

// CompletedJobs returns jobs in a terminal state.
func (q *Queue) CompletedJobs() []PrintJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []PrintJob
	for _, job := range q.jobs {
		if job.Status.Terminal() {
			out = append(out, *job)
		}
	}
	return out
}

// QueueSize returns the number of queued-but-unclaimed jobs.
func (q *Queue) QueueSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fifo)
}

// ActiveJobCount returns the number of jobs held by workers.
func (q *Queue) ActiveJobCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// EstimatedQueueTime is a coarse wait estimate: 30 seconds per
// outstanding job.
func (q *Queue) EstimatedQueueTime() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return time.Duration(len(q.fifo)+q.active) * estimatedTimePerJob
}

// worker is the pool loop: block until work or shutdown, claim the head,
// execute, classify the outcome.
func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		for !q.stopping && len(q.fifo) == 0 {
			q.cond.Wait()
		}
		if q.stopping {
			q.mu.Unlock()
			return
		}

		id := q.fifo[0]
		q.fifo = q.fifo[1:]
		job := q.jobs[id]
		job.queued = false
		if job.Status == StatusCancelled || job.Status == StatusPaused {
			q.mu.Unlock()
			continue
		}

		q.active++
		job.Status = StatusProcessing
		job.StartedAt = time.Now()
		snap := *job
		q.mu.Unlock()

		q.fireStatus(snap, false)
		err := q.execute(snap)
		q.finish(id, err)

		q.mu.Lock()
		q.active--
		q.mu.Unlock()
	}
}

// finish records the outcome of one execution and fires the status
// callback.
func (q *Queue) finish(id int, err error) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	switch {
	case errors.Is(err, ErrCancelled):
		job.Status = StatusCancelled
	case err != nil:
		job.Status = StatusFailed
		job.ErrorMessage = err.Error()
	default:
		job.Status = StatusCompleted
		job.CompletedAt = time.Now()
		job.Progress = 1.0
	}
	snap := *job
	q.mu.Unlock()

	q.fireStatus(snap, false)
	if q.logger != nil {
		if err != nil {
			q.logger.Warn("Job finished with error", "id", id, "status", string(snap.Status), "error", snap.ErrorMessage)
		} else {
			q.logger.Info("Job completed", "id", id, "spool_id", snap.SpoolerID)
		}
	}
}

// execute dispatches one claimed job down the plain or plotter path.
// snap is the claim-time snapshot; mutable fields are re-read under the
// mutex where the loop needs current state.
func (q *Queue) execute(snap PrintJob) error {
	if q.isPlotterTarget(snap.PrinterURI) {
		return q.executePlotter(snap)
	}
	return q.executePlain(snap)
}

func (q *Queue) isPlotterTarget(uri string) bool {
	q.mu.Lock()
	devices := q.devices
	q.mu.Unlock()
	if devices == nil || uri == "" {
		return false
	}
	dev, ok := devices.Device(uri)
	return ok && dev.IsPlotter
}

// executePlain is the pass-through path: the spooler understands the file
// as-is.
func (q *Queue) executePlain(job PrintJob) error {
	if _, err := os.Stat(job.FilePath); err != nil {
		return fmt.Errorf("%w: %s", ErrFileMissing, job.FilePath)
	}

	if err := q.progressTicks(job.ID); err != nil {
		return err
	}
	if err := q.setPrinting(job.ID); err != nil {
		return err
	}

	spoolID, err := q.gateway.Submit(q.ctx, job.Printer, job.FilePath, job.Options)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSpoolerRejected, err)
	}
	q.setSpoolerID(job.ID, spoolID)
	return nil
}

// executePlotter translates the source into the device's wire protocol
// before submission: synthesize header + page + footer, vendor-optimize,
// write the sibling .converted payload, submit it, clean up.
func (q *Queue) executePlotter(job PrintJob) error {
	data, err := os.ReadFile(job.FilePath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrFileMissing, job.FilePath)
	}

	q.mu.Lock()
	devices := q.devices
	q.mu.Unlock()

	info, err := devices.AdvancedInfo(job.PrinterURI)
	if err != nil {
		// unknown model falls through to generic defaults
		if q.logger != nil {
			q.logger.Warn("No advanced info for target, using defaults",
				"id", job.ID, "uri", job.PrinterURI, "error", err.Error())
		}
		info = directory.AdvancedInfo{}
	}

	if err := devices.ValidateDocument(info, job.Options); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	gen, err := protocol.NewGenerator(directory.SelectProtocol(info), info.Device.Vendor)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	size := protocol.ParseMediaSize(job.Options.MediaSize)
	mode := protocol.ParseColorMode(job.Options.ColorMode)
	dpi := protocol.DPIForQuality(job.Options.Quality)

	header, err := gen.Header(gen.Capabilities(), size, mode, dpi)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	width, height, _ := protocol.PixelDimensions(size, dpi)
	page, err := gen.Page(data, width, height, dpi)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	payload := make([]byte, 0, len(header)+len(page)+16)
	payload = append(payload, header...)
	payload = append(payload, page...)
	payload = append(payload, gen.Footer()...)
	payload = gen.OptimizeForVendor(payload)

	convPath := job.FilePath + ".converted"
	if err := os.WriteFile(convPath, payload, 0o644); err != nil {
		return fmt.Errorf("%w: write payload: %v", ErrGenerationFailed, err)
	}
	defer os.Remove(convPath)

	if err := q.setPrinting(job.ID); err != nil {
		return err
	}

	spoolID, err := q.gateway.Submit(q.ctx, job.Printer, convPath, job.Options)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSpoolerRejected, err)
	}
	q.setSpoolerID(job.ID, spoolID)

	return q.progressTicks(job.ID)
}

// progressTicks emits the synthetic 0..100 percent cadence, re-reading
// the cancellation flag between ticks.
func (q *Queue) progressTicks(id int) error {
	for pct := 0; pct <= 100; pct += 20 {
		if q.cancelled(id) {
			return ErrCancelled
		}
		q.setProgress(id, float64(pct)/100)
		time.Sleep(q.tickInterval())
	}
	return nil
}

func (q *Queue) tickInterval() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tick
}

func (q *Queue) cancelled(id int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	return ok && job.Status == StatusCancelled
}

// setPrinting transitions the job to Printing unless it was cancelled in
// the meantime.
func (q *Queue) setPrinting(id int) error {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return ErrCancelled
	}
	if job.Status == StatusCancelled {
		q.mu.Unlock()
		return ErrCancelled
	}
	job.Status = StatusPrinting
	snap := *job
	q.mu.Unlock()

	q.fireStatus(snap, false)
	return nil
}

func (q *Queue) setSpoolerID(id, spoolID int) {
	q.mu.Lock()
	if job, ok := q.jobs[id]; ok {
		job.SpoolerID = spoolID
	}
	q.mu.Unlock()
}

func (q *Queue) setProgress(id int, progress float64) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok || job.Status == StatusCancelled {
		q.mu.Unlock()
		return
	}
	job.Progress = progress
	fn := q.onProgress
	q.mu.Unlock()

	if fn != nil {
		fn(id, progress)
	}
}

// fireStatus delivers a job snapshot to the status callback and the
// optional store. save selects insert over update.
func (q *Queue) fireStatus(snap PrintJob, save bool) {
	q.mu.Lock()
	fn := q.onStatus
	store := q.store
	q.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
	if store == nil {
		return
	}
	var err error
	if save {
		err = store.SaveJob(snap)
	} else {
		err = store.UpdateJob(snap)
	}
	if err != nil && q.logger != nil {
		q.logger.Warn("Job persistence failed", "id", snap.ID, "error", err.Error())
	}
}
