// Package storage persists job and printer metadata to SQLite. The queue
// stays authoritative for in-flight state; the store is the long-term
// record and survives restarts.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/elissoncardoso1/All-Press/directory"
	"github.com/elissoncardoso1/All-Press/protocol"
	"github.com/elissoncardoso1/All-Press/queue"
)

// Logger interface for storage operations
type Logger interface {
	Error(msg string, context ...interface{})
	Warn(msg string, context ...interface{})
	Info(msg string, context ...interface{})
	Debug(msg string, context ...interface{})
}

var storageLogger Logger

// SetLogger sets the logger for the storage package
func SetLogger(logger Logger) {
	storageLogger = logger
}

// SQLiteStore holds job history and the last-seen printer directory.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (or creates) the store. An empty dbPath selects an
// in-memory database, which tests rely on.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writes internally with busy_timeout; WAL lets
	// reads proceed concurrently.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	store := &SQLiteStore{db: db, dbPath: dbPath}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS print_jobs (
		id INTEGER PRIMARY KEY,
		printer TEXT NOT NULL,
		printer_uri TEXT,
		file_path TEXT NOT NULL,
		file_name TEXT NOT NULL,
		options TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		started_at TEXT,
		completed_at TEXT,
		spooler_id INTEGER DEFAULT 0,
		error_message TEXT,
		progress REAL DEFAULT 0,
		file_size INTEGER DEFAULT 0,
		estimated_pages INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON print_jobs(status);
	CREATE INDEX IF NOT EXISTS idx_jobs_printer ON print_jobs(printer);

	CREATE TABLE IF NOT EXISTS printers (
		uri TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		make_model TEXT,
		location TEXT,
		description TEXT,
		vendor TEXT,
		is_plotter INTEGER DEFAULT 0,
		is_online INTEGER DEFAULT 0,
		spooler_state INTEGER DEFAULT 0,
		last_probe TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SaveJob inserts a new job record.
func (s *SQLiteStore) SaveJob(job queue.PrintJob) error {
	opts, err := json.Marshal(job.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO print_jobs
		(id, printer, printer_uri, file_path, file_name, options, status,
		 created_at, started_at, completed_at, spooler_id, error_message,
		 progress, file_size, estimated_pages)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Printer, job.PrinterURI, job.FilePath, job.FileName,
		string(opts), string(job.Status), encodeTime(job.CreatedAt),
		encodeTime(job.StartedAt), encodeTime(job.CompletedAt),
		job.SpoolerID, job.ErrorMessage, job.Progress, job.FileSize,
		job.EstimatedPages)
	if err != nil {
		return fmt.Errorf("save job %d: %w", job.ID, err)
	}
	return nil
}

// UpdateJob rewrites the mutable fields of an existing record. Every
// placeholder in the statement is bound.
func (s *SQLiteStore) UpdateJob(job queue.PrintJob) error {
	res, err := s.db.Exec(`
		UPDATE print_jobs SET
			printer = ?, printer_uri = ?, status = ?, started_at = ?,
			completed_at = ?, spooler_id = ?, error_message = ?, progress = ?
		WHERE id = ?`,
		job.Printer, job.PrinterURI, string(job.Status),
		encodeTime(job.StartedAt), encodeTime(job.CompletedAt),
		job.SpoolerID, job.ErrorMessage, job.Progress, job.ID)
	if err != nil {
		return fmt.Errorf("update job %d: %w", job.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// a status change can race the initial insert after a restart
		return s.SaveJob(job)
	}
	return nil
}

// GetJob loads one job by id.
func (s *SQLiteStore) GetJob(id int) (queue.PrintJob, error) {
	row := s.db.QueryRow(`
		SELECT id, printer, printer_uri, file_path, file_name, options,
		       status, created_at, started_at, completed_at, spooler_id,
		       error_message, progress, file_size, estimated_pages
		FROM print_jobs WHERE id = ?`, id)
	return scanJob(row)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (queue.PrintJob, error) {
	var (
		job        queue.PrintJob
		opts       sql.NullString
		status     string
		created    sql.NullString
		started    sql.NullString
		completed  sql.NullString
		errMessage sql.NullString
		uri        sql.NullString
	)
	err := row.Scan(&job.ID, &job.Printer, &uri, &job.FilePath,
		&job.FileName, &opts, &status, &created, &started, &completed,
		&job.SpoolerID, &errMessage, &job.Progress, &job.FileSize,
		&job.EstimatedPages)
	if err != nil {
		return queue.PrintJob{}, err
	}
	job.PrinterURI = uri.String
	job.Status = queue.JobStatus(status)
	job.ErrorMessage = errMessage.String
	job.CreatedAt = decodeTime(created)
	job.StartedAt = decodeTime(started)
	job.CompletedAt = decodeTime(completed)
	if opts.Valid && opts.String != "" {
		if err := json.Unmarshal([]byte(opts.String), &job.Options); err != nil && storageLogger != nil {
			storageLogger.Warn("Corrupt options blob", "id", job.ID, "error", err.Error())
		}
	}
	return job, nil
}

// ListJobs returns the most recent jobs, newest first. limit ≤ 0 returns
// everything.
func (s *SQLiteStore) ListJobs(limit int) ([]queue.PrintJob, error) {
	q := `
		SELECT id, printer, printer_uri, file_path, file_name, options,
		       status, created_at, started_at, completed_at, spooler_id,
		       error_message, progress, file_size, estimated_pages
		FROM print_jobs ORDER BY id DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(q+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Query(q)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []queue.PrintJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// SavePrinter upserts one directory record.
func (s *SQLiteStore) SavePrinter(dev directory.Device) error {
	_, err := s.db.Exec(`
		INSERT INTO printers
		(uri, name, make_model, location, description, vendor, is_plotter,
		 is_online, spooler_state, last_probe)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uri) DO UPDATE SET
			name = excluded.name,
			make_model = excluded.make_model,
			location = excluded.location,
			description = excluded.description,
			vendor = excluded.vendor,
			is_plotter = excluded.is_plotter,
			is_online = excluded.is_online,
			spooler_state = excluded.spooler_state,
			last_probe = excluded.last_probe`,
		dev.URI, dev.Name, dev.MakeModel, dev.Location, dev.Description,
		string(dev.Vendor), boolInt(dev.IsPlotter), boolInt(dev.IsOnline),
		dev.SpoolerState, encodeTime(dev.LastProbe))
	if err != nil {
		return fmt.Errorf("save printer %s: %w", dev.URI, err)
	}
	return nil
}

// ListPrinters returns every stored directory record.
func (s *SQLiteStore) ListPrinters() ([]directory.Device, error) {
	rows, err := s.db.Query(`
		SELECT uri, name, make_model, location, description, vendor,
		       is_plotter, is_online, spooler_state, last_probe
		FROM printers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list printers: %w", err)
	}
	defer rows.Close()

	var devs []directory.Device
	for rows.Next() {
		var (
			dev       directory.Device
			vendor    string
			isPlotter int
			isOnline  int
			lastProbe sql.NullString
			makeModel sql.NullString
			location  sql.NullString
			descr     sql.NullString
		)
		if err := rows.Scan(&dev.URI, &dev.Name, &makeModel, &location,
			&descr, &vendor, &isPlotter, &isOnline, &dev.SpoolerState,
			&lastProbe); err != nil {
			return nil, err
		}
		dev.MakeModel = makeModel.String
		dev.Location = location.String
		dev.Description = descr.String
		if vendor != "" {
			dev.Vendor = protocol.Vendor(vendor)
		} else {
			dev.Vendor = directory.DetectVendor(dev.MakeModel)
		}
		dev.IsPlotter = isPlotter != 0
		dev.IsOnline = isOnline != 0
		dev.LastProbe = decodeTime(lastProbe)
		devs = append(devs, dev)
	}
	return devs, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
