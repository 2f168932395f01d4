package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotConfigured indicates the dataset path was not set.
var ErrNotConfigured = errors.New("storage: dataset path not configured")

// Dataset is a handle to one SQLite file. Connections are opened per query
// and closed when the query completes; the ingestion side owns the file and
// writes to it concurrently.
type Dataset struct {
	path        string
	busyTimeout time.Duration
}

// NewDataset builds a handle for a SQLite file path.
func NewDataset(path string, busyTimeout time.Duration) *Dataset {
	if busyTimeout <= 0 {
		busyTimeout = 30 * time.Second
	}
	return &Dataset{path: path, busyTimeout: busyTimeout}
}

// Path returns the underlying file path.
func (d *Dataset) Path() string {
	if d == nil {
		return ""
	}
	return d.path
}

func (d *Dataset) open(ctx context.Context) (*sql.DB, error) {
	if d == nil || d.path == "" {
		return nil, ErrNotConfigured
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", d.path, d.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", d.path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", d.path, err)
	}
	return db, nil
}
