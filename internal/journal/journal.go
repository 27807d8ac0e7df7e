// Package journal keeps an append-only history of component status writes.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"statuspage-sync/internal/status"
)

const (
	SourceWebhook = "webhook"
	SourcePoll    = "poll"
	SourceCLI     = "cli"

	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

var ErrUnsupportedDriver = errors.New("unsupported journal driver")

type Entry struct {
	ID            string        `json:"id"`
	ComponentID   int           `json:"component_id"`
	ComponentName string        `json:"component_name"`
	Source        string        `json:"source"`
	Status        status.Status `json:"status"`
	OK            bool          `json:"ok"`
	Error         string        `json:"error,omitempty"`
	At            time.Time     `json:"at"`
}

// NewEntry stamps an entry for one write attempt.
func NewEntry(source string, componentID int, componentName string, s status.Status, writeErr error) Entry {
	e := Entry{
		ID:            uuid.NewString(),
		ComponentID:   componentID,
		ComponentName: componentName,
		Source:        source,
		Status:        s,
		OK:            writeErr == nil,
		At:            time.Now().UTC(),
	}
	if writeErr != nil {
		e.Error = writeErr.Error()
	}
	return e
}

type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, componentName string, limit int) ([]Entry, error)
	Close()
}

// Open builds a recorder for driver and creates its table when missing.
func Open(ctx context.Context, driver, dsn string) (Recorder, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "none":
		return Nop{}, nil
	case "memory":
		return NewMemory(0), nil
	case "postgres", "postgresql":
		return openPostgres(ctx, dsn)
	case "mysql":
		return openSQL(ctx, mysqlDialect, dsn)
	case "mssql", "sqlserver":
		return openSQL(ctx, sqlserverDialect, dsn)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedDriver, driver)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultRecentLimit
	}
	if limit > maxRecentLimit {
		return maxRecentLimit
	}
	return limit
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

func (Nop) Recent(context.Context, string, int) ([]Entry, error) { return []Entry{}, nil }

func (Nop) Close() {}
