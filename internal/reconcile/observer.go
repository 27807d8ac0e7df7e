// Package reconcile holds what the webhook and poll paths share after a
// status write: metrics, the journal and the event bus.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"statuspage-sync/internal/bus"
	"statuspage-sync/internal/journal"
	"statuspage-sync/internal/metrics"
	"statuspage-sync/internal/status"
)

type Publisher interface {
	Publish(subject string, payload any) error
}

// Write describes one status write attempt against the store.
type Write struct {
	Source        string
	ComponentID   int
	ComponentName string
	Status        status.Status
	// Staged marks the Unknown pre-write of the poll path; it is journaled
	// but not announced on the bus.
	Staged bool
	Err    error
}

type Observer struct {
	Journal journal.Recorder
	Bus     Publisher
	Logger  *slog.Logger
}

func (o *Observer) Observe(ctx context.Context, w Write) {
	metrics.ObserveStatusWrite(w.Source, w.Status.String(), w.Err)
	if o == nil {
		return
	}
	logger := o.logger()
	if o.Journal != nil {
		entry := journal.NewEntry(w.Source, w.ComponentID, w.ComponentName, w.Status, w.Err)
		if err := o.Journal.Record(ctx, entry); err != nil {
			logger.Warn("failed to journal status write",
				slog.Int("component_id", w.ComponentID),
				slog.String("component", w.ComponentName),
				slog.String("error", err.Error()))
		}
	}
	if o.Bus == nil || w.Staged || w.Err != nil {
		return
	}
	evt := bus.ComponentUpdated{
		ComponentID:   w.ComponentID,
		ComponentName: w.ComponentName,
		Status:        int(w.Status),
		StatusName:    w.Status.String(),
		Source:        w.Source,
		At:            time.Now().UTC(),
	}
	if err := o.Bus.Publish(bus.SubjectComponentUpdated, evt); err != nil {
		logger.Warn("failed to publish status event",
			slog.Int("component_id", w.ComponentID),
			slog.String("error", err.Error()))
	}
}

func (o *Observer) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}
