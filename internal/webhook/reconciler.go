package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"statuspage-sync/internal/directory"
	"statuspage-sync/internal/journal"
	"statuspage-sync/internal/keylock"
	"statuspage-sync/internal/reconcile"
	"statuspage-sync/internal/status"
)

var ErrComponentNotFound = errors.New("component not found")

type Resolver interface {
	Refresh(ctx context.Context) directory.Index
}

type StatusWriter interface {
	SetStatus(ctx context.Context, id int, s status.Status) error
}

// Reconciler applies one Alertmanager batch to Cachet. It keeps no state
// between calls and is safe for concurrent use.
type Reconciler struct {
	Directory Resolver
	Store     StatusWriter
	Locks     *keylock.Locker
	Observer  *reconcile.Observer
	// Aliases maps a plugin label to a component name, bypassing capitalization.
	Aliases map[string]string
	Logger  *slog.Logger
}

type Outcome struct {
	Applied int
	Failed  int
}

// Reconcile processes alerts in order. The first alert whose component cannot
// be found stops the batch: alerts before it have been written, alerts after
// it are not attempted, and the returned error wraps ErrComponentNotFound.
// Store failures are logged and counted but do not stop the batch.
func (r *Reconciler) Reconcile(ctx context.Context, payload Payload) (Outcome, error) {
	logger := r.logger()
	logger.Info("alertmanager batch received",
		slog.String("root_status", payload.Status),
		slog.String("receiver", payload.Receiver),
		slog.Int("alerts", len(payload.Alerts)))

	var out Outcome
	for i, alert := range payload.Alerts {
		plugin := alert.Plugin()
		name := r.componentName(plugin)
		logger.Info("processing alert",
			slog.Int("index", i),
			slog.String("plugin", plugin),
			slog.String("component", name),
			slog.String("alert_status", alert.Status))

		idx := r.Directory.Refresh(ctx)
		id, ok := idx.Lookup(name)
		if !ok {
			logger.Error("component not found",
				slog.Int("index", i),
				slog.String("plugin", plugin),
				slog.String("component", name),
				slog.Any("labels", alert.Labels))
			return out, fmt.Errorf("%w: %q (plugin %q)", ErrComponentNotFound, name, plugin)
		}

		target := status.FromAlertStatus(alert.Status)
		err := r.write(ctx, id, name, target)
		if err != nil {
			out.Failed++
			logger.Error("failed to update component status",
				slog.Int("component_id", id),
				slog.String("component", name),
				slog.String("status", target.String()),
				slog.String("error", err.Error()))
			continue
		}
		out.Applied++
		logger.Info("component status updated",
			slog.Int("component_id", id),
			slog.String("component", name),
			slog.String("status", target.String()))
	}
	return out, nil
}

func (r *Reconciler) write(ctx context.Context, id int, name string, target status.Status) error {
	if r.Locks != nil {
		unlock := r.Locks.Lock(id)
		defer unlock()
	}
	err := r.Store.SetStatus(ctx, id, target)
	r.Observer.Observe(ctx, reconcile.Write{
		Source:        journal.SourceWebhook,
		ComponentID:   id,
		ComponentName: name,
		Status:        target,
		Err:           err,
	})
	return err
}

func (r *Reconciler) componentName(plugin string) string {
	if alias, ok := r.Aliases[plugin]; ok && alias != "" {
		return alias
	}
	return ComponentName(plugin)
}

// ComponentName converts a plugin label to the status page naming convention:
// first letter upper case, the rest lower case ("drift" -> "Drift",
// "COST-management" -> "Cost-management").
func ComponentName(plugin string) string {
	if plugin == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(plugin)
	return string(unicode.ToUpper(first)) + strings.ToLower(plugin[size:])
}

func (r *Reconciler) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
