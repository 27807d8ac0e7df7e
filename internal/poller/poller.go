package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"statuspage-sync/internal/cachet"
	"statuspage-sync/internal/journal"
	"statuspage-sync/internal/keylock"
	"statuspage-sync/internal/metrics"
	"statuspage-sync/internal/probe"
	"statuspage-sync/internal/reconcile"
	"statuspage-sync/internal/status"
)

const DefaultInterval = 300 * time.Second

type Store interface {
	ListGroups(ctx context.Context) ([]cachet.Group, error)
	GetComponent(ctx context.Context, id int) (cachet.Component, error)
	SetStatus(ctx context.Context, id int, s status.Status) error
}

type Prober interface {
	Probe(ctx context.Context, component string) probe.Result
}

type Options struct {
	Interval time.Duration
	Locks    *keylock.Locker
	Observer *reconcile.Observer
	Logger   *slog.Logger
}

// Poller probes every grouped component on a fixed interval and writes the
// resulting status back to Cachet.
type Poller struct {
	store    Store
	prober   Prober
	interval time.Duration
	locks    *keylock.Locker
	observer *reconcile.Observer
	logger   *slog.Logger
	cycleMu  sync.Mutex
}

func New(store Store, prober Prober, opts Options) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	locks := opts.Locks
	if locks == nil {
		locks = keylock.New()
	}
	return &Poller{
		store:    store,
		prober:   prober,
		interval: interval,
		locks:    locks,
		observer: opts.Observer,
		logger:   logger,
	}
}

// Run performs a cycle immediately and then one per interval until ctx is
// done. Cycles never overlap: ticks that fire while a cycle is running are
// dropped by the ticker.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started", slog.Duration("interval", p.interval))
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		p.RunCycle(ctx)
		p.logger.Info("poller sleeping", slog.Duration("interval", p.interval))
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type ComponentResult struct {
	ComponentID   int
	ComponentName string
	Group         string
	ProbeCode     int
	ProbeErr      error
	Target        status.Status
	Err           error
}

type Report struct {
	CycleID    string
	Groups     int
	Components []ComponentResult
	// Err is set when the cycle could not list groups or was cancelled.
	Err error
}

func (r Report) Failed() int {
	n := 0
	for _, c := range r.Components {
		if c.Err != nil {
			n++
		}
	}
	return n
}

// RunCycle lists the groups and reconciles each enabled component. A
// component that appears in several groups is probed and written once per
// group; deduplicating would change how many writes Cachet sees.
func (p *Poller) RunCycle(ctx context.Context) Report {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	started := time.Now()
	report := Report{CycleID: uuid.NewString()}
	logger := p.logger.With(slog.String("cycle_id", report.CycleID))
	logger.Info("starting services status check")

	groups, err := p.store.ListGroups(ctx)
	if err != nil {
		logger.Error("failed to list component groups", slog.String("error", err.Error()))
		report.Err = err
		metrics.ObservePollCycle("skipped", started)
		return report
	}
	report.Groups = len(groups)
	logger.Info("component groups found", slog.Int("groups", len(groups)))

	for _, group := range groups {
		logger.Info("checking group",
			slog.String("group", group.Name),
			slog.Int("components", len(group.EnabledComponents)))
		for _, component := range group.EnabledComponents {
			if err := ctx.Err(); err != nil {
				logger.Warn("poll cycle abandoned", slog.String("error", err.Error()))
				report.Err = err
				metrics.ObservePollCycle("aborted", started)
				return report
			}
			result := p.reconcileComponent(ctx, logger, component)
			result.Group = group.Name
			report.Components = append(report.Components, result)
		}
	}

	outcome := "ok"
	if report.Failed() > 0 {
		outcome = "partial"
	}
	metrics.ObservePollCycle(outcome, started)
	logger.Info("done updating all services",
		slog.Int("components", len(report.Components)),
		slog.Int("failed", report.Failed()),
		slog.Duration("took", time.Since(started)))
	return report
}

func (p *Poller) reconcileComponent(ctx context.Context, logger *slog.Logger, component cachet.Component) ComponentResult {
	res := p.prober.Probe(ctx, component.Name)
	target := status.FromProbeResult(res.Code, res.Err)
	result := ComponentResult{
		ComponentID:   component.ID,
		ComponentName: component.Name,
		ProbeCode:     res.Code,
		ProbeErr:      res.Err,
		Target:        target,
	}
	attrs := []any{
		slog.Int("component_id", component.ID),
		slog.String("component", component.Name),
		slog.String("status", target.String()),
	}
	if res.Err != nil {
		logger.Warn("service probe failed", append(attrs, slog.String("error", res.Err.Error()))...)
	}

	result.Err = p.Refresh(ctx, component, target)
	if result.Err != nil {
		logger.Error("failed to update service status", append(attrs, slog.String("error", result.Err.Error()))...)
		return result
	}
	logger.Info("updated service status", append(attrs, slog.Int("probe_code", res.Code))...)
	return result
}

// Refresh writes target in four steps: Unknown, read back, target, read back.
// Cachet leaves its updated timestamp alone when a write does not change the
// status, so the Unknown step is what makes the timestamp move. Every step is
// attempted even if an earlier one failed; the joined error reports all of
// them. Cancellation skips the remaining steps.
func (p *Poller) Refresh(ctx context.Context, component cachet.Component, target status.Status) error {
	unlock := p.locks.Lock(component.ID)
	defer unlock()

	var errs []error
	steps := []func() error{
		func() error { return p.write(ctx, component, status.Unknown, true) },
		func() error { return p.readBack(ctx, component.ID) },
		func() error { return p.write(ctx, component, target, false) },
		func() error { return p.readBack(ctx, component.ID) },
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := step(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Poller) write(ctx context.Context, component cachet.Component, s status.Status, staged bool) error {
	err := p.store.SetStatus(ctx, component.ID, s)
	p.observer.Observe(ctx, reconcile.Write{
		Source:        journal.SourcePoll,
		ComponentID:   component.ID,
		ComponentName: component.Name,
		Status:        s,
		Staged:        staged,
		Err:           err,
	})
	if err != nil {
		return fmt.Errorf("set status %s: %w", s, err)
	}
	return nil
}

func (p *Poller) readBack(ctx context.Context, id int) error {
	if _, err := p.store.GetComponent(ctx, id); err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	return nil
}
