package matching

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/solace-backend/internal/pkg/dbctx"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

const sweepLeaseKey = "solace:match-sweep"

// Recomputer is the per-user unit of work the driver schedules.
type Recomputer interface {
	RecomputeMatchesForUser(ctx context.Context, userID uuid.UUID) (RecomputeResult, error)
}

// SweepObserver is told about every finished, skipped or failed sweep.
type SweepObserver interface {
	ObserveSweep(report SweepReport, err error)
}

// UserLister enumerates every user a sweep should visit.
type UserLister interface {
	ListKnownUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

type DriverConfig struct {
	Interval    time.Duration
	Concurrency int
	QueueSize   int
	UserTimeout time.Duration
	LeaseTTL    time.Duration
}

func (c DriverConfig) withDefaults() DriverConfig {
	if c.Concurrency < 1 {
		c.Concurrency = 4
	}
	if c.QueueSize < 1 {
		c.QueueSize = 256
	}
	if c.UserTimeout <= 0 {
		c.UserTimeout = 2 * time.Minute
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = 30 * time.Minute
	}
	return c
}

type DriverDeps struct {
	Log        *logger.Logger
	Recomputer Recomputer
	Users      UserLister
	// Lease is optional; without it overlapping sweeps are only prevented in-process.
	Lease    Lease
	Observer SweepObserver
	Config   DriverConfig
}

// Driver runs recomputes periodically for every user and on demand for one.
type Driver struct {
	log   *logger.Logger
	rc    Recomputer
	users UserLister
	lease Lease
	obs   SweepObserver
	cfg   DriverConfig

	sweepMu sync.Mutex

	mu      sync.Mutex
	pending map[uuid.UUID]struct{}
	queue   chan uuid.UUID
	started bool
}

func NewDriver(deps DriverDeps) (*Driver, error) {
	if deps.Log == nil || deps.Recomputer == nil || deps.Users == nil {
		return nil, fmt.Errorf("matching: driver missing deps")
	}
	cfg := deps.Config.withDefaults()
	return &Driver{
		log:     deps.Log.With("component", "MatchDriver"),
		rc:      deps.Recomputer,
		users:   deps.Users,
		lease:   deps.Lease,
		obs:     deps.Observer,
		cfg:     cfg,
		pending: map[uuid.UUID]struct{}{},
		queue:   make(chan uuid.UUID, cfg.QueueSize),
	}, nil
}

type SweepReport struct {
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Users      int                  `json:"users"`
	Succeeded  int                  `json:"succeeded"`
	Failed     map[uuid.UUID]string `json:"failed,omitempty"`
	Skipped    bool                 `json:"skipped,omitempty"`
}

func (r SweepReport) HasFailures() bool { return len(r.Failed) > 0 }

// RunForAllUsers recomputes every known user. One user's failure is recorded
// in the report and never stops the others; the returned error is reserved
// for not being able to enumerate users at all.
func (d *Driver) RunForAllUsers(ctx context.Context) (report SweepReport, err error) {
	report = SweepReport{StartedAt: time.Now().UTC()}
	if d.obs != nil {
		defer func() { d.obs.ObserveSweep(report, err) }()
	}

	if !d.sweepMu.TryLock() {
		report.Skipped = true
		report.FinishedAt = time.Now().UTC()
		return report, nil
	}
	defer d.sweepMu.Unlock()

	if d.lease != nil {
		release, ok, leaseErr := d.lease.Acquire(ctx, sweepLeaseKey, d.cfg.LeaseTTL)
		if leaseErr != nil {
			d.log.Warn("sweep lease unavailable; running unguarded", "error", leaseErr)
		} else if !ok {
			d.log.Info("match sweep already running elsewhere; skipping")
			report.Skipped = true
			report.FinishedAt = time.Now().UTC()
			return report, nil
		} else {
			defer release()
		}
	}

	ids, listErr := d.users.ListKnownUserIDs(ctx)
	if listErr != nil {
		return report, fmt.Errorf("list users: %w", listErr)
	}
	report.Users = len(ids)

	var mu sync.Mutex
	failed := map[uuid.UUID]string{}
	succeeded := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			err := d.RecomputeUser(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[id] = err.Error()
				return nil
			}
			succeeded++
			return nil
		})
	}
	_ = g.Wait()

	report.Succeeded = succeeded
	if len(failed) > 0 {
		report.Failed = failed
	}
	report.FinishedAt = time.Now().UTC()
	d.log.Info("match sweep finished",
		"users", report.Users,
		"succeeded", report.Succeeded,
		"failed", len(failed),
		"duration_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	)
	return report, nil
}

// RecomputeUser is RecomputeMatchesForUser without the counts.
func (d *Driver) RecomputeUser(ctx context.Context, userID uuid.UUID) error {
	_, err := d.RecomputeMatchesForUser(ctx, userID)
	return err
}

// RecomputeMatchesForUser runs one recompute under the per-user timeout and
// turns a panic into an error. Callers outside the sweep go through here too.
func (d *Driver) RecomputeMatchesForUser(ctx context.Context, userID uuid.UUID) (res RecomputeResult, err error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.UserTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("match recompute panic", "user_id", userID, "panic", r)
			err = fmt.Errorf("recompute panic: %v", r)
		}
	}()
	if res, err = d.rc.RecomputeMatchesForUser(ctx, userID); err != nil {
		d.log.Warn("match recompute failed", "user_id", userID, "error", err)
	}
	return res, err
}

// TriggerUser queues a recompute without blocking. A user already queued is
// not queued twice; a full queue drops the trigger and leaves it to the sweep.
func (d *Driver) TriggerUser(userID uuid.UUID) {
	if d == nil || userID == uuid.Nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, queued := d.pending[userID]; queued {
		return
	}
	select {
	case d.queue <- userID:
		d.pending[userID] = struct{}{}
	default:
		d.log.Warn("match trigger queue full; dropping", "user_id", userID)
	}
}

// Start launches the trigger workers and, when an interval is configured, the periodic sweep.
func (d *Driver) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	d.log.Info("Starting match driver", "concurrency", d.cfg.Concurrency, "interval", d.cfg.Interval.String())
	for i := 0; i < d.cfg.Concurrency; i++ {
		go d.triggerLoop(ctx, i+1)
	}
	if d.cfg.Interval > 0 {
		go d.sweepLoop(ctx)
	}
}

func (d *Driver) triggerLoop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			d.log.Debug("match trigger loop stopped", "worker_id", workerID)
			return
		case id := <-d.queue:
			d.mu.Lock()
			delete(d.pending, id)
			d.mu.Unlock()
			_ = d.RecomputeUser(ctx, id)
		}
	}
}

func (d *Driver) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.log.Info("match sweep loop stopped")
			return
		case <-ticker.C:
			if _, err := d.RunForAllUsers(ctx); err != nil {
				d.log.Warn("match sweep failed", "error", err)
			}
		}
	}
}

// KnownUsers is every content owner plus every user still on a match record,
// so users who deleted all their content get cleaned up.
func KnownUsers(content ContentStore, matches MatchStore) UserLister {
	return knownUsers{content: content, matches: matches}
}

type knownUsers struct {
	content ContentStore
	matches MatchStore
}

func (k knownUsers) ListKnownUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	dbc := dbctx.Context{Ctx: ctx}
	owners, err := k.content.ListOwnerIDs(dbc)
	if err != nil {
		return nil, err
	}
	parties, err := k.matches.ListParticipantIDs(dbc)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]struct{}, len(owners)+len(parties))
	out := make([]uuid.UUID, 0, len(owners)+len(parties))
	for _, list := range [][]uuid.UUID{owners, parties} {
		for _, id := range list {
			if id == uuid.Nil {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}
