package property

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"realty-backend/internal/geocode"
)

// TextResolver resolves free-form address text to a point.
type TextResolver interface {
	ResolveText(ctx context.Context, text string) (geocode.Resolution, bool)
}

type BackfillReport struct {
	Scanned    int           `json:"scanned"`
	Updated    int           `json:"updated"`
	Skipped    int           `json:"skipped"`
	Unresolved int           `json:"unresolved"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finishedAt"`
}

// Backfiller writes coordinates onto listings stored without them.
type Backfiller struct {
	repo       Repository
	resolver   TextResolver
	workers    int
	batchSize  int64
	retryAfter time.Duration
	now        func() time.Time
	log        *slog.Logger
	running    atomic.Bool

	mu   sync.Mutex
	last *BackfillReport
}

var ErrBackfillRunning = errors.New("backfill already running")

func NewBackfiller(repo Repository, resolver TextResolver, workers int, log *slog.Logger) *Backfiller {
	if workers <= 0 {
		workers = 4
	}
	if log == nil {
		log = slog.Default()
	}
	return &Backfiller{
		repo:       repo,
		resolver:   resolver,
		workers:    workers,
		batchSize:  500,
		retryAfter: 24 * time.Hour,
		now:        time.Now,
		log:        log,
	}
}

// Run makes one pass over listings without coordinates. Lookups run on at most
// workers goroutines; a failed write is counted and does not stop the pass.
// When ctx ends early the report covers the listings handled so far.
func (b *Backfiller) Run(ctx context.Context) (BackfillReport, error) {
	if !b.running.CompareAndSwap(false, true) {
		return BackfillReport{}, ErrBackfillRunning
	}
	defer b.running.Store(false)
	return b.run(ctx)
}

// Start runs a pass in the background, detached from the caller's request.
func (b *Backfiller) Start(timeout time.Duration) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrBackfillRunning
	}
	go func() {
		defer b.running.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := b.run(ctx); err != nil {
			b.log.Error("backfill: background run failed", slog.String("error", err.Error()))
		}
	}()
	return nil
}

func (b *Backfiller) Running() bool {
	return b.running.Load()
}

// Last returns the report of the most recent finished pass.
func (b *Backfiller) Last() (BackfillReport, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last == nil {
		return BackfillReport{}, false
	}
	return *b.last, true
}

type backfillCounters struct {
	scanned, updated, skipped, unresolved, failed atomic.Int64
}

func (b *Backfiller) run(ctx context.Context) (BackfillReport, error) {
	start := b.now()
	cutoff := start.Add(-b.retryAfter)

	var counts backfillCounters
	seen := make(map[string]bool)
	var runErr error
	for {
		items, err := b.repo.MissingCoordinates(ctx, cutoff, b.batchSize)
		if err != nil {
			runErr = err
			break
		}
		fresh := make([]Property, 0, len(items))
		for _, p := range items {
			if !seen[p.ID] {
				seen[p.ID] = true
				fresh = append(fresh, p)
			}
		}
		if len(fresh) == 0 {
			break
		}
		b.process(ctx, fresh, &counts)
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if int64(len(items)) < b.batchSize {
			break
		}
	}

	report := BackfillReport{
		Scanned:    int(counts.scanned.Load()),
		Updated:    int(counts.updated.Load()),
		Skipped:    int(counts.skipped.Load()),
		Unresolved: int(counts.unresolved.Load()),
		Failed:     int(counts.failed.Load()),
		FinishedAt: b.now(),
	}
	report.Duration = report.FinishedAt.Sub(start)

	b.mu.Lock()
	b.last = &report
	b.mu.Unlock()

	b.log.Info("backfill: done",
		slog.Int("scanned", report.Scanned),
		slog.Int("updated", report.Updated),
		slog.Int("skipped", report.Skipped),
		slog.Int("unresolved", report.Unresolved),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", report.Duration),
	)
	return report, runErr
}

// process handles one batch. Every listing it does not geocode is stamped as
// attempted so the next batch moves past it.
func (b *Backfiller) process(ctx context.Context, items []Property, counts *backfillCounters) {
	var g errgroup.Group
	g.SetLimit(b.workers)
	for _, p := range items {
		p := p
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			counts.scanned.Add(1)
			// stored under an alias key the store filter missed
			if p.Point().Valid() {
				counts.skipped.Add(1)
				b.markAttempted(ctx, p.ID)
				return nil
			}
			text := p.Location
			if text == "" {
				text = p.ProjectName
			}
			res, ok := b.resolver.ResolveText(ctx, text)
			if !ok {
				counts.unresolved.Add(1)
				b.markAttempted(ctx, p.ID)
				return nil
			}
			if err := b.repo.UpdateCoordinates(ctx, p.ID, res.Point); err != nil {
				counts.failed.Add(1)
				b.log.Warn("backfill: update failed", slog.String("property_id", p.ID), slog.String("error", err.Error()))
				b.markAttempted(ctx, p.ID)
				return nil
			}
			counts.updated.Add(1)
			return nil
		})
	}
	_ = g.Wait()
}

func (b *Backfiller) markAttempted(ctx context.Context, id string) {
	if err := b.repo.MarkCoordinatesAttempted(ctx, id, b.now()); err != nil {
		b.log.Warn("backfill: mark attempted failed", slog.String("property_id", id), slog.String("error", err.Error()))
	}
}

// Schedule starts a cron runner executing Run on spec. The caller stops it.
func (b *Backfiller) Schedule(spec string, timeout time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := b.Run(ctx); err != nil {
			b.log.Error("backfill: scheduled run failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	b.log.Info("backfill: scheduled", slog.String("spec", spec))
	return c, nil
}
