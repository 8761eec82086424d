// Package pipeline runs one fetch, parse and store cycle of the UV feed.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/uv-feed-service/internal/domain"
	"github.com/couchcryptid/uv-feed-service/internal/feed"
	"github.com/couchcryptid/uv-feed-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Fetcher retrieves the raw feed document.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// SnapshotPublisher receives every successfully stored snapshot.
type SnapshotPublisher interface {
	Publish(ctx context.Context, snapshot domain.Snapshot) error
}

// Pipeline orchestrates a single ingestion cycle. It holds no schedule of its
// own; callers decide when to run it.
type Pipeline struct {
	fetcher   Fetcher
	store     domain.ReadingStore
	publisher SnapshotPublisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithPublisher publishes each stored snapshot. Publish failures are logged
// and counted but never fail the cycle.
func WithPublisher(p SnapshotPublisher) Option {
	return func(pl *Pipeline) { pl.publisher = p }
}

// WithClock sets the clock used to stamp FetchedAt.
func WithClock(c clockwork.Clock) Option {
	return func(pl *Pipeline) { pl.clock = c }
}

// New creates a Pipeline with the given stages and observability.
func New(f Fetcher, s domain.ReadingStore, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher: f,
		store:   s,
		clock:   clockwork.NewRealClock(),
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once one cycle has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no successful ingestion yet")
	}
	return nil
}

// RunOnce fetches the feed, decodes it and writes the readings to the store.
// The first hard failure short-circuits the cycle and is returned as a
// *domain.IngestError tagged with its stage. There is no internal retry.
func (p *Pipeline) RunOnce(ctx context.Context) (domain.Snapshot, error) {
	start := p.clock.Now()
	defer func() {
		p.metrics.IngestDuration.Observe(p.clock.Since(start).Seconds())
	}()

	body, err := p.fetcher.Fetch(ctx)
	if err != nil {
		var fetchErr *domain.FetchError
		if !errors.As(err, &fetchErr) {
			fetchErr = &domain.FetchError{Err: err}
		}
		return domain.Snapshot{}, p.fail(domain.StageFetch, fetchErr)
	}
	fetchedAt := p.clock.Now().UTC()

	res, err := feed.Decode(bytes.NewReader(body))
	if err != nil {
		var malformed *domain.MalformedFeedError
		if !errors.As(err, &malformed) {
			malformed = &domain.MalformedFeedError{Err: err}
		}
		return domain.Snapshot{}, p.fail(domain.StageParse, malformed)
	}
	p.metrics.ReadingsParsed.Add(float64(len(res.Readings)))
	p.metrics.ReadingsDropped.Add(float64(res.Dropped))
	p.metrics.IndexDefaulted.Add(float64(res.Defaulted))
	if res.Dropped > 0 || res.Defaulted > 0 {
		p.logger.Warn("feed entries degraded", "dropped", res.Dropped, "index_defaulted", res.Defaulted)
	}

	snapshot := domain.Snapshot{Readings: res.Readings, FetchedAt: fetchedAt}
	if err := p.store.UpsertAll(ctx, snapshot); err != nil {
		var storeErr *domain.StoreError
		if !errors.As(err, &storeErr) {
			storeErr = &domain.StoreError{Op: "upsert all", Err: err}
		}
		return domain.Snapshot{}, p.fail(domain.StageStore, storeErr)
	}
	p.metrics.ReadingsStored.Add(float64(len(snapshot.Readings)))

	p.publish(ctx, snapshot)

	p.metrics.IngestCycles.WithLabelValues("success").Inc()
	p.metrics.LastSuccess.Set(float64(fetchedAt.Unix()))
	p.ready.Store(true)
	p.logger.Info("ingestion complete", "readings", len(snapshot.Readings), "fetched_at", fetchedAt)
	return snapshot, nil
}

func (p *Pipeline) publish(ctx context.Context, snapshot domain.Snapshot) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, snapshot); err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Warn("publish snapshot failed", "error", err, "readings", len(snapshot.Readings))
	}
}

func (p *Pipeline) fail(stage domain.Stage, err error) error {
	p.metrics.IngestCycles.WithLabelValues(string(stage)).Inc()
	p.logger.Error("ingestion failed", "stage", stage, "error", err)
	return &domain.IngestError{Stage: stage, Err: err}
}
