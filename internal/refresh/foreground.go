package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/uv-feed-service/internal/domain"
	"github.com/couchcryptid/uv-feed-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

const errorPrefix = "Failed to fetch UV data: "

// Ingester runs one ingestion cycle. *pipeline.Pipeline implements it.
type Ingester interface {
	RunOnce(ctx context.Context) (domain.Snapshot, error)
}

// ViewState is what the live view renders.
type ViewState struct {
	Locations    []domain.Reading `json:"locations"`
	LastUpdate   time.Time        `json:"lastUpdate"`
	Loading      bool             `json:"loading"`
	ErrorMessage string           `json:"errorMessage,omitempty"`
}

// ForegroundOptions configures a Foreground.
type ForegroundOptions struct {
	Interval time.Duration // period between ticks
	Timeout  time.Duration // upper bound on one cycle; zero means none
	Clock    clockwork.Clock
}

// Foreground refreshes the live view state on a fixed cadence.
type Foreground struct {
	ingester Ingester
	interval time.Duration
	timeout  time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	fetching atomic.Bool

	mu    sync.RWMutex
	state ViewState

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewForeground creates a stopped Foreground.
func NewForeground(ing Ingester, opts ForegroundOptions, logger *slog.Logger, metrics *observability.Metrics) *Foreground {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Foreground{
		ingester: ing,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
		state:    ViewState{Locations: []domain.Reading{}},
	}
}

// Start fires one tick immediately and then one every interval until ctx is
// cancelled or Stop is called.
func (f *Foreground) Start(ctx context.Context) error {
	if f.interval <= 0 {
		return errors.New("refresh interval must be positive")
	}

	f.runMu.Lock()
	defer f.runMu.Unlock()
	if f.cancel != nil {
		return errors.New("foreground refresh already started")
	}

	ctx, f.cancel = context.WithCancel(ctx)
	ticker := f.clock.NewTicker(f.interval)

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer ticker.Stop()

		f.metrics.SchedulerRunning.Set(1)
		defer f.metrics.SchedulerRunning.Set(0)
		f.logger.Info("foreground refresh started", "interval", f.interval)

		f.Tick(ctx)
		for {
			select {
			case <-ctx.Done():
				f.logger.Info("foreground refresh stopping", "reason", ctx.Err())
				return
			case <-ticker.Chan():
				f.Tick(ctx)
			}
		}
	}()
	return nil
}

// Stop cancels the ticker and waits for the loop and any in-flight cycle to
// return. Safe to call more than once.
func (f *Foreground) Stop() {
	f.runMu.Lock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.runMu.Unlock()
	f.wg.Wait()
}

// Tick launches one cycle in the background unless one is already in flight.
// It reports whether a cycle was launched.
func (f *Foreground) Tick(ctx context.Context) bool {
	if !f.fetching.CompareAndSwap(false, true) {
		f.metrics.TicksSkipped.Inc()
		f.logger.Debug("refresh tick skipped, cycle in flight")
		return false
	}

	f.mu.Lock()
	f.state.Loading = true
	f.mu.Unlock()

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer f.fetching.Store(false)
		f.runCycle(ctx)
	}()
	return true
}

// Fetching reports whether a cycle is in flight.
func (f *Foreground) Fetching() bool {
	return f.fetching.Load()
}

// State returns a copy of the current view state.
func (f *Foreground) State() ViewState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s := f.state
	s.Locations = make([]domain.Reading, len(f.state.Locations))
	copy(s.Locations, f.state.Locations)
	return s
}

func (f *Foreground) runCycle(ctx context.Context) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	snapshot, err := f.ingester.RunOnce(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Loading = false
	if err != nil {
		// Locations are kept so the view shows stale data rather than none.
		f.state.ErrorMessage = errorPrefix + cause(err).Error()
		return
	}
	locations := snapshot.Readings
	if locations == nil {
		locations = []domain.Reading{}
	}
	f.state.Locations = locations
	f.state.LastUpdate = snapshot.FetchedAt
	f.state.ErrorMessage = ""
}

// cause strips the stage tag so the view shows the underlying failure.
func cause(err error) error {
	var ingestErr *domain.IngestError
	if errors.As(err, &ingestErr) && ingestErr.Err != nil {
		return ingestErr.Err
	}
	return err
}
