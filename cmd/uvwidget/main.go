// Command uvwidget renders one widget timeline entry from the configured
// store and prints it as JSON. It performs no feed fetch; the host decides
// when to run it again (see the entry's nextRefresh).
//
// Usage:
//
//	go run ./cmd/uvwidget -family medium
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/uv-feed-service/internal/config"
	"github.com/couchcryptid/uv-feed-service/internal/domain"
	"github.com/couchcryptid/uv-feed-service/internal/observability"
	"github.com/couchcryptid/uv-feed-service/internal/refresh"
	"github.com/couchcryptid/uv-feed-service/internal/storage"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

// unavailableStore stands in for a backend that could not be opened so the
// entry still renders with the error placeholder.
type unavailableStore struct {
	err error
}

func (u unavailableStore) UpsertAll(context.Context, domain.Snapshot) error { return u.err }

func (u unavailableStore) ReadLatest(context.Context, int) ([]domain.Reading, error) {
	return nil, u.err
}

func (u unavailableStore) LastUpdate(context.Context) (time.Time, error) { return time.Time{}, u.err }

// options holds the parsed command-line flags.
type options struct {
	family      refresh.Family
	placeholder bool
	timeout     time.Duration
}

func main() {
	familyFlag := flag.String("family", "small", "widget family: small, medium or large")
	placeholder := flag.Bool("placeholder", false, "print the loading placeholder without reading the store")
	timeout := flag.Duration("timeout", 10*time.Second, "store read timeout")
	flag.Parse()

	family, err := refresh.ParseFamily(*familyFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the entry; logs go to stderr.
	logger := observability.NewStderrLogger(cfg)
	opts := options{family: family, placeholder: *placeholder, timeout: *timeout}
	if err := run(cfg, opts, logger, os.Stdout); err != nil {
		logger.Error("render failed", "error", err)
		os.Exit(1)
	}
}

// run renders one entry to w. Store failures are rendered, not returned; only
// an output failure is an error.
func run(cfg *config.Config, opts options, logger *slog.Logger, w io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	var store domain.ReadingStore
	if !opts.placeholder {
		opened, err := storage.Open(ctx, cfg, logger)
		if err != nil {
			logger.Error("open store failed", "error", err)
			store = unavailableStore{err: err}
		} else {
			defer func() {
				if err := opened.Close(); err != nil {
					logger.Error("store close error", "error", err)
				}
			}()
			store = opened
		}
	}

	timeline := refresh.NewTimeline(store, cfg.TimelineRefresh, clockwork.NewRealClock(), logger, observability.NewUnregisteredMetrics())
	entry := timeline.Placeholder(opts.family)
	if !opts.placeholder {
		entry = timeline.Entry(ctx, opts.family)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entry); err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	return nil
}
