package domain

import (
	"context"
	"time"
)

// ReadingStore is the document store shared by the ingestion path and the
// read-only display paths.
type ReadingStore interface {
	// UpsertAll writes every reading keyed by ID, each stamped with the
	// snapshot's FetchedAt, then writes the last-update marker. Writes are
	// sequential and not transactional: on failure earlier writes remain.
	UpsertAll(ctx context.Context, snapshot Snapshot) error

	// ReadLatest returns up to limit readings (limit <= 0 means all) in
	// backend-defined order. An empty store yields an empty slice.
	ReadLatest(ctx context.Context, limit int) ([]Reading, error)

	// LastUpdate returns the marker written by the most recent successful
	// UpsertAll, or the zero time if none exists.
	LastUpdate(ctx context.Context) (time.Time, error)
}
