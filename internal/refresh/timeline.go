package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/uv-feed-service/internal/domain"
	"github.com/couchcryptid/uv-feed-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// DefaultTimelineRefresh is how far ahead the host is asked to request the
// next entry.
const DefaultTimelineRefresh = 5 * time.Minute

// Placeholder location names shown instead of readings.
const (
	PlaceholderLoading = "Loading..."
	PlaceholderNoData  = "No data"
	PlaceholderError   = "Error loading"
)

// Family is a widget size; it bounds how many locations an entry carries.
type Family string

const (
	FamilySmall  Family = "small"
	FamilyMedium Family = "medium"
	FamilyLarge  Family = "large"
)

// ParseFamily accepts small, medium or large (case-insensitive). Empty input
// selects FamilySmall.
func ParseFamily(s string) (Family, error) {
	switch f := Family(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FamilySmall, nil
	case FamilySmall, FamilyMedium, FamilyLarge:
		return f, nil
	default:
		return "", fmt.Errorf("unknown widget family %q", s)
	}
}

// Limit is the number of locations the family displays.
func (f Family) Limit() int {
	switch f {
	case FamilyMedium:
		return 3
	case FamilyLarge:
		return 6
	default:
		return 1
	}
}

// Card is one rendered location.
type Card struct {
	ID           string          `json:"id,omitempty"`
	LocationName string          `json:"locationName"`
	Index        float64         `json:"index"`
	FullTime     string          `json:"fullTime,omitempty"`
	Category     domain.Category `json:"category"`
	Label        string          `json:"label"`
	Color        string          `json:"color"`
	Placeholder  bool            `json:"placeholder,omitempty"`
}

// NewCard annotates a reading with its severity category.
func NewCard(r domain.Reading) Card {
	c := domain.CategoryFor(r.Index)
	return Card{
		ID:           r.ID,
		LocationName: r.LocationName,
		Index:        r.Index,
		FullTime:     r.FullTime,
		Category:     c,
		Label:        c.Label(),
		Color:        c.Color(),
	}
}

func placeholderCard(name string) Card {
	c := NewCard(domain.Reading{LocationName: name})
	c.Placeholder = true
	return c
}

// TimelineEntry is one host render plus the instant to request the next.
type TimelineEntry struct {
	Date        time.Time `json:"date"`
	Family      Family    `json:"family"`
	Locations   []Card    `json:"locations"`
	NextRefresh time.Time `json:"nextRefresh"`
}

// Timeline builds widget entries from the store on host request.
type Timeline struct {
	store   domain.ReadingStore
	refresh time.Duration
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTimeline creates a Timeline reading from store. A non-positive refresh
// selects DefaultTimelineRefresh; a nil clock selects the real clock.
func NewTimeline(store domain.ReadingStore, refresh time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Timeline {
	if refresh <= 0 {
		refresh = DefaultTimelineRefresh
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Timeline{store: store, refresh: refresh, clock: clock, logger: logger, metrics: metrics}
}

// Placeholder is the entry shown before any data has been read.
func (t *Timeline) Placeholder(family Family) TimelineEntry {
	now := t.clock.Now()
	return TimelineEntry{
		Date:        now,
		Family:      family,
		Locations:   []Card{placeholderCard(PlaceholderLoading)},
		NextRefresh: now.Add(t.refresh),
	}
}

// Entry reads up to family.Limit() readings. Store failures and an empty
// store are rendered as a single placeholder card; Entry never fails.
func (t *Timeline) Entry(ctx context.Context, family Family) TimelineEntry {
	now := t.clock.Now()
	entry := TimelineEntry{
		Date:        now,
		Family:      family,
		NextRefresh: now.Add(t.refresh),
	}

	readings, err := t.store.ReadLatest(ctx, family.Limit())
	switch {
	case err != nil:
		t.logger.Warn("timeline read failed", "error", err, "family", family)
		t.metrics.TimelineRequests.WithLabelValues("error").Inc()
		entry.Locations = []Card{placeholderCard(PlaceholderError)}
	case len(readings) == 0:
		t.metrics.TimelineRequests.WithLabelValues("empty").Inc()
		entry.Locations = []Card{placeholderCard(PlaceholderNoData)}
	default:
		t.metrics.TimelineRequests.WithLabelValues("ok").Inc()
		entry.Locations = make([]Card, len(readings))
		for i, r := range readings {
			entry.Locations[i] = NewCard(r)
		}
	}
	return entry
}
