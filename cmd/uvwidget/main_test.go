package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/uv-feed-service/internal/config"
	"github.com/couchcryptid/uv-feed-service/internal/refresh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("stdout closed") }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions(family refresh.Family) options {
	return options{family: family, timeout: 5 * time.Second}
}

func TestRun_EmptyStoreRendersNoData(t *testing.T) {
	cfg := &config.Config{StoreBackend: config.BackendMemory, TimelineRefresh: 5 * time.Minute}

	var buf bytes.Buffer
	require.NoError(t, run(cfg, testOptions(refresh.FamilyMedium), discardLogger(), &buf))

	var entry refresh.TimelineEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, refresh.FamilyMedium, entry.Family)
	require.Len(t, entry.Locations, 1)
	assert.Equal(t, refresh.PlaceholderNoData, entry.Locations[0].LocationName)
	assert.Equal(t, entry.Date.Add(5*time.Minute), entry.NextRefresh)
}

func TestRun_UnopenableStoreRendersErrorPlaceholder(t *testing.T) {
	cfg := &config.Config{StoreBackend: "redis", TimelineRefresh: 5 * time.Minute}

	var buf bytes.Buffer
	require.NoError(t, run(cfg, testOptions(refresh.FamilySmall), discardLogger(), &buf))

	var entry refresh.TimelineEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Len(t, entry.Locations, 1)
	assert.Equal(t, refresh.PlaceholderError, entry.Locations[0].LocationName)
}

func TestRun_Placeholder(t *testing.T) {
	cfg := &config.Config{StoreBackend: config.BackendMemory}
	opts := testOptions(refresh.FamilySmall)
	opts.placeholder = true

	var buf bytes.Buffer
	require.NoError(t, run(cfg, opts, discardLogger(), &buf))
	assert.Contains(t, buf.String(), refresh.PlaceholderLoading)
}

func TestRun_EncodeFailureReturnsErrorAndClosesStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uvfeed.db")
	cfg := &config.Config{StoreBackend: config.BackendSQLite, SQLitePath: path}

	err := run(cfg, testOptions(refresh.FamilySmall), discardLogger(), failingWriter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode entry")

	// The deferred close ran; a second render against the same file succeeds.
	var buf bytes.Buffer
	require.NoError(t, run(cfg, testOptions(refresh.FamilySmall), discardLogger(), &buf))
	assert.Contains(t, buf.String(), refresh.PlaceholderNoData)
}
