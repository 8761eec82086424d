// Command feedcheck decodes a UV feed document and reports what the service
// would ingest from it: each reading with its category, plus how many entries
// were dropped or had their index defaulted. It exits non-zero if the
// document cannot be fetched or tokenized.
//
// Usage:
//
//	go run ./cmd/feedcheck -file internal/feed/testdata/uvvalues.xml
//	go run ./cmd/feedcheck -url https://uvdata.arpansa.gov.au/xml/uvvalues.xml
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/couchcryptid/uv-feed-service/internal/adapter/arpansa"
	"github.com/couchcryptid/uv-feed-service/internal/domain"
	"github.com/couchcryptid/uv-feed-service/internal/feed"
	"github.com/couchcryptid/uv-feed-service/internal/observability"
)

func main() {
	file := flag.String("file", "", "path to a feed document")
	url := flag.String("url", arpansa.DefaultURL, "feed URL, used when -file is not set")
	timeout := flag.Duration("timeout", 10*time.Second, "fetch timeout")
	flag.Parse()

	body, source, err := load(*file, *url, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	res, err := feed.Decode(bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s: %v\n", source, err)
		os.Exit(1)
	}

	report(os.Stdout, source, res)
}

func load(file, url string, timeout time.Duration) ([]byte, string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, file, fmt.Errorf("read %s: %w", file, err)
		}
		return data, file, nil
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client := arpansa.NewClient(arpansa.Options{URL: url, Timeout: timeout, MaxFailures: 1, OpenTimeout: time.Second},
		logger, observability.NewUnregisteredMetrics())

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	data, err := client.Fetch(ctx)
	if err != nil {
		return nil, url, err
	}
	return data, url, nil
}

func report(w io.Writer, source string, res feed.Result) {
	fmt.Fprintf(w, "source: %s\n\n", source)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LOCATION\tINDEX\tCATEGORY\tTIME\tID")
	for _, r := range res.Readings {
		fmt.Fprintf(tw, "%s\t%.1f\t%s\t%s\t%s\n", r.LocationName, r.Index, domain.CategoryFor(r.Index).Label(), r.FullTime, r.ID)
	}
	tw.Flush() //nolint:errcheck // writes to stdout

	fmt.Fprintf(w, "\nreadings: %d  dropped: %d  index defaulted: %d\n", len(res.Readings), res.Dropped, res.Defaulted)
}
