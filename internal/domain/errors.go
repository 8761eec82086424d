package domain

import "fmt"

// Stage names the step of an ingestion cycle that failed.
type Stage string

const (
	StageFetch Stage = "fetch"
	StageParse Stage = "parse"
	StageStore Stage = "store"
)

// FetchError reports a transport or HTTP failure retrieving the feed.
type FetchError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MalformedFeedError reports that the feed document could not be tokenized.
// Bad individual fields never produce this error.
type MalformedFeedError struct {
	Err error
}

func (e *MalformedFeedError) Error() string {
	return fmt.Sprintf("malformed feed: %v", e.Err)
}

func (e *MalformedFeedError) Unwrap() error { return e.Err }

// StoreError reports a read or write failure against the backing store.
type StoreError struct {
	Op  string // e.g. "upsert reading", "write marker", "read latest"
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IngestError tags the first hard failure of an ingestion cycle with its stage.
type IngestError struct {
	Stage Stage
	Err   error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Stage, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }
