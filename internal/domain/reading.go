package domain

import "time"

// Reading is one location's UV index observation.
type Reading struct {
	ID           string  `json:"id"`
	LocationName string  `json:"locationName"`
	Index        float64 `json:"index"`
	FullTime     string  `json:"fullTime"` // opaque feed timestamp, display only

	// LastUpdate is the fetch instant of the ingestion that last wrote this
	// reading. Only set on readings read back from a store.
	LastUpdate time.Time `json:"lastUpdate,omitzero"`
}

// Snapshot is the ordered set of readings produced by one successful fetch.
type Snapshot struct {
	Readings  []Reading `json:"readings"`
	FetchedAt time.Time `json:"fetchedAt"`
}
