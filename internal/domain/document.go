package domain

import (
	"errors"
	"time"
)

// MetadataLastUpdateKey is the document key of the last-update marker.
const MetadataLastUpdateKey = "lastUpdate"

// ReadingDocument is the stored shape of a reading, keyed externally by ID.
type ReadingDocument struct {
	LocationName string    `json:"locationName"`
	Index        *float64  `json:"index"`
	FullTime     *string   `json:"fullTime"`
	LastUpdate   time.Time `json:"lastUpdate"`
}

// MetadataDocument is the singleton marker of the last successful ingestion.
type MetadataDocument struct {
	Timestamp time.Time `json:"timestamp"`
}

var errIncompleteDocument = errors.New("document is missing locationName, index or fullTime")

// NewReadingDocument builds the stored document for a reading written at ts.
func NewReadingDocument(r Reading, ts time.Time) ReadingDocument {
	index := r.Index
	fullTime := r.FullTime
	return ReadingDocument{
		LocationName: r.LocationName,
		Index:        &index,
		FullTime:     &fullTime,
		LastUpdate:   ts.UTC(),
	}
}

// Reading converts a stored document back into a Reading. Documents missing
// any display field are rejected so readers can skip them.
func (d ReadingDocument) Reading(id string) (Reading, error) {
	if d.LocationName == "" || d.Index == nil || d.FullTime == nil {
		return Reading{}, errIncompleteDocument
	}
	return Reading{
		ID:           id,
		LocationName: d.LocationName,
		Index:        *d.Index,
		FullTime:     *d.FullTime,
		LastUpdate:   d.LastUpdate,
	}, nil
}
