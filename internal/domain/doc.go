// Package domain models UV index readings published by ARPANSA (the Australian
// Radiation Protection and Nuclear Safety Agency).
//
// # Data Source
//
// ARPANSA publishes near real-time UV index observations for its monitoring
// stations as a single XML document, by default at
// https://uvdata.arpansa.gov.au/xml/uvvalues.xml. The service polls that
// document, parses every location entry into a [Reading], and caches the
// latest value per location in a [ReadingStore].
//
// # Feed Conventions
//
// Each station is a "location" element. The fields the service consumes are
// child elements, in any order:
//
//	locationName  display name, e.g. "Sydney"
//	index         decimal UV index, e.g. "7.5"
//	fullTime      observation timestamp, kept verbatim for display
//
// The location element may carry an "id" attribute (a short station code).
// Unknown elements are ignored.
//
// Degradation rules:
//
//	A missing, non-numeric, negative or non-finite index becomes 0.0.
//	An entry without a location name is dropped.
//
// # Severity Categories
//
// The WHO UV index scale is mapped onto five categories by [CategoryFor]:
//
//	[0, 3)  low        green
//	[3, 6)  moderate   yellow
//	[6, 8)  high       orange
//	[8, 11) very high  red
//	>= 11   extreme    purple
//
// # ID Generation
//
// Reading IDs are UUIDv5 values over the location key, so the same station
// always maps to the same store document and upserts overwrite rather than
// accumulate. See [LocationID].
package domain
