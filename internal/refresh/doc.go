// Package refresh drives the two display paths of the service.
//
// [Foreground] is the live view: it runs an ingestion cycle immediately and
// then on a fixed interval, never with more than one cycle in flight, and
// keeps the last good readings when a cycle fails.
//
// [Timeline] is the host-driven widget path: it never fetches the feed or
// schedules itself. Each call to [Timeline.Entry] reads the store and returns
// one render entry together with the instant the host should ask again.
package refresh
