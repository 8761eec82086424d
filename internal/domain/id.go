package domain

import (
	"strings"

	"github.com/google/uuid"
)

// locationNamespace scopes location IDs so they cannot collide with UUIDv5
// values derived for other purposes from the same names.
var locationNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:uv-feed:location"))

// LocationID returns the stable identifier for a location key (a feed-supplied
// station code or, failing that, the location name). Matching is case- and
// surrounding-whitespace-insensitive.
func LocationID(key string) string {
	normalized := strings.ToLower(strings.TrimSpace(key))
	return uuid.NewSHA1(locationNamespace, []byte(normalized)).String()
}
