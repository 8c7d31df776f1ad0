// Package geocode resolves free-text place names or coordinate pairs to
// canonical locations using the Open-Meteo geocoding API.
package geocode

import (
	"errors"
	"fmt"
	"strings"
)

// Location is a resolved place. It is created fresh per query and never
// mutated afterwards.
type Location struct {
	DisplayName      string
	CountryCode      string // 2-letter code, may be empty
	Timezone         string // IANA identifier, or "auto"
	UTCOffsetSeconds int
	Latitude         float64
	Longitude        float64
}

// ErrUnavailable reports that the geocoding provider itself could not be
// reached or returned a non-success status. Distinct from NotFoundError so
// callers can message the two cases differently.
var ErrUnavailable = errors.New("geocoding unavailable")

// NotFoundError reports that a name query matched nothing.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("location not found: %s", e.Query)
}

// displayName combines the place name with its administrative region, but
// only when the region adds information ("Paris, Paris" collapses to "Paris").
func displayName(name, admin1 string) string {
	if admin1 != "" && !strings.EqualFold(admin1, name) {
		return name + ", " + admin1
	}
	return name
}
