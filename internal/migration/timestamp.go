package migration

import (
	"fmt"
	"time"
)

// localLayout is the offset-free wall-clock layout the target store expects.
const localLayout = "2006-01-02T15:04:05"

// Converted carries both representations of a migrated timestamp: the original
// UTC string and the offset-free local form inserted into the target store.
type Converted struct {
	UTC         string
	Local       time.Time
	LocalString string
	Timezone    string
}

// ConvertMigrationTimestamp parses an RFC 3339 UTC timestamp from the legacy
// store and converts it to wall-clock time in the given IANA zone. An empty
// zone resolves to the process-local zone.
func ConvertMigrationTimestamp(utcTimestamp, timezone string) (Converted, error) {
	parsed, err := time.Parse(time.RFC3339, utcTimestamp)
	if err != nil {
		return Converted{}, fmt.Errorf("invalid timestamp %q: %w", utcTimestamp, err)
	}

	loc := time.Local
	name := loc.String()
	if timezone != "" {
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return Converted{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
		}
		name = timezone
	}

	local := parsed.In(loc)
	return Converted{
		UTC:         utcTimestamp,
		Local:       local,
		LocalString: local.Format(localLayout),
		Timezone:    name,
	}, nil
}

// IsValidTimezone reports whether tz names a loadable IANA timezone.
func IsValidTimezone(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}
