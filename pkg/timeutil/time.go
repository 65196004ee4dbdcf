package timeutil

import "time"

// Now returns the current time in UTC. Everything this service stores or
// serializes uses UTC; gateway-local times are converted at the parse edge.
func Now() time.Time {
	return time.Now().UTC()
}

// ParseInLocationUTC parses a wall-clock value in the given location and
// returns the instant in UTC.
func ParseInLocationUTC(layout, value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(layout, value, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// ToUTC normalizes a time to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}
