// Package timeutil resolves user-supplied timezone identifiers and renders
// instants for logs and scheduling decisions. Every component that surfaces a
// human-readable time goes through FormatInstant so display stays consistent.
package timeutil

import "time"

// DefaultTimezone is used whenever a campaign has no timezone or an
// unresolvable one.
const DefaultTimezone = "Africa/Nairobi"

const displayLayout = "2006-01-02 03:04:05 PM"

// ResolveTimezone returns tz if it names a loadable zone, the default zone
// otherwise. It never fails.
func ResolveTimezone(tz *string) string {
	if tz == nil || *tz == "" {
		return DefaultTimezone
	}
	if _, err := time.LoadLocation(*tz); err != nil {
		return DefaultTimezone
	}
	return *tz
}

// FormatInstant renders t in the resolved zone. If the zone cannot be loaded
// the absolute RFC3339 UTC form is returned instead.
func FormatInstant(t time.Time, tz *string) string {
	loc, err := time.LoadLocation(ResolveTimezone(tz))
	if err != nil {
		return t.UTC().Format(time.RFC3339)
	}
	return t.In(loc).Format(displayLayout)
}
