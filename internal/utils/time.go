package utils

import "time"

// AsUTC reads timestamps that came back without zone information as UTC.
// sqlite keeps no offset for CURRENT_TIMESTAMP defaults, and a driver set to
// _loc=auto labels those values Local, which skews every age comparison.
func AsUTC(t time.Time) time.Time {
	if t.Location() == time.UTC {
		return t
	}
	if t.Location() == time.Local {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}
	return t.UTC()
}
