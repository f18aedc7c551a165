package capability

import "time"

// Time window types. Duration windows run from the assignment's created
// timestamp; until windows are absolute deadlines.
const (
	WindowDuration = "duration"
	WindowUntil    = "until"
)

// WindowActive reports whether a time-bounded assignment is currently
// active. Absent or unlimited windows are always active. A declared window
// with unparseable data fails closed: corrupt timestamps must never grant
// access silently.
//
// Window values: WindowDuration takes a Go duration string ("72h", "30m")
// measured from startedAt; WindowUntil takes an RFC 3339 deadline.
func WindowActive(w *TimeWindow, startedAt, now time.Time) bool {
	if w == nil || !w.Limited {
		return true
	}
	switch w.Type {
	case WindowDuration:
		if startedAt.IsZero() {
			return false
		}
		d, err := time.ParseDuration(w.Value)
		if err != nil || d <= 0 {
			return false
		}
		return now.Before(startedAt.Add(d))
	case WindowUntil:
		deadline, err := time.Parse(time.RFC3339, w.Value)
		if err != nil {
			return false
		}
		return now.Before(deadline)
	}
	// Unknown window types fail closed.
	return false
}
