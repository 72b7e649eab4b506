package image

import "time"

// IsStale reports whether a snapshot refreshed at lastRefreshed has aged past
// thresholdDays by now. The check is advisory: callers use it to decide
// whether to obtain a fresh canonical registry before reconciling. A
// threshold of zero means always stale.
func IsStale(lastRefreshed, now time.Time, thresholdDays int) bool {
	return now.Sub(lastRefreshed) >= time.Duration(thresholdDays)*24*time.Hour
}
