package window

import (
	"strconv"
	"time"
)

// FormatDuration renders a countdown for end users: "2h 15m", "14m 59s",
// "45s", or "now" once the deadline has passed. Sub-second remainders
// round up so the UI never shows "now" while a block is still active.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "now"
	}

	secs := int64((d + time.Second - 1) / time.Second)

	hours := secs / 3600
	mins := (secs % 3600) / 60
	secs = secs % 60

	switch {
	case hours > 0 && mins > 0:
		return strconv.FormatInt(hours, 10) + "h " + strconv.FormatInt(mins, 10) + "m"
	case hours > 0:
		return strconv.FormatInt(hours, 10) + "h"
	case mins > 0 && secs > 0:
		return strconv.FormatInt(mins, 10) + "m " + strconv.FormatInt(secs, 10) + "s"
	case mins > 0:
		return strconv.FormatInt(mins, 10) + "m"
	default:
		return strconv.FormatInt(secs, 10) + "s"
	}
}
