package inbox

import (
	"fmt"
	"time"
)

// TimeAgo renders a timestamp relative to now: minutes under an hour, hours
// under a day, days under thirty, and an absolute date beyond that.
func TimeAgo(ts, now time.Time) string {
	diff := now.Sub(ts)
	if diff < 0 {
		diff = 0
	}

	minutes := int(diff.Minutes())
	if minutes < 60 {
		return plural(minutes, "minute")
	}

	hours := int(diff.Hours())
	if hours < 24 {
		return plural(hours, "hour")
	}

	days := hours / 24
	if days < 30 {
		return plural(days, "day")
	}

	return ts.Format("Jan 2, 2006")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
