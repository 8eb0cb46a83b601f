// internal/daily/daily.go
//
// Calendar-day arithmetic for the daily puzzle rotation.
// A "day" is midnight-to-midnight in the deployment's chosen location:
// the web host runs on local time, the bridge host on UTC. All functions
// are pure; callers pass the clock in.

package daily

import (
	"math"
	"time"
)

// DateKey returns YYYY-MM-DD for t in loc.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// DaysSince returns the number of whole calendar days between epoch and t,
// both truncated to midnight in loc. Negative if t precedes the epoch.
// Rounding absorbs DST days that are 23 or 25 hours long.
func DaysSince(epoch, t time.Time, loc *time.Location) int {
	a := midnight(epoch, loc)
	b := midnight(t, loc)
	return int(math.Round(b.Sub(a).Hours() / 24))
}

// Index maps t to a position in a rotation of size total: days since the
// epoch modulo total, wrapped to be non-negative. The same date and pool
// size always yield the same index; changing the pool size changes the
// mapping.
func Index(epoch, t time.Time, loc *time.Location, total int) int {
	if total <= 0 {
		return 0
	}
	n := DaysSince(epoch, t, loc) % total
	if n < 0 {
		n += total
	}
	return n
}

// NextDateKey returns the date key one calendar day after the given key,
// or "" if key does not parse. Used for streak comparisons.
func NextDateKey(key string) string {
	d, err := time.Parse("2006-01-02", key)
	if err != nil {
		return ""
	}
	return d.AddDate(0, 0, 1).Format("2006-01-02")
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
