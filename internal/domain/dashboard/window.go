package dashboard

import (
	"time"
)

// TodayRange returns the epoch-ms bounds [start, end] of now's calendar
// day in the server's local time zone.
func TodayRange(now time.Time) (start, end int64) {
	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	start = dayStart.UnixMilli()
	end = dayStart.AddDate(0, 0, 1).UnixMilli() - 1
	return start, end
}

// FollowUpWindow returns the epoch-ms window (now-14d, now-7d]. A visit
// exactly 7 days old is due for follow-up; exactly 14 days old is stale.
func FollowUpWindow(now time.Time) (from, to int64) {
	from = now.AddDate(0, 0, -14).UnixMilli()
	to = now.AddDate(0, 0, -7).UnixMilli()
	return from, to
}
