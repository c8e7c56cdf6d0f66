package models

import "time"

// DayLayout is the calendar-day format used by every persisted date.
const DayLayout = "2006-01-02"

// Day formats t as a calendar day in t's location.
func Day(t time.Time) string {
	return t.Format(DayLayout)
}

// DailyQuota counts successful follows for a single calendar day.
type DailyQuota struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Rollover returns the quota to use on today. A quota stored for any other
// day is reset to zero.
func (q DailyQuota) Rollover(today string) (DailyQuota, bool) {
	if q.Date == today {
		return q, false
	}
	return DailyQuota{Date: today, Count: 0}, true
}

// Exceeded reports whether the counter has reached limit.
func (q DailyQuota) Exceeded(limit int) bool {
	return q.Count >= limit
}
