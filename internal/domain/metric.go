package domain

import "time"

// DailyLinkMetric is the per-(link, day) rollup of raw click events. Rows are
// wholly owned by the aggregator: every run recomputes them from scratch, so
// re-running a day is safe (idempotent upsert keyed on LinkID+Date).
type DailyLinkMetric struct {
	ID              string // UUID
	LinkID          string
	Date            time.Time // UTC calendar day, time component zeroed
	ClicksTotal     int64
	UniqueVisitors  int64 // distinct IP addresses within the day
	BlockedAttempts int64 // events with status blocked
	AvgLatencyMs    float64
	TopCountry      string // mode (most frequent) values
	TopDevice       string
	TopBrowser      string
	TopReferrer     string
	UpdatedAt       time.Time
}

// DailyUserMetric is the per-(user, day) rollup derived from link ownership
// and click linkage. Same idempotent upsert contract as DailyLinkMetric.
type DailyUserMetric struct {
	ID           string // UUID
	UserID       string
	Date         time.Time
	LinksCreated int64 // links created on that day
	ActiveLinks  int64 // total non-deleted links owned
	TotalClicks  int64 // clicks across the user's links that day
	UpdatedAt    time.Time
}

// Day normalizes a timestamp to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
