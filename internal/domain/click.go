package domain

import (
	"time"
	"unicode/utf8"
)

// ClickStatus describes the outcome of a redirect attempt.
type ClickStatus string

const (
	StatusRedirected ClickStatus = "redirected"
	StatusBlocked    ClickStatus = "blocked"
	StatusExpired    ClickStatus = "expired"
)

// Storage limits for free-text fields on a click event. Values longer than
// the limit are truncated at the recording boundary, never rejected.
const (
	MaxReferrerLen  = 2048
	MaxUserAgentLen = 512
	MaxUTMLen       = 100
	MaxGeoLen       = 100
	MaxIPLen        = 45 // fits a full IPv6 textual address
)

// ClickEvent is one immutable record of a single redirect attempt.
// Rows are written once by the click recorder and never mutated; the
// aggregator only ever reads them.
type ClickEvent struct {
	ID              string // UUID
	LinkID          string
	Timestamp       time.Time
	IPAddress       string
	UserAgent       string
	DeviceType      string // desktop / mobile / tablet / bot / Unknown
	Browser         string
	OperatingSystem string
	Country         string // "Unknown" when geolocation is unavailable
	City            string
	Referrer        string
	UTMSource       string
	UTMMedium       string
	UTMCampaign     string
	Status          ClickStatus
	LatencyMs       int64
}

// Truncate caps a free-text value at max bytes. Applied uniformly at the
// boundary where raw request input becomes a persisted field. The cut never
// splits a UTF-8 rune: the store rejects invalid UTF-8, and a rejected insert
// would drop the whole click.
func Truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
