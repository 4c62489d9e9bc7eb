package enrich

import (
	"strings"

	ua "github.com/mileusna/useragent"
)

// Unknown is the fallback value for any enrichment field that could not be
// resolved. Recording always proceeds with fallbacks; enrichment never
// blocks or fails a click.
const Unknown = "Unknown"

// DeviceInfo is the device classification derived from a User-Agent string.
type DeviceInfo struct {
	DeviceType      string // desktop, mobile, tablet, bot or Unknown
	Browser         string
	OperatingSystem string
}

// UAParser turns a raw User-Agent header into a DeviceInfo.
type UAParser interface {
	Parse(userAgent string) DeviceInfo
}

// Parser is the default UAParser built on mileusna/useragent.
type Parser struct{}

// NewParser creates the default user-agent parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse classifies a User-Agent string. Empty or unrecognizable agents come
// back as Unknown across the board rather than as an error.
func (p *Parser) Parse(userAgent string) DeviceInfo {
	if strings.TrimSpace(userAgent) == "" {
		return DeviceInfo{
			DeviceType:      Unknown,
			Browser:         Unknown,
			OperatingSystem: Unknown,
		}
	}

	parsed := ua.Parse(userAgent)

	info := DeviceInfo{
		DeviceType:      Unknown,
		Browser:         parsed.Name,
		OperatingSystem: parsed.OS,
	}

	switch {
	case parsed.Bot:
		info.DeviceType = "bot"
	case parsed.Mobile:
		info.DeviceType = "mobile"
	case parsed.Tablet:
		info.DeviceType = "tablet"
	case parsed.Desktop:
		info.DeviceType = "desktop"
	}

	if info.Browser == "" {
		info.Browser = Unknown
	}
	if info.OperatingSystem == "" {
		info.OperatingSystem = Unknown
	}

	return info
}
