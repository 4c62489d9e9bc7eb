package enrich

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// GeoResult is the coarse geography resolved from an IP address. Making the
// outcome an explicit value (rather than an exception to catch) keeps the
// "ignore and fall back" policy visible at the call site.
type GeoResult struct {
	Country string
	City    string
}

var (
	ErrGeoUnavailable = errors.New("geolocation database not available")
	ErrInvalidIP      = errors.New("invalid IP address")
)

// GeoResolver resolves an IP address to coarse geography. Implementations
// must honor ctx cancellation: the click recorder bounds every lookup with a
// short timeout so a slow resolver cannot back up the recording pipeline.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) (GeoResult, error)
}

// MaxMindResolver resolves geography from a local MaxMind mmdb file.
// Lookups are purely local reads, so the context check is only an early-out
// for callers whose deadline already elapsed.
type MaxMindResolver struct {
	reader *geoip2.Reader
}

// NewMaxMindResolver opens a MaxMind City database at the given path.
func NewMaxMindResolver(path string) (*MaxMindResolver, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database: %w", err)
	}

	return &MaxMindResolver{reader: reader}, nil
}

// Resolve looks up the IP in the City database.
func (r *MaxMindResolver) Resolve(ctx context.Context, ip string) (GeoResult, error) {
	if err := ctx.Err(); err != nil {
		return GeoResult{}, err
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return GeoResult{}, ErrInvalidIP
	}

	record, err := r.reader.City(parsed)
	if err != nil {
		return GeoResult{}, fmt.Errorf("geoip lookup failed: %w", err)
	}

	result := GeoResult{
		Country: record.Country.Names["en"],
		City:    record.City.Names["en"],
	}
	if result.Country == "" {
		result.Country = record.Country.IsoCode
	}

	return result, nil
}

// Close releases the underlying database handle.
func (r *MaxMindResolver) Close() error {
	return r.reader.Close()
}

// NoopResolver is used when no geolocation database is configured. Every
// lookup reports unavailable, which the recorder maps to Unknown fields.
type NoopResolver struct{}

// Resolve always reports the database as unavailable.
func (NoopResolver) Resolve(ctx context.Context, ip string) (GeoResult, error) {
	return GeoResult{}, ErrGeoUnavailable
}
