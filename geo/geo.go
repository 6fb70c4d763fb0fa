// Package geo resolves coarse visitor locations.
package geo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"quizfunnel/api/models"

	"github.com/oschwald/geoip2-golang"
	log "github.com/sirupsen/logrus"
)

const UnknownValue = "Unknown"

// Unknown is the placeholder used whenever a lookup cannot complete.
var Unknown = models.Location{Country: UnknownValue, City: UnknownValue}

type Geolocator interface {
	Lookup(ctx context.Context, ip string) (models.Location, error)
}

// GeoIPLocator reads a MaxMind City database.
type GeoIPLocator struct {
	db *geoip2.Reader
}

func NewGeoIPLocator(path string) (*GeoIPLocator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database %s: %w", path, err)
	}
	return &GeoIPLocator{db: db}, nil
}

func (g *GeoIPLocator) Lookup(ctx context.Context, ip string) (models.Location, error) {
	if err := ctx.Err(); err != nil {
		return Unknown, err
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Unknown, fmt.Errorf("invalid ip %q", ip)
	}

	rec, err := g.db.City(parsed)
	if err != nil {
		return Unknown, fmt.Errorf("geoip lookup failed: %w", err)
	}

	loc := Unknown
	if rec.Country.IsoCode != "" {
		loc.Country = rec.Country.IsoCode
	}
	if name := rec.City.Names["en"]; name != "" {
		loc.City = name
	}
	return loc, nil
}

func (g *GeoIPLocator) Close() error {
	return g.db.Close()
}

// LookupOrUnknown bounds the lookup by timeout and degrades to Unknown on any failure.
func LookupOrUnknown(ctx context.Context, g Geolocator, ip string, timeout time.Duration) models.Location {
	if g == nil || ip == "" {
		return Unknown
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		loc models.Location
		err error
	}
	done := make(chan result, 1)
	go func() {
		loc, err := g.Lookup(ctx, ip)
		done <- result{loc, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			log.WithError(r.err).WithField("ip", ip).Debug("Geolocation lookup failed")
			return Unknown
		}
		return r.loc
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.WithField("ip", ip).Warn("Geolocation lookup timed out")
		}
		return Unknown
	}
}
