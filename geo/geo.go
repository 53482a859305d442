// Package geo implements optional IP geolocation enrichment, supplementing
// spec.md with the geolocation capability the distillation dropped but the
// teacher carries (`resolvers.LookupGeolocation` in
// Gh0st0ne-netcap/encoder/ipProfile.go). Off by default: a nil/unset
// Resolver is a no-op, so sessions without a configured database pay no
// cost and callers get netwatchtypes.ErrNotFound rather than a crash.
package geo

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

// Location is the subset of MaxMind City DB fields the pipeline surfaces
// alongside a flow or alert.
type Location struct {
	City      string
	Country   string
	Latitude  float64
	Longitude float64
}

// Resolver looks up IP geolocation against a MaxMind GeoLite2 City
// database. The zero value is valid but always returns ErrNotFound;
// use Open to back it with a real database.
type Resolver struct {
	db *geoip2.Reader
}

// Open loads a GeoLite2 City mmdb file from path.
func Open(path string) (*Resolver, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open geoip database: %v", netwatchtypes.ErrBackendUnavailable, err)
	}
	return &Resolver{db: db}, nil
}

// Lookup resolves ip to a Location. Returns netwatchtypes.ErrNotFound when
// no database is loaded or the address has no city-level record.
func (r *Resolver) Lookup(ip net.IP) (Location, error) {
	if r == nil || r.db == nil {
		return Location{}, netwatchtypes.ErrNotFound
	}

	rec, err := r.db.City(ip)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %v", netwatchtypes.ErrNotFound, err)
	}
	if rec.City.Names["en"] == "" && rec.Country.Names["en"] == "" {
		return Location{}, netwatchtypes.ErrNotFound
	}

	return Location{
		City:      rec.City.Names["en"],
		Country:   rec.Country.Names["en"],
		Latitude:  rec.Location.Latitude,
		Longitude: rec.Location.Longitude,
	}, nil
}

// Close releases the underlying database handle.
func (r *Resolver) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
