// Package geoip resolves visitor locations from an MMDB city database
// (MaxMind GeoLite2 City, DB-IP City Lite).
package geoip

import (
	"errors"
	"io/fs"
	"net"
	"os"

	"github.com/oschwald/geoip2-golang"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/visits"
)

type Locator struct {
	db *geoip2.Reader
}

// Open opens the database at path. A missing file or an empty path returns a
// nil Locator, which locates nothing.
func Open(path string) (*Locator, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &Locator{db: db}, nil
}

// Locate returns nil for unparseable, private or unknown addresses.
func (l *Locator) Locate(ip string) *visits.Location {
	if l == nil || l.db == nil {
		return nil
	}
	addr := net.ParseIP(ip)
	if addr == nil || addr.IsPrivate() || addr.IsLoopback() {
		return nil
	}

	rec, err := l.db.City(addr)
	if err != nil || rec.Country.IsoCode == "" {
		return nil
	}

	loc := &visits.Location{
		CountryCode: rec.Country.IsoCode,
		CountryName: rec.Country.Names["en"],
		CityName:    rec.City.Names["en"],
	}
	if len(rec.Subdivisions) > 0 {
		loc.RegionName = rec.Subdivisions[0].Names["en"]
	}
	if rec.Location.Latitude != 0 || rec.Location.Longitude != 0 {
		lat := visits.NewCoordinate(rec.Location.Latitude)
		long := visits.NewCoordinate(rec.Location.Longitude)
		loc.Latitude, loc.Longitude = &lat, &long
	}
	return loc
}

func (l *Locator) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
