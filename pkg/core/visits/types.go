// Package visits turns raw visit payloads into normalized visits and folds
// them into the grouped statistics shown on the visits screens.
package visits

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Unknown labels a location, browser or OS that could not be determined.
const Unknown = "Unknown"

// OrphanVisitType categorizes a visit that did not match any short URL.
type OrphanVisitType string

const (
	OrphanInvalidShortURL OrphanVisitType = "invalid_short_url"
	OrphanBaseURL         OrphanVisitType = "base_url"
	OrphanRegularNotFound OrphanVisitType = "regular_404"
)

func (t OrphanVisitType) Valid() bool {
	switch t {
	case OrphanInvalidShortURL, OrphanBaseURL, OrphanRegularNotFound:
		return true
	}
	return false
}

// Coordinate is a latitude or longitude. The API sends either JSON numbers or
// numeric strings, so the raw text is kept and parsed on demand.
type Coordinate string

func NewCoordinate(f float64) Coordinate {
	return Coordinate(strconv.FormatFloat(f, 'f', -1, 64))
}

// Float parses the coordinate, returning 0 for empty or malformed values.
func (c Coordinate) Float() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(c)), 64)
	if err != nil {
		return 0
	}
	return f
}

func (c *Coordinate) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*c = ""
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	*c = Coordinate(s)
	return nil
}

func (c Coordinate) MarshalJSON() ([]byte, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(c)), 64)
	if err != nil {
		return json.Marshal(string(c))
	}
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// Location as resolved by the upstream geolocation lookup.
type Location struct {
	CountryCode string      `json:"countryCode"`
	CountryName string      `json:"countryName"`
	RegionName  string      `json:"regionName"`
	CityName    string      `json:"cityName"`
	Latitude    *Coordinate `json:"latitude,omitempty"`
	Longitude   *Coordinate `json:"longitude,omitempty"`
}

// RawVisit is a visit as stored or returned by the API, before normalization.
type RawVisit struct {
	Date         string          `json:"date"`
	UserAgent    string          `json:"userAgent"`
	Referer      string          `json:"referer"`
	Location     *Location       `json:"visitLocation"`
	PotentialBot bool            `json:"potentialBot"`
	VisitedURL   *string         `json:"visitedUrl,omitempty"`
	Type         OrphanVisitType `json:"type,omitempty"`
}

// IsOrphan reports whether the raw visit did not match a short URL.
func (v RawVisit) IsOrphan() bool {
	return v.Type != ""
}

type NormalizedVisit struct {
	Date         string          `json:"date"`
	UserAgent    string          `json:"userAgent"`
	Browser      string          `json:"browser"`
	OS           string          `json:"os"`
	Referer      string          `json:"referer"`
	Country      string          `json:"country"`
	Region       string          `json:"region"`
	City         string          `json:"city"`
	Latitude     *Coordinate     `json:"latitude,omitempty"`
	Longitude    *Coordinate     `json:"longitude,omitempty"`
	PotentialBot bool            `json:"potentialBot"`
	VisitedURL   *string         `json:"visitedUrl,omitempty"`
	Type         OrphanVisitType `json:"type,omitempty"`
}

// IsOrphan reports whether the visit carries a visited URL.
func (v NormalizedVisit) IsOrphan() bool {
	return v.VisitedURL != nil
}

// Stats maps a category label to a number of visits.
type Stats map[string]int

type CityStats struct {
	CityName string     `json:"cityName"`
	Count    int        `json:"count"`
	LatLong  [2]float64 `json:"latLong"`
}

type VisitsStats struct {
	OS           Stats                `json:"os"`
	Browsers     Stats                `json:"browsers"`
	Referrers    Stats                `json:"referrers"`
	Countries    Stats                `json:"countries"`
	Cities       Stats                `json:"cities"`
	CitiesForMap map[string]CityStats `json:"citiesForMap"`
	VisitedURLs  Stats                `json:"visitedUrls"`
}

// Highlights summarizes a list of visits split by bot detection.
type Highlights struct {
	Total   int `json:"total"`
	NonBots int `json:"nonBots"`
	Bots    int `json:"bots"`
}
