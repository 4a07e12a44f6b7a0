// Package export writes visits and short URLs as CSV reports.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/visits"
)

var (
	visitsHeader = []string{"date", "potentialBot", "userAgent", "browser", "os", "referer",
		"country", "region", "city", "latitude", "longitude", "visitedUrl", "type"}
	shortURLsHeader = []string{"createdAt", "domain", "shortCode", "shortUrl", "longUrl",
		"title", "tags", "visits"}
)

// FileName builds names like "visits_2024-05-01.csv".
func FileName(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", prefix, now.Format("2006-01-02"))
}

// ShortURL is the public URL of a link, on its own domain when it has one.
func ShortURL(baseURL string, l domain.Link) string {
	base := strings.TrimRight(baseURL, "/")
	if l.Domain != "" {
		scheme := "https"
		if i := strings.Index(base, "://"); i > 0 {
			scheme = base[:i]
		}
		base = scheme + "://" + l.Domain
	}
	return base + "/open/" + l.ShortCode
}

// WriteVisits writes one row per visit. Nothing is written for an empty list
// and false is returned.
func WriteVisits(w io.Writer, list []visits.NormalizedVisit) (bool, error) {
	if len(list) == 0 {
		return false, nil
	}

	c := csv.NewWriter(w)
	if err := c.Write(visitsHeader); err != nil {
		return false, err
	}
	for _, v := range list {
		var visitedURL string
		if v.VisitedURL != nil {
			visitedURL = *v.VisitedURL
		}
		err := c.Write([]string{
			v.Date,
			strconv.FormatBool(v.PotentialBot),
			v.UserAgent,
			v.Browser,
			v.OS,
			v.Referer,
			v.Country,
			v.Region,
			v.City,
			coordinate(v.Latitude),
			coordinate(v.Longitude),
			visitedURL,
			string(v.Type),
		})
		if err != nil {
			return false, err
		}
	}
	c.Flush()
	return true, c.Error()
}

// WriteShortURLs writes one row per link, with tags joined by "|". Nothing is
// written for an empty list and false is returned.
func WriteShortURLs(w io.Writer, baseURL string, links []domain.Link) (bool, error) {
	if len(links) == 0 {
		return false, nil
	}

	c := csv.NewWriter(w)
	if err := c.Write(shortURLsHeader); err != nil {
		return false, err
	}
	for _, l := range links {
		err := c.Write([]string{
			l.CreatedAt.UTC().Format(time.RFC3339),
			l.Domain,
			l.ShortCode,
			ShortURL(baseURL, l),
			l.OriginalURL,
			l.Title,
			strings.Join(l.Tags, "|"),
			strconv.FormatInt(l.Clicks, 10),
		})
		if err != nil {
			return false, err
		}
	}
	c.Flush()
	return true, c.Error()
}

func coordinate(c *visits.Coordinate) string {
	if c == nil {
		return ""
	}
	return strconv.FormatFloat(c.Float(), 'f', -1, 64)
}
