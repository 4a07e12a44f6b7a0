package visits

import (
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"zgo.at/gadget"
	"zgo.at/zcache"
)

// UserAgentParser detects the browser and operating system of a user agent.
type UserAgentParser interface {
	Parse(userAgent string) (browser, os string)
}

// GadgetParser parses user agents with gadget and memoizes the result, as the
// same handful of agents make up most of the traffic.
type GadgetParser struct {
	cache *zcache.Cache
}

func NewGadgetParser() *GadgetParser {
	return &GadgetParser{cache: zcache.New(1*time.Hour, 5*time.Minute)}
}

type parsedAgent struct{ browser, os string }

func (p *GadgetParser) Parse(userAgent string) (string, string) {
	if userAgent == "" {
		return Unknown, Unknown
	}
	if c, ok := p.cache.Get(userAgent); ok {
		pa := c.(parsedAgent)
		return pa.browser, pa.os
	}

	ua := gadget.Parse(userAgent)
	pa := parsedAgent{browser: orUnknown(ua.BrowserName), os: orUnknown(ua.OSName)}
	p.cache.SetDefault(userAgent, pa)
	return pa.browser, pa.os
}

type Normalizer struct {
	ua UserAgentParser
}

// NewNormalizer creates a Normalizer; a nil parser uses NewGadgetParser.
func NewNormalizer(ua UserAgentParser) *Normalizer {
	if ua == nil {
		ua = NewGadgetParser()
	}
	return &Normalizer{ua: ua}
}

// Normalize maps raw visits 1:1, preserving order.
func (n *Normalizer) Normalize(raw []RawVisit) []NormalizedVisit {
	out := make([]NormalizedVisit, 0, len(raw))
	for _, r := range raw {
		out = append(out, n.normalizeOne(r))
	}
	return out
}

func (n *Normalizer) normalizeOne(r RawVisit) NormalizedVisit {
	browser, os := n.ua.Parse(r.UserAgent)
	v := NormalizedVisit{
		Date:         r.Date,
		UserAgent:    r.UserAgent,
		Browser:      browser,
		OS:           os,
		Referer:      ExtractDomain(r.Referer),
		Country:      Unknown,
		Region:       Unknown,
		City:         Unknown,
		PotentialBot: r.PotentialBot,
		VisitedURL:   r.VisitedURL,
	}
	if r.IsOrphan() {
		v.Type = r.Type
	}
	if loc := r.Location; loc != nil {
		v.Country = orUnknown(loc.CountryName)
		v.Region = orUnknown(loc.RegionName)
		v.City = orUnknown(loc.CityName)
		v.Latitude = loc.Latitude
		v.Longitude = loc.Longitude
	}
	return v
}

// ExtractDomain returns the registrable domain of a referrer URL, such as
// "google.com" for "https://www.google.com/search". Hosts without a public
// suffix (localhost, IPs) are returned as-is. Empty or unparseable referrers
// give "".
func ExtractDomain(referer string) string {
	referer = strings.TrimSpace(referer)
	if referer == "" {
		return ""
	}
	if !strings.Contains(referer, "://") {
		referer = "http://" + referer
	}

	u, err := url.Parse(referer)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil {
		return host
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}
