package domain

import (
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

// RedirectCondition is checked against the incoming request at redirect time.
type RedirectCondition struct {
	Type       string  `json:"type" validate:"required,oneof=device language query-param"`
	MatchKey   *string `json:"matchKey"`
	MatchValue string  `json:"matchValue" validate:"required"`
}

// RedirectRule sends matching visitors to LongURL instead of the link's
// original URL. Rules are evaluated by ascending Priority.
type RedirectRule struct {
	LongURL    string              `json:"longUrl" validate:"required,url"`
	Priority   int                 `json:"priority"`
	Conditions []RedirectCondition `json:"conditions" validate:"dive"`
}

// RequestInfo is the part of a redirect request that conditions look at.
type RequestInfo struct {
	UserAgent      string
	AcceptLanguage string
	Query          url.Values
}

const (
	DeviceAndroid = "android"
	DeviceIOS     = "ios"
	DeviceDesktop = "desktop"
)

// DeviceType classifies a user agent as android, ios or desktop.
func DeviceType(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "android"):
		return DeviceAndroid
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ipod"):
		return DeviceIOS
	}
	return DeviceDesktop
}

// Matches reports whether the condition holds for req.
func (c RedirectCondition) Matches(req RequestInfo) bool {
	switch c.Type {
	case "device":
		return DeviceType(req.UserAgent) == strings.ToLower(c.MatchValue)
	case "language":
		tags, _, err := language.ParseAcceptLanguage(req.AcceptLanguage)
		if err != nil {
			return false
		}
		want := strings.ToLower(c.MatchValue)
		for _, t := range tags {
			got := strings.ToLower(t.String())
			if got == want || strings.HasPrefix(got, want+"-") {
				return true
			}
		}
		return false
	case "query-param":
		return c.MatchKey != nil && req.Query.Get(*c.MatchKey) == c.MatchValue
	}
	return false
}

// Matches reports whether all conditions of the rule hold. A rule without
// conditions never matches.
func (r RedirectRule) Matches(req RequestInfo) bool {
	if len(r.Conditions) == 0 {
		return false
	}
	for _, c := range r.Conditions {
		if !c.Matches(req) {
			return false
		}
	}
	return true
}

// ResolveLongURL returns the long URL of the first matching rule, or fallback.
func ResolveLongURL(rules []RedirectRule, req RequestInfo, fallback string) string {
	for _, r := range rules {
		if r.Matches(req) {
			return r.LongURL
		}
	}
	return fallback
}

// SwapRules moves the rule at from to to, swapping it with the rule there.
// Moves outside the list return rules unchanged. Priorities follow the new
// order.
func SwapRules(rules []RedirectRule, from, to int) []RedirectRule {
	if from < 0 || from >= len(rules) || to < 0 || to >= len(rules) {
		return rules
	}
	out := make([]RedirectRule, len(rules))
	copy(out, rules)
	out[from], out[to] = out[to], out[from]
	return Reprioritize(out)
}

// Reprioritize sets priorities to 1..n following slice order.
func Reprioritize(rules []RedirectRule) []RedirectRule {
	for i := range rules {
		rules[i].Priority = i + 1
	}
	return rules
}
