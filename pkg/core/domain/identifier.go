package domain

import (
	"fmt"
	"strings"
)

// DefaultDomain stands for "no domain" where a domain has to be spelled out.
const DefaultDomain = "DEFAULT"

// ShortCodeSeparator splits domain and short code in identifiers. Stored
// short codes never contain it.
const ShortCodeSeparator = "__"

// ShortURLIdentifier identifies a short URL. A nil Domain is the default one.
type ShortURLIdentifier struct {
	Domain    *string `json:"domain"`
	ShortCode string  `json:"shortCode"`
}

// EncodeShortCode makes a multi-segment short code safe to use as a single
// URL path param, replacing slashes with double underscores.
func EncodeShortCode(code string) string {
	return strings.ReplaceAll(code, "/", ShortCodeSeparator)
}

func DecodeShortCode(code string) string {
	return strings.ReplaceAll(code, ShortCodeSeparator, "/")
}

// IdentifierToQuery renders an identifier as "<domain>__<short code>".
func IdentifierToQuery(id ShortURLIdentifier) string {
	domain := DefaultDomain
	if id.Domain != nil {
		domain = *id.Domain
	}
	return domain + ShortCodeSeparator + EncodeShortCode(id.ShortCode)
}

// QueryToIdentifier parses the output of IdentifierToQuery. Only the first
// separator splits, as the short code may contain more of them.
func QueryToIdentifier(q string) (ShortURLIdentifier, error) {
	domain, code, _ := strings.Cut(q, ShortCodeSeparator)
	if code == "" {
		return ShortURLIdentifier{}, fmt.Errorf(
			"%w: it was not possible to parse domain and short code from %q", ErrInvalidInput, q)
	}

	id := ShortURLIdentifier{ShortCode: DecodeShortCode(code)}
	if domain != DefaultDomain {
		id.Domain = &domain
	}
	return id, nil
}

// DomainMatches reports whether link lives on domain, DEFAULT standing for
// the default domain.
func DomainMatches(link Link, domain string) bool {
	if link.Domain == "" && domain == DefaultDomain {
		return true
	}
	return link.Domain == domain
}
