package domain

import (
	"time"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/visits"
)

// Visit represents a click on a short link, or an orphan visit when LinkID is
// nil.
type Visit struct {
	ID           int64                  `json:"id"`
	LinkID       *int64                 `json:"link_id,omitempty"`
	Referer      string                 `json:"referer"`
	UserAgent    string                 `json:"user_agent"`
	IPHash       string                 `json:"ip_hash"` // Anonymized IP
	Location     *visits.Location       `json:"location,omitempty"`
	PotentialBot bool                   `json:"potential_bot"`
	VisitedURL   string                 `json:"visited_url,omitempty"`
	Type         visits.OrphanVisitType `json:"type,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// Raw converts the stored visit into the shape the visits package works on.
func (v Visit) Raw() visits.RawVisit {
	r := visits.RawVisit{
		Date:         v.CreatedAt.UTC().Format(time.RFC3339),
		UserAgent:    v.UserAgent,
		Referer:      v.Referer,
		Location:     v.Location,
		PotentialBot: v.PotentialBot,
	}
	if v.LinkID == nil {
		u := v.VisitedURL
		r.VisitedURL = &u
		r.Type = v.Type
	}
	return r
}

// VisitFilter narrows down the visits used for stats and exports.
type VisitFilter struct {
	StartDate   *time.Time
	EndDate     *time.Time
	ExcludeBots bool
}

// LinkStats represents aggregated statistics for a link
type LinkStats struct {
	TotalClicks int64              `json:"total_clicks"`
	Highlights  visits.Highlights  `json:"highlights"`
	Stats       visits.VisitsStats `json:"stats"`
	DailyClicks []DailyClick       `json:"daily_clicks"` // timeline
}

type DailyClick struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int64  `json:"count"`
}

// VisitsOverview counts all visits in the system.
type VisitsOverview struct {
	NonOrphanVisits visits.Highlights `json:"non_orphan_visits"`
	OrphanVisits    visits.Highlights `json:"orphan_visits"`
}
