package ports

import (
	"context"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/pagination"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/visits"
)

// LinkRepository defines storage operations for links
type LinkRepository interface {
	Create(ctx context.Context, link *domain.Link) error
	GetByShortCode(ctx context.Context, authority, code string) (*domain.Link, error)
	GetByID(ctx context.Context, id int64) (*domain.Link, error)
	Update(ctx context.Context, link *domain.Link) error
	Delete(ctx context.Context, id int64) error // Soft delete
	List(ctx context.Context, limit, offset int, filter domain.LinkFilter) ([]domain.Link, error)
	Count(ctx context.Context, filter domain.LinkFilter) (int64, error)
	Dump(ctx context.Context) ([]domain.Link, error) // For migration
	ListDomains(ctx context.Context) ([]string, error)

	// Stats
	RecordVisit(ctx context.Context, visit *domain.Visit) error
	// ListVisits returns the visits of a link, or orphan visits for a nil linkID.
	ListVisits(ctx context.Context, linkID *int64, filter domain.VisitFilter) ([]domain.Visit, error)
	GetDailyClicks(ctx context.Context, linkID *int64, filter domain.VisitFilter) ([]domain.DailyClick, error)
	CountVisits(ctx context.Context, orphan bool) (visits.Highlights, error)
	GetDashboardStats(ctx context.Context, limit int, filter domain.LinkFilter) ([]domain.Link, int64, error)

	// Tags
	ListTags(ctx context.Context) ([]domain.Tag, error)
	RenameTag(ctx context.Context, oldName, newName string) error
	DeleteTag(ctx context.Context, name string) error

	// Redirect rules
	GetRedirectRules(ctx context.Context, linkID int64) ([]domain.RedirectRule, error)
	SetRedirectRules(ctx context.Context, linkID int64, rules []domain.RedirectRule) error
}

// Locator resolves the location of a visitor IP. It returns nil when the
// location is unknown.
type Locator interface {
	Locate(ip string) *visits.Location
}

// VisitRequest carries the visitor details captured by the HTTP layer.
type VisitRequest struct {
	Referer   string
	UserAgent string
	IP        string
}

// LinkService defines the business logic operations
type LinkService interface {
	Shorten(ctx context.Context, originalURL, title string, tags []string, customCode, authority string) (*domain.Link, error)
	Resolve(ctx context.Context, authority, code string, req domain.RequestInfo) (string, error)
	UpdateLink(ctx context.Context, id int64, originalURL, title string, tags []string) (*domain.Link, error)
	DeleteLink(ctx context.Context, id int64) error
	ListLinks(ctx context.Context, page, limit int, filter domain.LinkFilter) ([]domain.Link, pagination.Paginator, error)
	ListDomains(ctx context.Context) ([]domain.Domain, error)
	GetLinkByShortCode(ctx context.Context, authority, code string) (*domain.Link, error)

	// Stats
	RecordVisit(ctx context.Context, authority, shortCode string, req VisitRequest) error
	RecordOrphanVisit(ctx context.Context, visitedURL string, typ visits.OrphanVisitType, req VisitRequest) error
	GetLinkStats(ctx context.Context, id int64, filter domain.VisitFilter) (*domain.LinkStats, error)
	GetOrphanStats(ctx context.Context, filter domain.VisitFilter) (*domain.LinkStats, error)
	GetVisitsOverview(ctx context.Context) (*domain.VisitsOverview, error)
	ListVisits(ctx context.Context, id *int64, filter domain.VisitFilter) ([]visits.NormalizedVisit, error)
	GetDashboard(ctx context.Context, limit int, filter domain.LinkFilter) ([]domain.Link, int64, error)
}

// TagService manages tags and their colors
type TagService interface {
	ListTags(ctx context.Context) ([]domain.Tag, error)
	SetTagColor(ctx context.Context, tag, color string) (domain.Tag, error)
	RenameTag(ctx context.Context, oldName, newName string) error
	DeleteTag(ctx context.Context, name string) error
}

// RedirectRuleService defines business logic for redirect rules
type RedirectRuleService interface {
	GetRules(ctx context.Context, linkID int64) ([]domain.RedirectRule, error)
	SetRules(ctx context.Context, linkID int64, rules []domain.RedirectRule) ([]domain.RedirectRule, error)
	MoveRule(ctx context.Context, linkID int64, index, delta int) ([]domain.RedirectRule, error)
}
