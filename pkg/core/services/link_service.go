package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"net"
	"strconv"
	"strings"
	"time"

	"zgo.at/isbot"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/pagination"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/visits"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/logging"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/metrics"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/ports"
)

type LinkService struct {
	repo       ports.LinkRepository
	locator    ports.Locator
	normalizer *visits.Normalizer
	salt       string
	pageSize   int
}

type LinkServiceOption func(*LinkService)

func WithLocator(l ports.Locator) LinkServiceOption {
	return func(s *LinkService) { s.locator = l }
}

func WithIPHashSalt(salt string) LinkServiceOption {
	return func(s *LinkService) { s.salt = salt }
}

func WithPageSize(n int) LinkServiceOption {
	return func(s *LinkService) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func WithNormalizer(n *visits.Normalizer) LinkServiceOption {
	return func(s *LinkService) { s.normalizer = n }
}

func NewLinkService(repo ports.LinkRepository, opts ...LinkServiceOption) *LinkService {
	s := &LinkService{repo: repo, pageSize: 10}
	for _, o := range opts {
		o(s)
	}
	if s.normalizer == nil {
		s.normalizer = visits.NewNormalizer(nil)
	}
	return s
}

func (s *LinkService) Shorten(ctx context.Context, originalURL, title string, tags []string, customCode, authority string) (*domain.Link, error) {
	if originalURL == "" {
		return nil, fmt.Errorf("%w: original URL is required", domain.ErrInvalidInput)
	}
	authority = normalizeAuthority(authority)

	code := customCode
	if code == "" {
		var err error
		code, err = generateShortCode(6)
		if err != nil {
			return nil, err
		}
	} else {
		if strings.Contains(code, domain.ShortCodeSeparator) {
			return nil, fmt.Errorf("custom code %q must not contain %q: %w", code, domain.ShortCodeSeparator, domain.ErrInvalidInput)
		}
		existing, err := s.repo.GetByShortCode(ctx, authority, code)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, fmt.Errorf("custom code %q: %w", code, domain.ErrConflict)
		}
	}

	link := &domain.Link{
		Domain:      authority,
		OriginalURL: originalURL,
		ShortCode:   code,
		Title:       title,
		Tags:        normalizeTags(tags),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.repo.Create(ctx, link); err != nil {
		return nil, err
	}
	metrics.LinksCreated.Inc()
	logging.Ctx(ctx).Info().Str("short_code", code).Str("domain", authority).Msg("link created")

	return link, nil
}

// Resolve returns the URL a visitor of the short code should be sent to,
// taking the link's redirect rules into account.
func (s *LinkService) Resolve(ctx context.Context, authority, code string, req domain.RequestInfo) (string, error) {
	link, err := s.lookup(ctx, authority, code)
	if err != nil {
		return "", err
	}

	rules, err := s.repo.GetRedirectRules(ctx, link.ID)
	if err != nil {
		return "", err
	}
	return domain.ResolveLongURL(rules, req, link.OriginalURL), nil
}

func (s *LinkService) UpdateLink(ctx context.Context, id int64, originalURL, title string, tags []string) (*domain.Link, error) {
	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, fmt.Errorf("link %d: %w", id, domain.ErrNotFound)
	}

	// Update fields if provided (naive partial update logic)
	if originalURL != "" {
		link.OriginalURL = originalURL
	}
	if title != "" {
		link.Title = title
	}
	if tags != nil {
		link.Tags = normalizeTags(tags)
	}
	link.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, link); err != nil {
		return nil, err
	}

	return link, nil
}

func (s *LinkService) DeleteLink(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *LinkService) ListLinks(ctx context.Context, page, limit int, filter domain.LinkFilter) ([]domain.Link, pagination.Paginator, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.pageSize
	}
	offset := (page - 1) * limit
	filter.Domain = normalizeAuthority(filter.Domain)

	links, err := s.repo.List(ctx, limit, offset, filter)
	if err != nil {
		return nil, pagination.Paginator{}, err
	}

	count, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, pagination.Paginator{}, err
	}

	return links, pagination.NewPaginator(page, limit, int(count)), nil
}

func (s *LinkService) ListDomains(ctx context.Context) ([]domain.Domain, error) {
	names, err := s.repo.ListDomains(ctx)
	if err != nil {
		return nil, err
	}

	out := []domain.Domain{{Authority: domain.DefaultDomain, IsDefault: true}}
	for _, n := range names {
		if n != "" {
			out = append(out, domain.Domain{Authority: n})
		}
	}
	return out, nil
}

func (s *LinkService) RecordVisit(ctx context.Context, authority, shortCode string, req ports.VisitRequest) error {
	link, err := s.lookup(ctx, authority, shortCode)
	if err != nil {
		return err
	}

	visit := s.newVisit(req)
	visit.LinkID = &link.ID
	return s.store(ctx, visit, "regular")
}

func (s *LinkService) RecordOrphanVisit(ctx context.Context, visitedURL string, typ visits.OrphanVisitType, req ports.VisitRequest) error {
	if !typ.Valid() {
		return fmt.Errorf("%w: unknown orphan visit type %q", domain.ErrInvalidInput, typ)
	}

	visit := s.newVisit(req)
	visit.VisitedURL = visitedURL
	visit.Type = typ
	return s.store(ctx, visit, "orphan")
}

func (s *LinkService) newVisit(req ports.VisitRequest) *domain.Visit {
	ip := stripPort(req.IP)
	v := &domain.Visit{
		Referer:      req.Referer,
		UserAgent:    req.UserAgent,
		IPHash:       s.hashIP(ip),
		PotentialBot: isbot.Is(isbot.UserAgent(req.UserAgent)),
		CreatedAt:    time.Now(),
	}
	if s.locator != nil {
		v.Location = s.locator.Locate(ip)
	}
	return v
}

func (s *LinkService) store(ctx context.Context, visit *domain.Visit, kind string) error {
	if err := s.repo.RecordVisit(ctx, visit); err != nil {
		metrics.VisitRecordErrors.Inc()
		return err
	}
	metrics.VisitsRecorded.WithLabelValues(kind, strconv.FormatBool(visit.PotentialBot)).Inc()
	return nil
}

func (s *LinkService) hashIP(ip string) string {
	if ip == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s.salt + ip))
	return hex.EncodeToString(sum[:])
}

func (s *LinkService) GetLinkStats(ctx context.Context, id int64, filter domain.VisitFilter) (*domain.LinkStats, error) {
	return s.stats(ctx, &id, filter)
}

func (s *LinkService) GetOrphanStats(ctx context.Context, filter domain.VisitFilter) (*domain.LinkStats, error) {
	return s.stats(ctx, nil, filter)
}

func (s *LinkService) stats(ctx context.Context, linkID *int64, filter domain.VisitFilter) (*domain.LinkStats, error) {
	normalized, err := s.ListVisits(ctx, linkID, domain.VisitFilter{StartDate: filter.StartDate, EndDate: filter.EndDate})
	if err != nil {
		return nil, err
	}
	daily, err := s.repo.GetDailyClicks(ctx, linkID, filter)
	if err != nil {
		return nil, err
	}

	highlights := visits.Summarize(normalized)
	shown := visits.FilterBots(normalized, filter.ExcludeBots)
	return &domain.LinkStats{
		TotalClicks: int64(len(shown)),
		Highlights:  highlights,
		Stats:       visits.Aggregate(shown),
		DailyClicks: daily,
	}, nil
}

func (s *LinkService) GetVisitsOverview(ctx context.Context) (*domain.VisitsOverview, error) {
	nonOrphan, err := s.repo.CountVisits(ctx, false)
	if err != nil {
		return nil, err
	}
	orphan, err := s.repo.CountVisits(ctx, true)
	if err != nil {
		return nil, err
	}
	return &domain.VisitsOverview{NonOrphanVisits: nonOrphan, OrphanVisits: orphan}, nil
}

// ListVisits returns the normalized visits of a link, or orphan visits when
// id is nil, newest first.
func (s *LinkService) ListVisits(ctx context.Context, id *int64, filter domain.VisitFilter) ([]visits.NormalizedVisit, error) {
	if id != nil {
		link, err := s.repo.GetByID(ctx, *id)
		if err != nil {
			return nil, err
		}
		if link == nil {
			return nil, fmt.Errorf("link %d: %w", *id, domain.ErrNotFound)
		}
	}

	stored, err := s.repo.ListVisits(ctx, id, filter)
	if err != nil {
		return nil, err
	}

	raw := make([]visits.RawVisit, 0, len(stored))
	for _, v := range stored {
		raw = append(raw, v.Raw())
	}
	return visits.FilterBots(s.normalizer.Normalize(raw), filter.ExcludeBots), nil
}

func (s *LinkService) GetDashboard(ctx context.Context, limit int, filter domain.LinkFilter) ([]domain.Link, int64, error) {
	if limit < 1 {
		limit = s.pageSize
	}
	filter.Domain = normalizeAuthority(filter.Domain)
	return s.repo.GetDashboardStats(ctx, limit, filter)
}

func (s *LinkService) GetLinkByShortCode(ctx context.Context, authority, code string) (*domain.Link, error) {
	link, err := s.repo.GetByShortCode(ctx, normalizeAuthority(authority), code)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, fmt.Errorf("link %q: %w", code, domain.ErrNotFound)
	}
	return link, nil
}

// lookup finds the link on the given domain, falling back to the default
// domain when that domain has no link with the code.
func (s *LinkService) lookup(ctx context.Context, authority, code string) (*domain.Link, error) {
	authority = normalizeAuthority(authority)
	link, err := s.repo.GetByShortCode(ctx, authority, code)
	if err != nil {
		return nil, err
	}
	if link == nil && authority != "" {
		if link, err = s.repo.GetByShortCode(ctx, "", code); err != nil {
			return nil, err
		}
	}
	if link == nil {
		return nil, fmt.Errorf("link %q: %w", code, domain.ErrNotFound)
	}
	return link, nil
}

// normalizeAuthority maps the DEFAULT placeholder to the stored empty domain.
func normalizeAuthority(authority string) string {
	authority = strings.ToLower(strings.TrimSpace(authority))
	if strings.EqualFold(authority, domain.DefaultDomain) {
		return ""
	}
	return authority
}

// normalizeTags trims tags and drops empty and duplicated ones, keeping order.
func normalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	return out
}

func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateShortCode(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}
