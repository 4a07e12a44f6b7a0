package services

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/visits"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/ports"
)

// memRepo is an in-memory LinkRepository for service tests.
type memRepo struct {
	mu     sync.Mutex
	links  []*domain.Link
	visits []domain.Visit
	rules  map[int64][]domain.RedirectRule
}

var _ ports.LinkRepository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{rules: map[int64][]domain.RedirectRule{}}
}

func (m *memRepo) Create(ctx context.Context, link *domain.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.Domain == link.Domain && l.ShortCode == link.ShortCode {
			return domain.ErrConflict
		}
	}
	link.ID = int64(len(m.links) + 1)
	c := *link
	m.links = append(m.links, &c)
	return nil
}

func (m *memRepo) find(fn func(*domain.Link) bool) *domain.Link {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.DeletedAt == nil && fn(l) {
			c := *l
			return &c
		}
	}
	return nil
}

func (m *memRepo) GetByShortCode(ctx context.Context, authority, code string) (*domain.Link, error) {
	return m.find(func(l *domain.Link) bool { return l.Domain == authority && l.ShortCode == code }), nil
}

func (m *memRepo) GetByID(ctx context.Context, id int64) (*domain.Link, error) {
	return m.find(func(l *domain.Link) bool { return l.ID == id }), nil
}

func (m *memRepo) Update(ctx context.Context, link *domain.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.links {
		if l.ID == link.ID {
			c := *link
			m.links[i] = &c
		}
	}
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.ID == id && l.DeletedAt == nil {
			now := l.UpdatedAt
			l.DeletedAt = &now
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memRepo) filtered(filter domain.LinkFilter) []domain.Link {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Link
	for _, l := range m.links {
		if l.DeletedAt != nil ||
			(filter.Tag != "" && !slices.Contains(l.Tags, filter.Tag)) ||
			(filter.Domain != "" && l.Domain != filter.Domain) ||
			(filter.Search != "" && !strings.Contains(l.Title+l.OriginalURL+l.ShortCode, filter.Search)) {
			continue
		}
		out = append(out, *l)
	}
	return out
}

func (m *memRepo) List(ctx context.Context, limit, offset int, filter domain.LinkFilter) ([]domain.Link, error) {
	all := m.filtered(filter)
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (m *memRepo) Count(ctx context.Context, filter domain.LinkFilter) (int64, error) {
	return int64(len(m.filtered(filter))), nil
}

func (m *memRepo) Dump(ctx context.Context) ([]domain.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Link
	for _, l := range m.links {
		out = append(out, *l)
	}
	return out, nil
}

func (m *memRepo) ListDomains(ctx context.Context) ([]string, error) {
	var out []string
	for _, l := range m.filtered(domain.LinkFilter{}) {
		if l.Domain != "" && !slices.Contains(out, l.Domain) {
			out = append(out, l.Domain)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (m *memRepo) RecordVisit(ctx context.Context, visit *domain.Visit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	visit.ID = int64(len(m.visits) + 1)
	m.visits = append(m.visits, *visit)
	if visit.LinkID != nil {
		for _, l := range m.links {
			if l.ID == *visit.LinkID {
				l.Clicks++
			}
		}
	}
	return nil
}

func (m *memRepo) ListVisits(ctx context.Context, linkID *int64, filter domain.VisitFilter) ([]domain.Visit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Visit
	for _, v := range slices.Backward(m.visits) {
		switch {
		case linkID == nil && v.LinkID != nil,
			linkID != nil && (v.LinkID == nil || *v.LinkID != *linkID),
			filter.ExcludeBots && v.PotentialBot,
			filter.StartDate != nil && v.CreatedAt.Before(*filter.StartDate),
			filter.EndDate != nil && v.CreatedAt.After(*filter.EndDate):
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *memRepo) GetDailyClicks(ctx context.Context, linkID *int64, filter domain.VisitFilter) ([]domain.DailyClick, error) {
	list, _ := m.ListVisits(ctx, linkID, filter)
	daily := []domain.DailyClick{}
	for _, v := range list {
		day := v.CreatedAt.UTC().Format("2006-01-02")
		if n := len(daily); n > 0 && daily[n-1].Date == day {
			daily[n-1].Count++
			continue
		}
		daily = append(daily, domain.DailyClick{Date: day, Count: 1})
	}
	return daily, nil
}

func (m *memRepo) CountVisits(ctx context.Context, orphan bool) (visits.Highlights, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var h visits.Highlights
	for _, v := range m.visits {
		if (v.LinkID == nil) != orphan {
			continue
		}
		h.Total++
		if v.PotentialBot {
			h.Bots++
		} else {
			h.NonBots++
		}
	}
	return h, nil
}

func (m *memRepo) GetDashboardStats(ctx context.Context, limit int, filter domain.LinkFilter) ([]domain.Link, int64, error) {
	all := m.filtered(filter)
	var total int64
	for _, l := range all {
		total += l.Clicks
	}
	slices.SortStableFunc(all, func(a, b domain.Link) int { return int(b.Clicks - a.Clicks) })
	return all[:min(limit, len(all))], total, nil
}

func (m *memRepo) ListTags(ctx context.Context) ([]domain.Tag, error) {
	counts := map[string]*domain.Tag{}
	var names []string
	for _, l := range m.filtered(domain.LinkFilter{}) {
		for _, t := range l.Tags {
			if counts[t] == nil {
				counts[t] = &domain.Tag{Name: t}
				names = append(names, t)
			}
			counts[t].LinksCount++
			counts[t].Visits += l.Clicks
		}
	}
	slices.Sort(names)
	tags := []domain.Tag{}
	for _, n := range names {
		tags = append(tags, *counts[n])
	}
	return tags, nil
}

func (m *memRepo) rewriteTags(tag string, fn func(string) (string, bool)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := false
	for _, l := range m.links {
		var out []string
		for _, t := range l.Tags {
			if t == tag {
				found = true
				if nt, keep := fn(t); keep && !slices.Contains(out, nt) {
					out = append(out, nt)
				}
				continue
			}
			out = append(out, t)
		}
		l.Tags = out
	}
	if !found {
		return domain.ErrNotFound
	}
	return nil
}

func (m *memRepo) RenameTag(ctx context.Context, oldName, newName string) error {
	return m.rewriteTags(oldName, func(string) (string, bool) { return newName, true })
}

func (m *memRepo) DeleteTag(ctx context.Context, name string) error {
	return m.rewriteTags(name, func(string) (string, bool) { return "", false })
}

func (m *memRepo) GetRedirectRules(ctx context.Context, linkID int64) ([]domain.RedirectRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.rules[linkID]), nil
}

func (m *memRepo) SetRedirectRules(ctx context.Context, linkID int64, rules []domain.RedirectRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[linkID] = slices.Clone(rules)
	return nil
}
