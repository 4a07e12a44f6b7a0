package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/visits"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository("file:" + t.Name() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	repo.db.SetMaxOpenConns(1)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createLink(t *testing.T, repo *SQLiteRepository, authority, code string, tags ...string) *domain.Link {
	t.Helper()
	now := time.Now()
	l := &domain.Link{
		Domain:      authority,
		OriginalURL: "https://example.com/" + code,
		ShortCode:   code,
		Title:       code,
		Tags:        tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(context.Background(), l); err != nil {
		t.Fatalf("Create(%s/%s): %v", authority, code, err)
	}
	return l
}

func TestLocalDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"file:db.sqlite", "file:db.sqlite?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"},
		{"file:db.sqlite?_pragma=busy_timeout(100)", "file:db.sqlite?_pragma=busy_timeout(100)&_pragma=journal_mode(WAL)&_txlock=immediate"},
	}
	for _, tt := range tests {
		if got := localDSN(tt.in); got != tt.want {
			t.Errorf("localDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConcurrentVisitsOnFileDatabase(t *testing.T) {
	repo, err := NewSQLiteRepository("file:" + filepath.Join(t.TempDir(), "db.sqlite"))
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	link := createLink(t, repo, "", "busy")
	ctx := context.Background()

	const n = 100
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.RecordVisit(ctx, &domain.Visit{LinkID: &link.ID, UserAgent: "Mozilla/5.0", CreatedAt: time.Now()})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("RecordVisit: %v", err)
		}
	}

	got, err := repo.GetByID(ctx, link.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Clicks != n {
		t.Errorf("Clicks = %d, want %d", got.Clicks, n)
	}
	h, err := repo.CountVisits(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if h.Total != n {
		t.Errorf("stored visits = %d, want %d", h.Total, n)
	}
}

func TestLinksAreScopedByDomain(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	def := createLink(t, repo, "", "abc")
	other := createLink(t, repo, "s.test", "abc")
	if def.ID == 0 || other.ID == 0 || def.ID == other.ID {
		t.Fatalf("unexpected ids %d and %d", def.ID, other.ID)
	}

	dup := &domain.Link{ShortCode: "abc", OriginalURL: "https://x.test", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := repo.Create(ctx, dup); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}

	got, err := repo.GetByShortCode(ctx, "s.test", "abc")
	if err != nil || got == nil {
		t.Fatalf("GetByShortCode: %v, %v", got, err)
	}
	if got.ID != other.ID {
		t.Errorf("got link %d, want %d", got.ID, other.ID)
	}

	missing, err := repo.GetByShortCode(ctx, "nope.test", "abc")
	if err != nil || missing != nil {
		t.Errorf("expected no link, got %v, %v", missing, err)
	}

	domains, err := repo.ListDomains(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(domains, []string{"s.test"}) {
		t.Errorf("ListDomains = %v", domains)
	}
}

func TestListFiltersAndSoftDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	createLink(t, repo, "", "one", "go", "news")
	two := createLink(t, repo, "", "two", "go")
	createLink(t, repo, "s.test", "three")

	tests := []struct {
		name   string
		filter domain.LinkFilter
		want   int64
	}{
		{"all", domain.LinkFilter{}, 3},
		{"tag", domain.LinkFilter{Tag: "go"}, 2},
		{"search", domain.LinkFilter{Search: "thr"}, 1},
		{"domain", domain.LinkFilter{Domain: "s.test"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := repo.Count(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if n != tt.want {
				t.Errorf("Count = %d, want %d", n, tt.want)
			}
			links, err := repo.List(ctx, 10, 0, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if int64(len(links)) != tt.want {
				t.Errorf("List returned %d links, want %d", len(links), tt.want)
			}
		})
	}

	if err := repo.Delete(ctx, two.ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, two.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
	if l, _ := repo.GetByID(ctx, two.ID); l != nil {
		t.Error("deleted link must not be returned")
	}
	all, err := repo.Dump(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("Dump should include deleted links, got %d", len(all))
	}
}

func TestRecordAndListVisits(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	link := createLink(t, repo, "", "abc")

	lat, long := visits.NewCoordinate(52.52), visits.NewCoordinate(13.4)
	now := time.Now().UTC().Truncate(time.Second)
	records := []*domain.Visit{
		{
			LinkID:    &link.ID,
			Referer:   "https://google.com",
			UserAgent: "Mozilla/5.0",
			Location: &visits.Location{
				CountryCode: "DE", CountryName: "Germany", CityName: "Berlin",
				Latitude: &lat, Longitude: &long,
			},
			CreatedAt: now.Add(-48 * time.Hour),
		},
		{LinkID: &link.ID, UserAgent: "curl/8.0", PotentialBot: true, CreatedAt: now},
		{VisitedURL: "https://s.test/nope", Type: visits.OrphanInvalidShortURL, CreatedAt: now},
	}
	for _, v := range records {
		if err := repo.RecordVisit(ctx, v); err != nil {
			t.Fatalf("RecordVisit: %v", err)
		}
	}

	got, err := repo.GetByID(ctx, link.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Clicks != 2 {
		t.Errorf("Clicks = %d, want 2", got.Clicks)
	}

	list, err := repo.ListVisits(ctx, &link.ID, domain.VisitFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 visits, got %d", len(list))
	}
	if !list[0].PotentialBot || !list[0].CreatedAt.Equal(now) {
		t.Errorf("expected newest visit first, got %+v", list[0])
	}
	loc := list[1].Location
	if loc == nil || loc.CityName != "Berlin" || loc.Latitude == nil || loc.Latitude.Float() != 52.52 {
		t.Errorf("location not stored: %+v", loc)
	}

	noBots, _ := repo.ListVisits(ctx, &link.ID, domain.VisitFilter{ExcludeBots: true})
	if len(noBots) != 1 {
		t.Errorf("ExcludeBots: got %d visits", len(noBots))
	}
	since := now.Add(-time.Hour)
	recent, _ := repo.ListVisits(ctx, &link.ID, domain.VisitFilter{StartDate: &since})
	if len(recent) != 1 {
		t.Errorf("StartDate: got %d visits", len(recent))
	}

	orphans, err := repo.ListVisits(ctx, nil, domain.VisitFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(orphans) != 1 || orphans[0].Type != visits.OrphanInvalidShortURL || orphans[0].VisitedURL != "https://s.test/nope" {
		t.Errorf("unexpected orphans %+v", orphans)
	}

	regular, err := repo.CountVisits(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if regular != (visits.Highlights{Total: 2, NonBots: 1, Bots: 1}) {
		t.Errorf("CountVisits(false) = %+v", regular)
	}
	orphan, _ := repo.CountVisits(ctx, true)
	if orphan.Total != 1 {
		t.Errorf("CountVisits(true) = %+v", orphan)
	}

	daily, err := repo.GetDailyClicks(ctx, &link.ID, domain.VisitFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(daily) != 2 || daily[0].Date != now.Format("2006-01-02") {
		t.Errorf("unexpected daily clicks %+v", daily)
	}

	top, total, err := repo.GetDashboardStats(ctx, 5, domain.LinkFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(top) != 1 {
		t.Errorf("GetDashboardStats = %d links, %d clicks", len(top), total)
	}
}

func TestTags(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	createLink(t, repo, "", "one", "go", "news")
	createLink(t, repo, "", "two", "go")

	tags, err := repo.ListTags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 || tags[0].Name != "go" || tags[0].LinksCount != 2 || tags[1].Name != "news" {
		t.Errorf("unexpected tags %+v", tags)
	}

	if err := repo.RenameTag(ctx, "news", "go"); err != nil {
		t.Fatal(err)
	}
	one, _ := repo.GetByShortCode(ctx, "", "one")
	if !reflect.DeepEqual(one.Tags, []string{"go"}) {
		t.Errorf("rename should merge duplicated tags, got %v", one.Tags)
	}

	if err := repo.DeleteTag(ctx, "go"); err != nil {
		t.Fatal(err)
	}
	tags, _ = repo.ListTags(ctx)
	if len(tags) != 0 {
		t.Errorf("expected no tags, got %+v", tags)
	}
	if err := repo.DeleteTag(ctx, "go"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRedirectRules(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	link := createLink(t, repo, "", "abc")

	lang := domain.RedirectRule{
		LongURL:    "https://example.com/es",
		Priority:   1,
		Conditions: []domain.RedirectCondition{{Type: "language", MatchValue: "es"}},
	}
	device := domain.RedirectRule{
		LongURL:    "https://example.com/android",
		Priority:   2,
		Conditions: []domain.RedirectCondition{{Type: "device", MatchValue: "android"}},
	}
	if err := repo.SetRedirectRules(ctx, link.ID, []domain.RedirectRule{device, lang}); err != nil {
		t.Fatal(err)
	}

	rules, err := repo.GetRedirectRules(ctx, link.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rules, []domain.RedirectRule{lang, device}) {
		t.Errorf("rules should come back by priority, got %+v", rules)
	}

	if err := repo.SetRedirectRules(ctx, link.ID, nil); err != nil {
		t.Fatal(err)
	}
	rules, _ = repo.GetRedirectRules(ctx, link.ID)
	if len(rules) != 0 {
		t.Errorf("expected rules to be cleared, got %+v", rules)
	}
}

func TestTagColorStore(t *testing.T) {
	repo := newTestRepo(t)
	store := repo.TagColors()

	empty, err := store.Load()
	if err != nil || len(empty) != 0 {
		t.Fatalf("Load = %v, %v", empty, err)
	}

	want := map[string]string{"go": "#00ADD8", "news": "#FF0000"}
	if err := store.Save(want); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(map[string]string{"go": "#00ADD8"}); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, map[string]string{"go": "#00ADD8"}) {
		t.Errorf("Load = %v", got)
	}
}
