package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/services"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, err := sqlite.NewSQLiteRepository("file:cli_src?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	now := time.Now()
	for _, l := range []domain.Link{
		{ShortCode: "abc", OriginalURL: "https://example.com", Tags: []string{"go"}, CreatedAt: now, UpdatedAt: now},
		{Domain: "s.test", ShortCode: "abc", OriginalURL: "https://example.org", CreatedAt: now, UpdatedAt: now},
		{ShortCode: "gone", OriginalURL: "https://example.net", CreatedAt: now, UpdatedAt: now},
	} {
		if err := src.Create(ctx, &l); err != nil {
			t.Fatal(err)
		}
		if l.ShortCode == "gone" {
			if err := src.Delete(ctx, l.ID); err != nil {
				t.Fatal(err)
			}
		}
	}

	var buf bytes.Buffer
	doExport(ctx, src, &buf)

	var links []domain.Link
	if err := json.Unmarshal(buf.Bytes(), &links); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}

	dst, err := sqlite.NewSQLiteRepository("file:cli_dst?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Close()

	if n := importLinks(ctx, dst, links); n != 2 {
		t.Errorf("imported %d links, want 2", n)
	}
	if n := importLinks(ctx, dst, links); n != 0 {
		t.Errorf("second import created %d links, want 0", n)
	}
	if l, _ := dst.GetByShortCode(ctx, "s.test", "abc"); l == nil || l.OriginalURL != "https://example.org" {
		t.Errorf("unexpected imported link %+v", l)
	}
	if l, _ := dst.GetByShortCode(ctx, "", "gone"); l != nil {
		t.Errorf("deleted link was imported as %+v", l)
	}
}

func TestLinksAndVisitsCSV(t *testing.T) {
	ctx := context.Background()
	repo, err := sqlite.NewSQLiteRepository("file:cli_csv?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()
	service := services.NewLinkService(repo)

	var buf bytes.Buffer
	doVisitsCSV(ctx, service, "", "", false, &buf)
	if buf.Len() != 0 {
		t.Errorf("expected no output without visits, got %q", buf.String())
	}

	if _, err := service.Shorten(ctx, "https://example.com", "Example", []string{"go"}, "abc", ""); err != nil {
		t.Fatal(err)
	}
	doLinksCSV(ctx, repo, "http://localhost:8080", domain.LinkFilter{Tag: "go"}, &buf)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], "http://localhost:8080/open/abc") {
		t.Errorf("unexpected links CSV %q", buf.String())
	}
}

func TestImportOnlyDomain(t *testing.T) {
	ctx := context.Background()
	repo, err := sqlite.NewSQLiteRepository("file:cli_domain?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()

	links := []domain.Link{
		{ShortCode: "abc", OriginalURL: "https://example.com"},
		{Domain: "s.test", ShortCode: "xyz", OriginalURL: "https://example.org"},
	}
	b, err := json.Marshal(links)
	if err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(t.TempDir(), "links.json")
	if err := os.WriteFile(file, b, 0o600); err != nil {
		t.Fatal(err)
	}

	doImport(ctx, repo, file, domain.DefaultDomain)
	if l, _ := repo.GetByShortCode(ctx, "", "abc"); l == nil {
		t.Error("default domain link was not imported")
	}
	if l, _ := repo.GetByShortCode(ctx, "s.test", "xyz"); l != nil {
		t.Error("link of another domain was imported")
	}
}

func TestLinksListing(t *testing.T) {
	ctx := context.Background()
	repo, err := sqlite.NewSQLiteRepository("file:cli_list?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()
	service := services.NewLinkService(repo)

	for _, code := range []string{"one", "two", "three"} {
		if _, err := service.Shorten(ctx, "https://example.com/"+code, "", nil, code, ""); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	doLinks(ctx, service, 1, 2, domain.LinkFilter{}, &buf)
	out := buf.String()
	if !strings.HasPrefix(out, "ID") || strings.Count(out, "DEFAULT__") != 2 {
		t.Errorf("unexpected listing %q", out)
	}
	if !strings.HasSuffix(out, "Pages: [1] 2\n") {
		t.Errorf("missing page markers in %q", out)
	}
}
