package services

import (
	"context"
	"errors"
	"testing"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/colors"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/domain"
)

func TestTagService(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	links := NewLinkService(repo)
	links.Shorten(ctx, "https://example.com", "", []string{"go", "news"}, "a", "")
	links.Shorten(ctx, "https://example.org", "", []string{"go"}, "b", "")

	s := NewTagService(repo, colors.NewGenerator(nil))

	tags, err := s.ListTags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 || tags[0].Name != "go" || tags[0].LinksCount != 2 {
		t.Fatalf("unexpected tags %+v", tags)
	}
	for _, tag := range tags {
		if tag.Color == "" {
			t.Errorf("tag %q has no color", tag.Name)
		}
	}

	tag, err := s.SetTagColor(ctx, "Go", "#FFFFFF")
	if err != nil {
		t.Fatal(err)
	}
	if tag.Color != "#FFFFFF" || !tag.IsLight {
		t.Errorf("unexpected tag %+v", tag)
	}
	if _, err := s.SetTagColor(ctx, " ", "#000000"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	if err := s.RenameTag(ctx, "go", "golang"); err != nil {
		t.Fatal(err)
	}
	tags, _ = s.ListTags(ctx)
	if tags[0].Name != "golang" || tags[0].Color != "#FFFFFF" {
		t.Errorf("renamed tag should keep its color, got %+v", tags[0])
	}
	if err := s.RenameTag(ctx, "", "x"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	if err := s.DeleteTag(ctx, "news"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteTag(ctx, "news"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
