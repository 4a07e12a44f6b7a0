package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/colors"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/ports"
)

type TagService struct {
	repo ports.LinkRepository

	// colors.Generator has no locking of its own.
	mu     sync.Mutex
	colors *colors.Generator
}

func NewTagService(repo ports.LinkRepository, gen *colors.Generator) *TagService {
	if gen == nil {
		gen = colors.NewGenerator(nil)
	}
	return &TagService{repo: repo, colors: gen}
}

func (s *TagService) decorate(t *domain.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Color = s.colors.ColorFor(t.Name)
	t.IsLight = s.colors.IsLight(t.Name)
}

func (s *TagService) ListTags(ctx context.Context) ([]domain.Tag, error) {
	tags, err := s.repo.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tags {
		s.decorate(&tags[i])
	}
	return tags, nil
}

func (s *TagService) SetTagColor(ctx context.Context, tag, color string) (domain.Tag, error) {
	if strings.TrimSpace(tag) == "" {
		return domain.Tag{}, fmt.Errorf("%w: tag is required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	s.colors.SetColorFor(tag, color)
	s.mu.Unlock()

	t := domain.Tag{Name: tag}
	s.decorate(&t)
	return t, nil
}

// RenameTag renames the tag on every link. The color moves with the tag.
func (s *TagService) RenameTag(ctx context.Context, oldName, newName string) error {
	oldName, newName = strings.TrimSpace(oldName), strings.TrimSpace(newName)
	if oldName == "" || newName == "" {
		return fmt.Errorf("%w: old and new tag names are required", domain.ErrInvalidInput)
	}
	if err := s.repo.RenameTag(ctx, oldName, newName); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.colors.SetColorFor(newName, s.colors.ColorFor(oldName))
	return nil
}

func (s *TagService) DeleteTag(ctx context.Context, name string) error {
	return s.repo.DeleteTag(ctx, strings.TrimSpace(name))
}
