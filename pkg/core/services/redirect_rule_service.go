package services

import (
	"context"
	"fmt"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/ports"
)

type RedirectRuleService struct {
	repo ports.LinkRepository
}

func NewRedirectRuleService(repo ports.LinkRepository) *RedirectRuleService {
	return &RedirectRuleService{repo: repo}
}

func (s *RedirectRuleService) link(ctx context.Context, linkID int64) error {
	link, err := s.repo.GetByID(ctx, linkID)
	if err != nil {
		return err
	}
	if link == nil {
		return fmt.Errorf("link %d: %w", linkID, domain.ErrNotFound)
	}
	return nil
}

func (s *RedirectRuleService) GetRules(ctx context.Context, linkID int64) ([]domain.RedirectRule, error) {
	if err := s.link(ctx, linkID); err != nil {
		return nil, err
	}
	return s.repo.GetRedirectRules(ctx, linkID)
}

// SetRules replaces all rules of the link. Priorities follow the given order.
func (s *RedirectRuleService) SetRules(ctx context.Context, linkID int64, rules []domain.RedirectRule) ([]domain.RedirectRule, error) {
	if err := s.link(ctx, linkID); err != nil {
		return nil, err
	}
	for i, r := range rules {
		if len(r.Conditions) == 0 {
			return nil, fmt.Errorf("%w: rule %d has no conditions", domain.ErrInvalidInput, i+1)
		}
	}

	rules = domain.Reprioritize(append([]domain.RedirectRule{}, rules...))
	if err := s.repo.SetRedirectRules(ctx, linkID, rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// MoveRule swaps the rule at index with its neighbour delta positions away
// (-1 moves it up, 1 down). Moving past either end leaves the rules as they
// are.
func (s *RedirectRuleService) MoveRule(ctx context.Context, linkID int64, index, delta int) ([]domain.RedirectRule, error) {
	rules, err := s.GetRules(ctx, linkID)
	if err != nil {
		return nil, err
	}

	moved := domain.SwapRules(rules, index, index+delta)
	if err := s.repo.SetRedirectRules(ctx, linkID, moved); err != nil {
		return nil, err
	}
	return moved, nil
}
