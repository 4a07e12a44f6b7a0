package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/ports"
)

type RedirectRuleHandler struct {
	service ports.RedirectRuleService
}

func NewRedirectRuleHandler(service ports.RedirectRuleService) *RedirectRuleHandler {
	return &RedirectRuleHandler{service: service}
}

type setRulesRequest struct {
	Rules []domain.RedirectRule `json:"redirectRules" validate:"dive"`
}

func rulesResponse(w http.ResponseWriter, rules []domain.RedirectRule) {
	if rules == nil {
		rules = []domain.RedirectRule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"redirectRules": rules})
}

func (h *RedirectRuleHandler) GetRules(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rules, err := h.service.GetRules(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rulesResponse(w, rules)
}

func (h *RedirectRuleHandler) SetRules(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req setRulesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	rules, err := h.service.SetRules(r.Context(), id, req.Rules)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rulesResponse(w, rules)
}

// move handles both directions; index is zero based.
func (h *RedirectRuleHandler) move(delta int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid rule index", domain.ErrInvalidInput))
			return
		}

		rules, err := h.service.MoveRule(r.Context(), id, index, delta)
		if err != nil {
			writeError(w, r, err)
			return
		}

		rulesResponse(w, rules)
	}
}

func (h *RedirectRuleHandler) MoveUp() http.HandlerFunc   { return h.move(-1) }
func (h *RedirectRuleHandler) MoveDown() http.HandlerFunc { return h.move(1) }
