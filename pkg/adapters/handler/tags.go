package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/ports"
)

type TagHandler struct {
	service ports.TagService
}

func NewTagHandler(service ports.TagService) *TagHandler {
	return &TagHandler{service: service}
}

type tagColorRequest struct {
	Color string `json:"color" validate:"required,hexcolor"`
}

type renameTagRequest struct {
	Name string `json:"name" validate:"required"`
}

func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tags == nil {
		tags = []domain.Tag{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": tags})
}

func (h *TagHandler) SetColor(w http.ResponseWriter, r *http.Request) {
	var req tagColorRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tag, err := h.service.SetTagColor(r.Context(), chi.URLParam(r, "tag"), req.Color)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tag)
}

func (h *TagHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renameTagRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.RenameTag(r.Context(), chi.URLParam(r, "tag"), req.Name); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTag(r.Context(), chi.URLParam(r, "tag")); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
