package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/logging"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("could not encode response")
	}
}

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	http.Error(w, err.Error(), status)
}

// decode reads a JSON body into v and validates it.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}
	return nil
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid ID", domain.ErrInvalidInput)
	}
	return id, nil
}

func linkFilter(r *http.Request) domain.LinkFilter {
	q := r.URL.Query()
	return domain.LinkFilter{
		Search: q.Get("search"),
		Tag:    q.Get("tag"),
		Domain: q.Get("domain"),
	}
}

// visitFilter reads startDate, endDate and excludeBots. Dates are either
// RFC 3339 timestamps or plain days; a plain endDate covers the whole day.
func visitFilter(r *http.Request) (domain.VisitFilter, error) {
	q := r.URL.Query()
	var f domain.VisitFilter

	if s := q.Get("startDate"); s != "" {
		t, _, err := parseDate(s)
		if err != nil {
			return f, err
		}
		f.StartDate = &t
	}
	if s := q.Get("endDate"); s != "" {
		t, dayOnly, err := parseDate(s)
		if err != nil {
			return f, err
		}
		if dayOnly {
			t = t.Add(24*time.Hour - time.Second)
		}
		f.EndDate = &t
	}
	f.ExcludeBots, _ = strconv.ParseBool(q.Get("excludeBots"))
	return f, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("%w: invalid date %q", domain.ErrInvalidInput, s)
}

func requestHost(r *http.Request) string {
	host := r.Host
	if i := strings.LastIndex(host, ":"); i > 0 && !strings.HasSuffix(host, "]") {
		host = host[:i]
	}
	return strings.ToLower(host)
}
