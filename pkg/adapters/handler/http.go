package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/adapters/export"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/visits"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/logging"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/metrics"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/ports"
)

// exportPageSize is the page size used when walking all links for a CSV export.
const exportPageSize = 500

// 1x1 transparent GIF served by the tracking pixel.
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x01, 0x44, 0x00, 0x3b,
}

type HTTPHandler struct {
	service     ports.LinkService
	baseURL     string
	defaultHost string
}

func NewHTTPHandler(service ports.LinkService, baseURL string) *HTTPHandler {
	h := &HTTPHandler{service: service, baseURL: baseURL}
	if u, err := url.Parse(baseURL); err == nil {
		h.defaultHost = strings.ToLower(u.Hostname())
	}
	return h
}

// CreateLinkRequest payload
type CreateLinkRequest struct {
	OriginalURL string   `json:"original_url" validate:"required,url"`
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	CustomCode  string   `json:"custom_code,omitempty" validate:"omitempty,max=64,excludesall=/?#,excludes=__"`
	Domain      string   `json:"domain,omitempty" validate:"omitempty,hostname|eq=DEFAULT"`
}

// UpdateLinkRequest payload
type UpdateLinkRequest struct {
	OriginalURL string   `json:"original_url,omitempty" validate:"omitempty,url"`
	Title       string   `json:"title,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// authority returns the domain a public request was made on, empty for the
// default one.
func (h *HTTPHandler) authority(r *http.Request) string {
	host := requestHost(r)
	if host == h.defaultHost {
		return ""
	}
	return host
}

func visitRequest(r *http.Request) ports.VisitRequest {
	return ports.VisitRequest{
		Referer:   r.Header.Get("Referer"),
		UserAgent: r.UserAgent(),
		IP:        r.RemoteAddr,
	}
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// Create Link
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	link, err := h.service.Shorten(r.Context(), req.OriginalURL, req.Title, req.Tags, req.CustomCode, req.Domain)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, link)
}

// Redirect to original URL
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "short_code")
	authority := h.authority(r)

	longURL, err := h.service.Resolve(r.Context(), authority, code, domain.RequestInfo{
		UserAgent:      r.UserAgent(),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		Query:          r.URL.Query(),
	})
	if errors.Is(err, domain.ErrNotFound) {
		metrics.Redirects.WithLabelValues("not_found").Inc()
		if !noStat(r) {
			h.trackOrphan(r, visits.OrphanInvalidShortURL)
		}
		http.Error(w, "Link not found", http.StatusNotFound)
		return
	}
	if err != nil {
		metrics.Redirects.WithLabelValues("error").Inc()
		writeError(w, r, err)
		return
	}
	metrics.Redirects.WithLabelValues("found").Inc()

	if !noStat(r) {
		h.track(r.Context(), authority, code, visitRequest(r))
	}

	http.Redirect(w, r, longURL, http.StatusFound)
}

// Track records a visit and answers with a transparent pixel, for places
// where a redirect can't be used.
func (h *HTTPHandler) Track(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "short_code")
	authority := h.authority(r)

	if _, err := h.service.Resolve(r.Context(), authority, code, domain.RequestInfo{}); err != nil {
		if errors.Is(err, domain.ErrNotFound) && !noStat(r) {
			h.trackOrphan(r, visits.OrphanInvalidShortURL)
		}
		writeError(w, r, err)
		return
	}
	if !noStat(r) {
		h.track(r.Context(), authority, code, visitRequest(r))
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(trackingPixel)
}

// noStat reports whether the "no_stat" query param asks to skip tracking.
func noStat(r *http.Request) bool {
	return r.URL.Query().Get("no_stat") != ""
}

// track stores the visit in the background; the request context is
// cancelled once the response is sent.
func (h *HTTPHandler) track(ctx context.Context, authority, code string, req ports.VisitRequest) {
	log := logging.Ctx(ctx)
	go func() {
		if err := h.service.RecordVisit(context.Background(), authority, code, req); err != nil {
			log.Warn().Err(err).Str("short_code", code).Msg("could not record visit")
		}
	}()
}

func (h *HTTPHandler) trackOrphan(r *http.Request, typ visits.OrphanVisitType) {
	visitedURL, req, log := requestURL(r), visitRequest(r), logging.Ctx(r.Context())
	go func() {
		if err := h.service.RecordOrphanVisit(context.Background(), visitedURL, typ, req); err != nil {
			log.Warn().Err(err).Str("type", string(typ)).Msg("could not record orphan visit")
		}
	}()
}

// BaseURL handles requests to the root of a short domain.
func (h *HTTPHandler) BaseURL(w http.ResponseWriter, r *http.Request) {
	h.trackOrphan(r, visits.OrphanBaseURL)
	http.NotFound(w, r)
}

// NotFound handles any other unmatched path.
func (h *HTTPHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.trackOrphan(r, visits.OrphanRegularNotFound)
	http.NotFound(w, r)
}

// Lookup finds a link by a "<domain>__<code>" identifier.
func (h *HTTPHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	id, err := domain.QueryToIdentifier(r.URL.Query().Get("shortUrl"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var authority string
	if id.Domain != nil {
		authority = *id.Domain
	}
	link, err := h.service.GetLinkByShortCode(r.Context(), authority, id.ShortCode)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, link)
}

// Get Stats for a Link
func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter, err := visitFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	stats, err := h.service.GetLinkStats(r.Context(), id, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *HTTPHandler) OrphanStats(w http.ResponseWriter, r *http.Request) {
	filter, err := visitFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	stats, err := h.service.GetOrphanStats(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *HTTPHandler) VisitsOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.GetVisitsOverview(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, overview)
}

// linkVisits lists the normalized visits of the link in the URL, or orphan
// visits when orphan is set.
func (h *HTTPHandler) linkVisits(r *http.Request, orphan bool) ([]visits.NormalizedVisit, error) {
	var id *int64
	if !orphan {
		linkID, err := idParam(r)
		if err != nil {
			return nil, err
		}
		id = &linkID
	}

	filter, err := visitFilter(r)
	if err != nil {
		return nil, err
	}
	return h.service.ListVisits(r.Context(), id, filter)
}

func (h *HTTPHandler) visitsJSON(orphan bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := h.linkVisits(r, orphan)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if list == nil {
			list = []visits.NormalizedVisit{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": list})
	}
}

func (h *HTTPHandler) visitsCSV(orphan bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := h.linkVisits(r, orphan)
		if err != nil {
			writeError(w, r, err)
			return
		}

		var buf bytes.Buffer
		ok, err := export.WriteVisits(&buf, list)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeCSV(w, "visits", ok, buf.Bytes())
	}
}

// ExportLinks writes every link matching the listing filters as CSV.
func (h *HTTPHandler) ExportLinks(w http.ResponseWriter, r *http.Request) {
	filter := linkFilter(r)

	var all []domain.Link
	for page := 1; ; page++ {
		links, p, err := h.service.ListLinks(r.Context(), page, exportPageSize, filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		all = append(all, links...)
		if page >= p.PagesCount {
			break
		}
	}

	var buf bytes.Buffer
	ok, err := export.WriteShortURLs(&buf, h.baseURL, all)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCSV(w, "short_urls", ok, buf.Bytes())
}

func writeCSV(w http.ResponseWriter, name string, ok bool, body []byte) {
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(name, time.Now())+`"`)
	_, _ = w.Write(body)
}

// Get Dashboard
func (h *HTTPHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	links, total, err := h.service.GetDashboard(r.Context(), limit, linkFilter(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if links == nil {
		links = []domain.Link{}
	}

	resp := map[string]any{
		"top_links":           links,
		"total_system_clicks": total,
	}
	writeJSON(w, http.StatusOK, resp)
}

// List Links
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	links, paginator, err := h.service.ListLinks(r.Context(), page, limit, linkFilter(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if links == nil {
		links = []domain.Link{}
	}

	resp := map[string]any{
		"data":       links,
		"pagination": paginator,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) Domains(w http.ResponseWriter, r *http.Request) {
	domains, err := h.service.ListDomains(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": domains})
}

// Update Link
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req UpdateLinkRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	link, err := h.service.UpdateLink(r.Context(), id, req.OriginalURL, req.Title, req.Tags)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, link)
}

// Delete Link
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.DeleteLink(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().Int64("id", id).Str("user", UserEmail(r.Context())).Msg("link deleted")

	w.WriteHeader(http.StatusNoContent)
}
