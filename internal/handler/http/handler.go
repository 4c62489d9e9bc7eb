package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"linkpulse/internal/domain"
	"linkpulse/internal/metrics"
	"linkpulse/internal/service"
)

// recordTimeout bounds the detached click-recording goroutine. It uses a
// fresh context because the request context dies as soon as the redirect
// response is written.
const recordTimeout = 5 * time.Second

// defaultWindowDays is the analytics window when the caller doesn't ask for
// a specific one.
const defaultWindowDays = 30

// LinkService is the slice of the link service the handler needs.
type LinkService interface {
	CreateShortLink(ctx context.Context, longURL, ownerID string) (*domain.ShortLink, error)
	Resolve(ctx context.Context, code string) (*domain.ShortLink, error)
}

// ClickService records what happened to one redirect attempt.
type ClickService interface {
	RecordClick(ctx context.Context, linkID string, access service.ClickContext) error
}

// AnalyticsService serves the read-side reports.
type AnalyticsService interface {
	GetLinkAnalytics(ctx context.Context, linkID string, days int) (*service.LinkAnalytics, error)
	GetUserDashboard(ctx context.Context, userID string, days int) (*service.UserDashboard, error)
}

// Handler holds the HTTP-facing dependencies, injected through the
// constructor.
type Handler struct {
	links     LinkService
	clicks    ClickService
	analytics AnalyticsService
	logger    *slog.Logger
	baseURL   string
}

func NewHandler(links LinkService, clicks ClickService, analytics AnalyticsService, logger *slog.Logger, baseURL string) *Handler {
	return &Handler{
		links:     links,
		clicks:    clicks,
		analytics: analytics,
		logger:    logger,
		baseURL:   baseURL,
	}
}

// Routes registers all endpoints on mux. createMiddleware wraps only the
// creation endpoint; the redirect hot path is never rate limited.
func (h *Handler) Routes(mux *http.ServeMux, createMiddleware ...func(http.Handler) http.Handler) {
	var create http.Handler = http.HandlerFunc(h.CreateLink)
	for i := len(createMiddleware) - 1; i >= 0; i-- {
		create = createMiddleware[i](create)
	}
	mux.Handle("POST /api/v1/links", create)
	mux.HandleFunc("GET /api/v1/links/{id}/analytics", h.GetLinkAnalytics)
	mux.HandleFunc("GET /api/v1/users/{id}/dashboard", h.GetUserDashboard)
	mux.HandleFunc("GET /health/live", h.HealthCheck)
	mux.HandleFunc("GET /{code}", h.Redirect)
}

type CreateLinkRequest struct {
	URL     string `json:"url"`
	OwnerID string `json:"owner_id,omitempty"`
}

type CreateLinkResponse struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	ShortURL  string     `json:"short_url"`
	LongURL   string     `json:"long_url"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreateLink handles POST /api/v1/links.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	defer r.Body.Close()

	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "URL is required")
		return
	}
	ownerID := req.OwnerID
	if ownerID == "" {
		ownerID = "anonymous"
	}

	link, err := h.links.CreateShortLink(r.Context(), req.URL, ownerID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyURL), errors.Is(err, domain.ErrInvalidURL):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to create link", "error", err, "request_id", RequestID(r.Context()))
			respondError(w, http.StatusInternalServerError, "Failed to create link")
		}
		return
	}

	respondSuccess(w, http.StatusCreated, CreateLinkResponse{
		ID:        link.ID,
		Code:      link.Code,
		ShortURL:  fmt.Sprintf("%s/%s", h.baseURL, link.Code),
		LongURL:   link.LongURL,
		CreatedAt: link.CreatedAt,
		ExpiresAt: link.ExpiresAt,
	}, "Link created")
}

// Redirect handles GET /{code}: resolve, redirect, then record the click
// off the response path. An unknown code is a 404 and records nothing; an
// expired or deactivated link records a non-redirect outcome and answers
// 410 without leaking the destination.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	code := r.PathValue("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "Short code is required")
		return
	}

	link, err := h.links.Resolve(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrLinkNotFound) {
			respondError(w, http.StatusNotFound, "Link not found")
			return
		}
		h.logger.Error("resolution failed", "code", code, "error", err)
		respondError(w, http.StatusInternalServerError, "Resolution failed")
		return
	}

	status := domain.StatusRedirected
	switch {
	case link.IsExpired():
		status = domain.StatusExpired
	case !link.IsActive:
		status = domain.StatusBlocked
	}

	latency := time.Since(start)

	if status == domain.StatusRedirected {
		// 302, not 301: links can expire or be deactivated later.
		http.Redirect(w, r, link.LongURL, http.StatusFound)
		metrics.RecordRedirect()
	} else {
		respondError(w, http.StatusGone, "Link is no longer available")
	}

	h.recordClick(link.ID, clickContextFrom(r, status, latency))
}

// recordClick persists the click without holding up the response.
func (h *Handler) recordClick(linkID string, access service.ClickContext) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		if err := h.clicks.RecordClick(ctx, linkID, access); err != nil {
			h.logger.Error("failed to record click", "link_id", linkID, "error", err)
		}
	}()
}

func clickContextFrom(r *http.Request, status domain.ClickStatus, latency time.Duration) service.ClickContext {
	query := r.URL.Query()

	return service.ClickContext{
		IPAddress:   extractIP(r),
		UserAgent:   r.UserAgent(),
		Referrer:    r.Referer(),
		UTMSource:   query.Get("utm_source"),
		UTMMedium:   query.Get("utm_medium"),
		UTMCampaign: query.Get("utm_campaign"),
		Status:      status,
		LatencyMs:   latency.Milliseconds(),
		OccurredAt:  time.Now().UTC(),
	}
}

type LinkDayResponse struct {
	Date            string  `json:"date"`
	ClicksTotal     int64   `json:"clicks_total"`
	UniqueVisitors  int64   `json:"unique_visitors"`
	BlockedAttempts int64   `json:"blocked_attempts"`
	AvgLatencyMs    float64 `json:"avg_latency_ms"`
	TopCountry      string  `json:"top_country,omitempty"`
	TopDevice       string  `json:"top_device,omitempty"`
	TopBrowser      string  `json:"top_browser,omitempty"`
	TopReferrer     string  `json:"top_referrer,omitempty"`
}

type LinkAnalyticsResponse struct {
	ID         string             `json:"id"`
	Code       string             `json:"code"`
	LongURL    string             `json:"long_url"`
	Days       []LinkDayResponse  `json:"days"`
	Totals     service.LinkTotals `json:"totals"`
	TodayLive  bool               `json:"today_live"`
	StaleHours float64            `json:"stale_hours,omitempty"`
}

type UserDayResponse struct {
	Date         string `json:"date"`
	LinksCreated int64  `json:"links_created"`
	ActiveLinks  int64  `json:"active_links"`
	TotalClicks  int64  `json:"total_clicks"`
}

type UserDashboardResponse struct {
	UserID      string            `json:"user_id"`
	Days        []UserDayResponse `json:"days"`
	TotalClicks int64             `json:"total_clicks"`
	ActiveLinks int64             `json:"active_links"`
}

// GetLinkAnalytics handles GET /api/v1/links/{id}/analytics?days=N.
func (h *Handler) GetLinkAnalytics(w http.ResponseWriter, r *http.Request) {
	linkID := r.PathValue("id")
	days := windowDays(r)

	report, err := h.analytics.GetLinkAnalytics(r.Context(), linkID, days)
	if err != nil {
		if errors.Is(err, domain.ErrLinkNotFound) {
			respondError(w, http.StatusNotFound, "Link not found")
			return
		}
		h.logger.Error("failed to load link analytics", "link_id", linkID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load analytics")
		return
	}

	response := LinkAnalyticsResponse{
		ID:         report.Link.ID,
		Code:       report.Link.Code,
		LongURL:    report.Link.LongURL,
		Days:       make([]LinkDayResponse, 0, len(report.Days)),
		Totals:     report.Totals,
		TodayLive:  report.TodayLive,
		StaleHours: report.StaleHours,
	}
	for _, day := range report.Days {
		response.Days = append(response.Days, LinkDayResponse{
			Date:            day.Date.Format("2006-01-02"),
			ClicksTotal:     day.ClicksTotal,
			UniqueVisitors:  day.UniqueVisitors,
			BlockedAttempts: day.BlockedAttempts,
			AvgLatencyMs:    day.AvgLatencyMs,
			TopCountry:      day.TopCountry,
			TopDevice:       day.TopDevice,
			TopBrowser:      day.TopBrowser,
			TopReferrer:     day.TopReferrer,
		})
	}

	respondSuccess(w, http.StatusOK, response, "")
}

// GetUserDashboard handles GET /api/v1/users/{id}/dashboard?days=N.
func (h *Handler) GetUserDashboard(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	days := windowDays(r)

	dashboard, err := h.analytics.GetUserDashboard(r.Context(), userID, days)
	if err != nil {
		h.logger.Error("failed to load dashboard", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	response := UserDashboardResponse{
		UserID:      dashboard.UserID,
		Days:        make([]UserDayResponse, 0, len(dashboard.Days)),
		TotalClicks: dashboard.TotalClicks,
		ActiveLinks: dashboard.ActiveLinks,
	}
	for _, day := range dashboard.Days {
		response.Days = append(response.Days, UserDayResponse{
			Date:         day.Date.Format("2006-01-02"),
			LinksCreated: day.LinksCreated,
			ActiveLinks:  day.ActiveLinks,
			TotalClicks:  day.TotalClicks,
		})
	}

	respondSuccess(w, http.StatusOK, response, "")
}

// windowDays parses ?days=N, clamped to [1, 365].
func windowDays(r *http.Request) int {
	days := defaultWindowDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			days = parsed
		}
	}
	if days > 365 {
		days = 365
	}
	return days
}

// HealthCheck handles GET /health/live.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}
