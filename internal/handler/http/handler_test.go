package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"linkpulse/internal/domain"
	"linkpulse/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Stub services. The handler tests only care about routing, status codes
// and the shape of what gets handed to the services.

type stubLinkService struct {
	created *domain.ShortLink
	link    *domain.ShortLink
	err     error
}

func (s *stubLinkService) CreateShortLink(ctx context.Context, longURL, ownerID string) (*domain.ShortLink, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = &domain.ShortLink{
		ID:       "id-1",
		Code:     "abc1234",
		LongURL:  longURL,
		OwnerID:  ownerID,
		IsActive: true,
	}
	return s.created, nil
}

func (s *stubLinkService) Resolve(ctx context.Context, code string) (*domain.ShortLink, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.link, nil
}

type stubClickService struct {
	recorded chan service.ClickContext
}

func newStubClickService() *stubClickService {
	return &stubClickService{recorded: make(chan service.ClickContext, 1)}
}

func (s *stubClickService) RecordClick(ctx context.Context, linkID string, access service.ClickContext) error {
	s.recorded <- access
	return nil
}

// waitForClick blocks until the detached recording goroutine fires.
func (s *stubClickService) waitForClick(t *testing.T) service.ClickContext {
	t.Helper()
	select {
	case access := <-s.recorded:
		return access
	case <-time.After(2 * time.Second):
		t.Fatal("click was never recorded")
		return service.ClickContext{}
	}
}

type stubAnalyticsService struct {
	report    *service.LinkAnalytics
	dashboard *service.UserDashboard
	err       error
}

func (s *stubAnalyticsService) GetLinkAnalytics(ctx context.Context, linkID string, days int) (*service.LinkAnalytics, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

func (s *stubAnalyticsService) GetUserDashboard(ctx context.Context, userID string, days int) (*service.UserDashboard, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.dashboard, nil
}

func newTestServer(links *stubLinkService, clicks *stubClickService, analytics *stubAnalyticsService) *httptest.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(links, clicks, analytics, logger, "http://short.test")

	mux := http.NewServeMux()
	handler.Routes(mux)
	return httptest.NewServer(mux)
}

func TestCreateLink(t *testing.T) {
	links := &stubLinkService{}
	server := newTestServer(links, newStubClickService(), &stubAnalyticsService{})
	defer server.Close()

	body := strings.NewReader(`{"url": "https://example.com/page", "owner_id": "user1"}`)
	resp, err := http.Post(server.URL+"/api/v1/links", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var wrapper struct {
		Data CreateLinkResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&wrapper))
	assert.Equal(t, "abc1234", wrapper.Data.Code)
	assert.Equal(t, "http://short.test/abc1234", wrapper.Data.ShortURL)
	assert.Equal(t, "https://example.com/page", wrapper.Data.LongURL)
}

func TestCreateLink_InvalidURL(t *testing.T) {
	links := &stubLinkService{err: domain.ErrInvalidURL}
	server := newTestServer(links, newStubClickService(), &stubAnalyticsService{})
	defer server.Close()

	body := strings.NewReader(`{"url": "not-a-url"}`)
	resp, err := http.Post(server.URL+"/api/v1/links", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateLink_MissingURL(t *testing.T) {
	server := newTestServer(&stubLinkService{}, newStubClickService(), &stubAnalyticsService{})
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/links", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRedirect_RecordsClickAfterResponse(t *testing.T) {
	links := &stubLinkService{link: &domain.ShortLink{
		ID:       "id-1",
		Code:     "abc1234",
		LongURL:  "https://example.com/landing",
		IsActive: true,
	}}
	clicks := newStubClickService()
	server := newTestServer(links, clicks, &stubAnalyticsService{})
	defer server.Close()

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/abc1234?utm_source=mail", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", "https://news.example.com")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://example.com/landing", resp.Header.Get("Location"))

	access := clicks.waitForClick(t)
	assert.Equal(t, domain.StatusRedirected, access.Status)
	assert.Equal(t, "Mozilla/5.0", access.UserAgent)
	assert.Equal(t, "https://news.example.com", access.Referrer)
	assert.Equal(t, "mail", access.UTMSource)
	assert.GreaterOrEqual(t, access.LatencyMs, int64(0))
}

func TestRedirect_UnknownCode_NoClickRecorded(t *testing.T) {
	links := &stubLinkService{err: domain.ErrLinkNotFound}
	clicks := newStubClickService()
	server := newTestServer(links, clicks, &stubAnalyticsService{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/missing1")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	select {
	case <-clicks.recorded:
		t.Fatal("no click should be recorded for an unknown code")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedirect_ExpiredLink(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	links := &stubLinkService{link: &domain.ShortLink{
		ID:        "id-1",
		Code:      "abc1234",
		LongURL:   "https://example.com",
		IsActive:  true,
		ExpiresAt: &expired,
	}}
	clicks := newStubClickService()
	server := newTestServer(links, clicks, &stubAnalyticsService{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/abc1234")
	require.NoError(t, err)
	defer resp.Body.Close()

	// Gone, destination not leaked, but the attempt still lands as an event.
	assert.Equal(t, http.StatusGone, resp.StatusCode)

	access := clicks.waitForClick(t)
	assert.Equal(t, domain.StatusExpired, access.Status)
}

func TestRedirect_DeactivatedLink(t *testing.T) {
	links := &stubLinkService{link: &domain.ShortLink{
		ID:       "id-1",
		Code:     "abc1234",
		LongURL:  "https://example.com",
		IsActive: false,
	}}
	clicks := newStubClickService()
	server := newTestServer(links, clicks, &stubAnalyticsService{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/abc1234")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusGone, resp.StatusCode)

	access := clicks.waitForClick(t)
	assert.Equal(t, domain.StatusBlocked, access.Status)
}

func TestGetLinkAnalytics(t *testing.T) {
	analytics := &stubAnalyticsService{report: &service.LinkAnalytics{
		Link:   &domain.ShortLink{ID: "id-1", Code: "abc1234"},
		Totals: service.LinkTotals{ClicksTotal: 42},
	}}
	server := newTestServer(&stubLinkService{}, newStubClickService(), analytics)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/links/id-1/analytics?days=7")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var wrapper struct {
		Data LinkAnalyticsResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&wrapper))
	assert.Equal(t, "abc1234", wrapper.Data.Code)
	assert.Equal(t, int64(42), wrapper.Data.Totals.ClicksTotal)
}

func TestGetLinkAnalytics_NotFound(t *testing.T) {
	analytics := &stubAnalyticsService{err: domain.ErrLinkNotFound}
	server := newTestServer(&stubLinkService{}, newStubClickService(), analytics)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/links/missing/analytics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetUserDashboard(t *testing.T) {
	analytics := &stubAnalyticsService{dashboard: &service.UserDashboard{
		UserID:      "user-1",
		TotalClicks: 100,
	}}
	server := newTestServer(&stubLinkService{}, newStubClickService(), analytics)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/users/user-1/dashboard")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(&stubLinkService{}, newStubClickService(), &stubAnalyticsService{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/health/live")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}
