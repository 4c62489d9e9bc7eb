package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"linkpulse/internal/domain"
	"linkpulse/internal/enrich"

	"github.com/stretchr/testify/mock"
)

// Hand-rolled testify mocks for the repository and cache interfaces, shared
// by the service tests in this package.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockLinkRepository struct {
	mock.Mock
}

func (m *MockLinkRepository) Add(ctx context.Context, link *domain.ShortLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockLinkRepository) GetByCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShortLink), args.Error(1)
}

func (m *MockLinkRepository) GetByID(ctx context.Context, id string) (*domain.ShortLink, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShortLink), args.Error(1)
}

func (m *MockLinkRepository) IsCodeUnique(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockLinkRepository) CountCreatedOn(ctx context.Context, ownerID string, day time.Time) (int64, error) {
	args := m.Called(ctx, ownerID, day)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLinkRepository) CountActiveByOwner(ctx context.Context, ownerID string) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLinkRepository) OwnersCreatedOn(ctx context.Context, day time.Time) ([]string, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockClickRepository struct {
	mock.Mock
}

func (m *MockClickRepository) Create(ctx context.Context, event *domain.ClickEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockClickRepository) ListByLinkAndDay(ctx context.Context, linkID string, day time.Time) ([]*domain.ClickEvent, error) {
	args := m.Called(ctx, linkID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ClickEvent), args.Error(1)
}

func (m *MockClickRepository) LinkIDsWithEvents(ctx context.Context, day time.Time) ([]string, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockMetricRepository struct {
	mock.Mock
}

func (m *MockMetricRepository) UpsertLinkMetric(ctx context.Context, metric *domain.DailyLinkMetric) error {
	args := m.Called(ctx, metric)
	return args.Error(0)
}

func (m *MockMetricRepository) UpsertUserMetric(ctx context.Context, metric *domain.DailyUserMetric) error {
	args := m.Called(ctx, metric)
	return args.Error(0)
}

func (m *MockMetricRepository) ListLinkMetrics(ctx context.Context, linkID string, from, to time.Time) ([]*domain.DailyLinkMetric, error) {
	args := m.Called(ctx, linkID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DailyLinkMetric), args.Error(1)
}

func (m *MockMetricRepository) ListUserMetrics(ctx context.Context, userID string, from, to time.Time) ([]*domain.DailyUserMetric, error) {
	args := m.Called(ctx, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DailyUserMetric), args.Error(1)
}

type MockResolutionCache struct {
	mock.Mock
}

func (m *MockResolutionCache) Get(ctx context.Context, code string) (*domain.ShortLink, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShortLink), args.Error(1)
}

func (m *MockResolutionCache) Set(ctx context.Context, code string, link *domain.ShortLink) error {
	args := m.Called(ctx, code, link)
	return args.Error(0)
}

func (m *MockResolutionCache) SetNegative(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

type MockCodeGenerator struct {
	mock.Mock
}

func (m *MockCodeGenerator) GenerateUniqueCode(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type MockUAParser struct {
	mock.Mock
}

func (m *MockUAParser) Parse(userAgent string) enrich.DeviceInfo {
	args := m.Called(userAgent)
	return args.Get(0).(enrich.DeviceInfo)
}

type MockGeoResolver struct {
	mock.Mock
}

func (m *MockGeoResolver) Resolve(ctx context.Context, ip string) (enrich.GeoResult, error) {
	args := m.Called(ctx, ip)
	return args.Get(0).(enrich.GeoResult), args.Error(1)
}
