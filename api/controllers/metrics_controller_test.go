package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"datacontract-service/service/database"
	"datacontract-service/service/metrics"
	"datacontract-service/service/models"
	"datacontract-service/testutil"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetricsRouter(c *MetricsController) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/api/v1/metrics", func(r chi.Router) {
		r.Get("/{contract_id}/daily", c.GetDailyMetrics)
		r.Get("/{contract_id}/trend", c.GetTrend)
		r.Get("/{contract_id}/history", c.GetHistory)
	})
	return r
}

type metricsFixture struct {
	testDB   *testutil.TestDB
	factory  *testutil.TestDataFactory
	contract *models.DataContract
	router   *chi.Mux
	now      time.Time
}

func newMetricsFixture(t *testing.T) *metricsFixture {
	t.Helper()
	f := &metricsFixture{now: time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)}
	f.testDB = testutil.NewTestDB()
	t.Cleanup(f.testDB.Close)
	f.factory = testutil.NewTestDataFactory(f.testDB.DB)
	f.contract = f.factory.CreateContract()

	results := database.NewResultRepository(f.testDB.DB)
	store := database.NewMetricsRepository(f.testDB.DB)
	aggregator := metrics.NewMetricsAggregator(results, store, metrics.WithNow(func() time.Time { return f.now }))

	controller := NewMetricsController(aggregator, store, database.NewContractRepository(f.testDB.DB))
	controller.now = func() time.Time { return f.now }
	f.router = newMetricsRouter(controller)
	return f
}

func (f *metricsFixture) path(suffix string) string {
	return "/api/v1/metrics/" + f.contract.ID + suffix
}

func TestGetDailyMetrics(t *testing.T) {
	f := newMetricsFixture(t)
	day := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	f.factory.CreateResult(f.contract.ID, testutil.WithValidatedAt(day))
	f.factory.CreateResult(f.contract.ID, testutil.WithValidatedAt(day.Add(time.Hour)),
		testutil.WithStatus(models.StatusFail), testutil.WithErrors(models.ErrorTypeMismatch))

	w := testutil.DoJSONRequest(t, f.router, http.MethodGet, f.path("/daily?date=2026-10-18"), nil)

	require.Equal(t, http.StatusOK, w.Code)
	_, data := decodeResponse(t, w.Body.Bytes())
	assert.Equal(t, "2026-10-18", data["date"])
	assert.Equal(t, float64(2), data["total_validations"])
	assert.Equal(t, float64(50), data["pass_rate"])

	var stored []models.DailyMetrics
	f.testDB.DB.Find(&stored)
	assert.Len(t, stored, 1)
}

func TestGetDailyMetrics_DefaultsToToday(t *testing.T) {
	f := newMetricsFixture(t)

	w := testutil.DoJSONRequest(t, f.router, http.MethodGet, f.path("/daily"), nil)

	require.Equal(t, http.StatusOK, w.Code)
	_, data := decodeResponse(t, w.Body.Bytes())
	assert.Equal(t, "2026-10-19", data["date"])
	assert.Equal(t, float64(0), data["total_validations"])
}

func TestGetDailyMetrics_BadRequests(t *testing.T) {
	f := newMetricsFixture(t)

	w := testutil.DoJSONRequest(t, f.router, http.MethodGet, f.path("/daily?date=19-10-2026"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoJSONRequest(t, f.router, http.MethodGet, "/api/v1/metrics/missing/daily", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTrend(t *testing.T) {
	f := newMetricsFixture(t)
	for daysAgo, status := range map[int]models.ValidationStatus{3: models.StatusFail, 1: models.StatusPass} {
		f.factory.CreateResult(f.contract.ID,
			testutil.WithValidatedAt(f.now.AddDate(0, 0, -daysAgo)),
			testutil.WithStatus(status))
	}

	w := testutil.DoJSONRequest(t, f.router, http.MethodGet, f.path("/trend?days=4"), nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Status int              `json:"status"`
		Data   models.TrendData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Data.Days)
	assert.Equal(t, models.TrendIncreasing, resp.Data.PassRateTrend)
	assert.Len(t, resp.Data.Series, 4)
}

func TestGetTrend_InvalidDays(t *testing.T) {
	f := newMetricsFixture(t)

	for _, q := range []string{"?days=0", "?days=366", "?days=week"} {
		w := testutil.DoJSONRequest(t, f.router, http.MethodGet, f.path("/trend"+q), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestGetHistory(t *testing.T) {
	f := newMetricsFixture(t)
	store := database.NewMetricsRepository(f.testDB.DB)
	for _, d := range []string{"2026-10-16", "2026-10-17", "2026-10-18"} {
		require.NoError(t, store.SaveDailyMetrics(context.Background(), &models.DailyMetrics{ContractID: f.contract.ID, MetricDate: d}))
	}

	w := testutil.DoJSONRequest(t, f.router, http.MethodGet, f.path("/history?start_date=2026-10-17&end_date=2026-10-18"), nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []models.DailyMetrics `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "2026-10-17", resp.Data[0].MetricDate)

	w = testutil.DoJSONRequest(t, f.router, http.MethodGet, f.path("/history?start_date=2026-10-18&end_date=2026-10-01"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoJSONRequest(t, f.router, http.MethodGet, f.path("/history?start_date=yesterday"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func TestHealthController(t *testing.T) {
	healthy := NewHealthController(stubPinger{}, "datacontract-service", "1.0.0")
	down := NewHealthController(stubPinger{err: errors.New("connection refused")}, "datacontract-service", "1.0.0")

	tests := []struct {
		name       string
		controller *HealthController
		ready      bool
		code       int
		database   string
	}{
		{"健康", healthy, false, http.StatusOK, "connected"},
		{"就绪", healthy, true, http.StatusOK, "connected"},
		{"数据库断开仍返回健康", down, false, http.StatusOK, "disconnected"},
		{"数据库断开未就绪", down, true, http.StatusServiceUnavailable, "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/health", tt.controller.Health)
			r.Get("/ready", tt.controller.Ready)

			path := "/health"
			if tt.ready {
				path = "/ready"
			}
			w := testutil.DoJSONRequest(t, r, http.MethodGet, path, nil)

			assert.Equal(t, tt.code, w.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.database, resp.Database)
			assert.Equal(t, "datacontract-service", resp.Service)
		})
	}
}
