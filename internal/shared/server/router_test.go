package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/creditanalysis"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/jobs"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/config"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/server/middleware"
)

func testConfig() config.Config {
	return config.Config{Env: "dev", CORSAllowOrigin: []string{"http://localhost:5173"}}
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"
	cfg.JWTSecret = "s3cret"
	r := NewRouter(RouterDeps{Config: cfg})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "credit_") {
		t.Fatalf("metrics: got %d %q", resp.Code, resp.Body.String())
	}
}

func TestCreditAnalysisRoutesRequireToken(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"
	cfg.JWTSecret = "s3cret"
	repo := jobs.NewMemoryRepo()
	h := creditanalysis.NewHandler(&creditanalysis.Submitter{Jobs: repo}, nil, repo, nil)
	r := NewRouter(RouterDeps{Config: cfg, CreditAnalysisHandler: h})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/credit-analysis/jobs", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestPollRouteIsRateLimited(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	repo := jobs.NewMemoryRepo()
	h := creditanalysis.NewHandler(&creditanalysis.Submitter{Jobs: repo}, nil, repo, nil)
	r := NewRouter(RouterDeps{
		Config:                testConfig(),
		CreditAnalysisHandler: h,
		Limiter:               middleware.NewRateLimiter(func() time.Time { return now }),
	})

	var last int
	for i := 0; i < 4; i++ {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/credit-analysis/poll", nil))
		last = resp.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", last)
	}

	// The default group is independent.
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/credit-analysis/jobs", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHealthReportsDatabase(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer sqlDB.Close()
	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	r := NewRouter(RouterDeps{Config: testConfig(), DB: sqlDB})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("healthy: expected 200, got %d", resp.Code)
	}
	var body struct {
		OK       bool `json:"ok"`
		Database struct {
			Up bool `json:"up"`
		} `json:"database"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil || !body.OK || !body.Database.Up {
		t.Fatalf("unexpected body %s (%v)", resp.Body.String(), err)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("down: expected 503, got %d", resp.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
