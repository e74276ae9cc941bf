package profiles

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newProfilesRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestCompleteHandlerCreated(t *testing.T) {
	f := newServiceFixture(t)
	router := newProfilesRouter(f.svc)

	urls := f.urls("/statements/1.pdf", "/statements/2.pdf", "/statements/3.pdf")
	resp := postJSON(router, "/api/v1/credit-profiles", map[string]string{
		"leadId":          "crm-42",
		"firstStatement":  urls[0],
		"secondStatement": urls[1],
		"thirdStatement":  urls[2],
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var profile CreditProfile
	if err := json.Unmarshal(resp.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if profile.LeadID != 42 {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestCompleteHandlerErrors(t *testing.T) {
	f := newServiceFixture(t)
	router := newProfilesRouter(f.svc)
	urls := f.urls("/statements/1.pdf", "/statements/2.pdf", "/statements/3.pdf")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/credit-profiles", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bad json: expected 400, got %d", resp.Code)
	}

	resp = postJSON(router, "/api/v1/credit-profiles", map[string]string{"leadId": "crm-42", "firstStatement": urls[0]})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing statements: expected 400, got %d", resp.Code)
	}

	resp = postJSON(router, "/api/v1/credit-profiles", map[string]string{
		"leadId": "crm-7", "firstStatement": urls[0], "secondStatement": urls[1], "thirdStatement": urls[2],
	})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("unknown lead: expected 404, got %d", resp.Code)
	}
}

func TestGetProfileHandler(t *testing.T) {
	f := newServiceFixture(t)
	router := newProfilesRouter(f.svc)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/credit-profiles/crm-42", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before profile exists, got %d", resp.Code)
	}

	if err := f.repo.UpsertUnderwriting(context.Background(), 42, Underwriting{MinPayment: 1000, MaxPayment: 1800}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/credit-profiles/crm-42", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var profile CreditProfile
	if err := json.Unmarshal(resp.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if profile.MinPayment == nil || *profile.MinPayment != 1000 {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/credit-profiles/crm-9", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("unknown lead: expected 404, got %d", resp.Code)
	}
}
