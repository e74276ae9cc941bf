package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRecoveryReturnsEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logs := captureLogs(t)

	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.POST("/api/v1/credit-analysis", func(c *gin.Context) {
		c.Set("leadId", int64(42))
		panic("boom")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/credit-analysis", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"]["code"] != "internal" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	entry := findLog(t, logs, "http.panic")
	if entry["error"] != "boom" || entry["lead_id"] != float64(42) {
		t.Fatalf("unexpected log entry: %v", entry)
	}
}
