package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hortafresh/backoffice/internal/models"

	"github.com/gin-gonic/gin"
)

type stubAdminRepo struct{}

func (stubAdminRepo) GetByUsername(string) (*models.Admin, error) { return nil, nil }
func (stubAdminRepo) GetByID(uint) (*models.Admin, error)         { return nil, nil }
func (stubAdminRepo) List() ([]models.Admin, error)               { return nil, nil }
func (stubAdminRepo) Count() (int64, error)                       { return 0, nil }
func (stubAdminRepo) Create(*models.Admin) error                  { return nil }
func (stubAdminRepo) Update(*models.Admin) error                  { return nil }
func (stubAdminRepo) Delete(uint) error                           { return nil }

func TestResolveAllowedOrigin(t *testing.T) {
	if got := resolveAllowedOrigin("https://admin.hortafresh.com.br", []string{"*"}, false); got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}
	if got := resolveAllowedOrigin("https://admin.hortafresh.com.br", []string{"*"}, true); got != "https://admin.hortafresh.com.br" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}
	if got := resolveAllowedOrigin("https://admin.hortafresh.com.br", []string{"https://admin.hortafresh.com.br"}, false); got != "https://admin.hortafresh.com.br" {
		t.Fatalf("allow-list should return the matched origin, got %s", got)
	}
	if got := resolveAllowedOrigin("https://evil.example.com", []string{"https://admin.hortafresh.com.br"}, false); got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddlewareEchoesHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-abc")
	r.ServeHTTP(w, req)

	if w.Header().Get(requestIDHeader) != "req-abc" {
		t.Fatalf("response header want req-abc got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-abc" {
		t.Fatalf("context request id want req-abc got %s", resp["request_id"])
	}

	// no inbound header, one gets generated
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w2.Header().Get(requestIDHeader) == "" {
		t.Fatalf("generated request id should not be empty")
	}
}

func TestJWTAuthMiddlewareMissingSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(JWTAuthMiddleware("", nil))
	r.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/ping", nil))

	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("status_code want 401 got %d", resp.StatusCode)
	}
}

func TestJWTAuthMiddlewareRejectsGarbageToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(JWTAuthMiddleware("secret", stubAdminRepo{}))
	r.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)

	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("status_code want 401 got %d", resp.StatusCode)
	}
}
