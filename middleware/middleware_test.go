package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/cppla/socialnet/config"
	"github.com/cppla/socialnet/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "middleware-test-secret"})
	os.Exit(m.Run())
}

func whoami(ctx *gin.Context) {
	ctx.String(http.StatusOK, CurrentUserID(ctx))
}

func get(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := gin.New()
	r.GET("/", AuthRequired(), whoami)

	tok, err := utils.GenerateToken("u-42", "alice")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if w := get(r, tok); w.Code != http.StatusOK || w.Body.String() != "u-42" {
		t.Fatalf("valid token: %d %q", w.Code, w.Body.String())
	}
	if w := get(r, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", w.Code)
	}
	if w := get(r, "not-a-jwt"); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", w.Code)
	}
}

func TestOptionalAuth(t *testing.T) {
	r := gin.New()
	r.GET("/", OptionalAuth(), whoami)

	if w := get(r, ""); w.Code != http.StatusOK || w.Body.String() != "" {
		t.Fatalf("anonymous: %d %q", w.Code, w.Body.String())
	}
	if w := get(r, "not-a-jwt"); w.Code != http.StatusOK || w.Body.String() != "" {
		t.Fatalf("bad token: %d %q", w.Code, w.Body.String())
	}
	tok, _ := utils.GenerateToken("u-7", "bob")
	if w := get(r, tok); w.Body.String() != "u-7" {
		t.Fatalf("valid token: %q", w.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(4), whoami)

	// burst is half the per-minute budget
	for i := 0; i < 2; i++ {
		if w := get(r, ""); w.Code != http.StatusOK {
			t.Fatalf("request %d: %d", i, w.Code)
		}
	}
	if w := get(r, ""); w.Code != http.StatusTooManyRequests {
		t.Fatalf("over limit: %d", w.Code)
	}
}
