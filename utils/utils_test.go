package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/socialnet/config"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "utils-test-secret"})
	os.Exit(m.Run())
}

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken("u-1", "alice99")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseToken(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u-1" || claims.Username != "alice99" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != 7*24*time.Hour {
		t.Fatalf("token lifetime = %v, want 168h", got)
	}
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	tok, err := GenerateToken("u-1", "alice99")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	config.Set(config.AppConfig{JWTSecret: "another-secret"})
	defer config.Set(config.AppConfig{JWTSecret: "utils-test-secret"})
	if _, err := ParseToken(tok); err == nil {
		t.Fatal("token signed with a different secret was accepted")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("Passw0rd")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "Passw0rd") {
		t.Fatal("correct password rejected")
	}
	if CheckPassword(hash, "passw0rd") {
		t.Fatal("wrong password accepted")
	}
	if CheckPassword("", "anything") {
		t.Fatal("empty hash must never match")
	}
}

func TestBlacklistFallback(t *testing.T) {
	BlacklistToken("tok-a", time.Now().Add(time.Minute))
	if !IsTokenBlacklisted("tok-a") {
		t.Fatal("revoked token not reported")
	}
	if IsTokenBlacklisted("tok-b") {
		t.Fatal("unknown token reported as revoked")
	}
	BlacklistToken("tok-expired", time.Now().Add(-time.Second))
	if IsTokenBlacklisted("tok-expired") {
		t.Fatal("already expired token should not be stored")
	}
}

func TestStateIsSingleUse(t *testing.T) {
	SaveState("state-1", time.Minute)
	if !ConsumeState("state-1") {
		t.Fatal("fresh state rejected")
	}
	if ConsumeState("state-1") {
		t.Fatal("state accepted twice")
	}
	if ConsumeState("") {
		t.Fatal("empty state accepted")
	}
}

func TestExpiringMapExpiry(t *testing.T) {
	m := newExpiringMap()
	m.Put("k", "v", -time.Second)
	if _, ok := m.Get("k"); ok {
		t.Fatal("expired entry returned")
	}
	m.Put("k", "v", time.Minute)
	if v, ok := m.Take("k"); !ok || v != "v" {
		t.Fatalf("Take = %q,%v", v, ok)
	}
	if _, ok := m.Get("k"); ok {
		t.Fatal("entry survived Take")
	}
}

func TestCaptchaStoreWithoutRedis(t *testing.T) {
	s := NewCaptchaStore(time.Minute)
	if err := s.Set("c1", "12345"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if s.Verify("c1", "00000", false) {
		t.Fatal("wrong answer accepted")
	}
	if !s.Verify("c1", "12345", true) {
		t.Fatal("right answer rejected")
	}
	if s.Verify("c1", "12345", true) {
		t.Fatal("captcha reusable after clear")
	}
}

func TestSanitize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  hello <script>alert(1)</script><b>world</b> ", "hello world"},
		{"<script>x</script>", ""},
		{"Tom & Jerry's \"show\"", "Tom & Jerry's \"show\""},
		{"1 < 2 && 3 > 2", "1 < 2 && 3 > 2"},
	}
	for _, tc := range cases {
		if got := Sanitize(tc.in); got != tc.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRespondMergesPayload(t *testing.T) {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	Created(ctx, "Post created successfully", gin.H{"post": gin.H{"id": "p1"}})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != true || body["message"] != "Post created successfully" {
		t.Fatalf("unexpected envelope %v", body)
	}
	if _, ok := body["post"]; !ok {
		t.Fatalf("payload not merged: %v", body)
	}
}

func TestRegistrationGuardsOpenWithoutRedis(t *testing.T) {
	if !RegistrationCooldownTry("1.2.3.4") || !RegistrationDailyLimitCheck("1.2.3.4") || RegistrationIsBanned("1.2.3.4") {
		t.Fatal("registration guards must pass when redis is not configured")
	}
}
