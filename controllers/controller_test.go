package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/cppla/socialnet/apperr"
	"github.com/cppla/socialnet/config"
)

func answer(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	respondError(ctx, err)
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return w.Code, body
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "x", GinMode: "release"})

	cases := []struct {
		err     error
		status  int
		message string
	}{
		{apperr.New(apperr.NotFound, "Post not found"), http.StatusNotFound, "Post not found"},
		{apperr.New(apperr.Forbidden, "nope"), http.StatusForbidden, "nope"},
		{apperr.New(apperr.SelfReference, "You cannot follow yourself"), http.StatusBadRequest, "You cannot follow yourself"},
		{errors.New("boom"), http.StatusInternalServerError, "Server error"},
	}
	for _, tc := range cases {
		status, body := answer(t, tc.err)
		if status != tc.status || body["message"] != tc.message || body["success"] != false {
			t.Errorf("respondError(%v) = %d %v", tc.err, status, body)
		}
		if _, leaked := body["error"]; leaked {
			t.Errorf("cause exposed outside development: %v", body)
		}
	}

	_, body := answer(t, apperr.Invalid(apperr.FieldError{Field: "content", Message: "too long"}))
	if errs, _ := body["errors"].([]interface{}); len(errs) != 1 {
		t.Errorf("field errors = %v", body["errors"])
	}
}

func TestRespondErrorDevelopmentCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "x", GinMode: "debug"})
	t.Cleanup(func() { config.Set(config.AppConfig{JWTSecret: "x", GinMode: "release"}) })

	_, body := answer(t, apperr.Wrap(errors.New("db down"), "Server error"))
	if body["error"] != "db down" {
		t.Fatalf("body = %v", body)
	}
}
