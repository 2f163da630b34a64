package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{Validation, http.StatusBadRequest},
		{Authentication, http.StatusBadRequest},
		{Conflict, http.StatusBadRequest},
		{SelfReference, http.StatusBadRequest},
		{NotFollowing, http.StatusBadRequest},
		{Unauthorized, http.StatusUnauthorized},
		{Forbidden, http.StatusForbidden},
		{NotFound, http.StatusNotFound},
		{TooManyRequests, http.StatusTooManyRequests},
		{Server, http.StatusInternalServerError},
		{Kind(99), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := Status(tc.kind); got != tc.want {
			t.Errorf("Status(%s) = %d, want %d", tc.kind, got, tc.want)
		}
	}
}

func TestKindOfUnwrapsChains(t *testing.T) {
	base := New(NotFound, "Post not found")
	wrapped := fmt.Errorf("loading post: %w", base)
	if KindOf(wrapped) != NotFound {
		t.Fatalf("KindOf(wrapped) = %s", KindOf(wrapped))
	}
	if KindOf(errors.New("boom")) != Server {
		t.Fatal("plain errors must classify as server")
	}
	if Is(nil, Server) {
		t.Fatal("nil is not an error of any kind")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, "Server error")
	if !errors.Is(err, cause) {
		t.Fatal("cause not reachable through Unwrap")
	}
	if err.Kind != Server {
		t.Fatalf("kind = %s", err.Kind)
	}
}
