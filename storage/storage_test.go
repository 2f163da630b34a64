package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestNewKeyLayout(t *testing.T) {
	key := NewKey(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), ".PNG")
	re := regexp.MustCompile(`^social-media-app/2024/03/[0-9a-f-]{36}\.png$`)
	if !re.MatchString(key) {
		t.Fatalf("NewKey = %q", key)
	}
}

func TestLocalPutDelete(t *testing.T) {
	dir := t.TempDir()
	b, err := NewLocal(dir, "http://localhost:5000/static/uploads/")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx := context.Background()
	key := "social-media-app/2024/03/a.png"

	obj, err := b.Put(ctx, key, strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if obj.URL != "http://localhost:5000/static/uploads/social-media-app/2024/03/a.png" {
		t.Fatalf("URL = %q", obj.URL)
	}
	if raw, err := os.ReadFile(filepath.Join(dir, "social-media-app", "2024", "03", "a.png")); err != nil || string(raw) != "data" {
		t.Fatalf("stored file: %q %v", raw, err)
	}

	if err := b.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := b.Delete(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	b, err := NewLocal(t.TempDir(), "http://x")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	for _, key := range []string{"", "/etc/passwd", "../secret", "a/../../b", "a//b", `a\b`, "."} {
		if err := b.Delete(context.Background(), key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Delete(%q) = %v, want ErrInvalidKey", key, err)
		}
	}
}
