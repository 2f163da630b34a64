package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/cppla/socialnet/apperr"
	"github.com/cppla/socialnet/storage"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func newMedia(t *testing.T, max int64) *MediaService {
	t.Helper()
	b, err := storage.NewLocal(t.TempDir(), "http://localhost:5000/static/uploads")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	return NewMediaService(b, max)
}

func TestUploadAndDeleteImage(t *testing.T) {
	m := newMedia(t, 5<<20)
	ctx := context.Background()

	img, err := m.UploadImage(ctx, bytes.NewReader(pngHeader), int64(len(pngHeader)))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(img.PublicID, storage.Folder+"/") || !strings.HasSuffix(img.PublicID, ".png") {
		t.Fatalf("publicId = %q", img.PublicID)
	}
	if img.URL != "http://localhost:5000/static/uploads/"+img.PublicID {
		t.Fatalf("url = %q", img.URL)
	}

	if err := m.DeleteImage(ctx, img.PublicID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	wantKind(t, m.DeleteImage(ctx, img.PublicID), apperr.NotFound, "Image not found")
	wantKind(t, m.DeleteImage(ctx, "  "), apperr.Validation, "Public ID is required")
	wantKind(t, m.DeleteImage(ctx, "../../etc/passwd"), apperr.NotFound, "Image not found")
}

func TestUploadRejects(t *testing.T) {
	m := newMedia(t, 5<<20)
	ctx := context.Background()

	_, err := m.UploadImage(ctx, strings.NewReader("just some text"), 14)
	wantKind(t, err, apperr.Validation, "Only image files are allowed!")

	_, err = m.UploadImage(ctx, bytes.NewReader(pngHeader), 6<<20)
	wantKind(t, err, apperr.Validation, "File too large. Maximum size is 5MB")

	_, err = m.UploadImage(ctx, bytes.NewReader(nil), 0)
	wantKind(t, err, apperr.Validation, "No image file provided")
}

func TestUploadStreamPastLimit(t *testing.T) {
	m := newMedia(t, 64)
	body := append(append([]byte{}, pngHeader...), make([]byte, 128)...)
	_, err := m.UploadImage(context.Background(), bytes.NewReader(body), 10)
	if !apperr.Is(err, apperr.Validation) {
		t.Fatalf("err = %v, want validation", err)
	}
}
