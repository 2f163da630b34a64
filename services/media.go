package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/cppla/socialnet/apperr"
	"github.com/cppla/socialnet/storage"
)

// sniffLen is how much of an upload is inspected to decide its type.
const sniffLen = 3072

var imageTypes = []struct {
	mime string
	ext  string
}{
	{"image/jpeg", ".jpg"},
	{"image/png", ".png"},
	{"image/gif", ".gif"},
	{"image/webp", ".webp"},
}

// MediaService stores uploaded images in a bucket.
type MediaService struct {
	bucket   storage.Bucket
	maxBytes int64
}

// NewMediaService creates a MediaService accepting files up to maxBytes.
func NewMediaService(bucket storage.Bucket, maxBytes int64) *MediaService {
	return &MediaService{bucket: bucket, maxBytes: maxBytes}
}

// Image is a stored upload.
type Image struct {
	URL      string
	PublicID string
}

func (m *MediaService) tooLarge() error {
	return apperr.New(apperr.Validation, fmt.Sprintf("File too large. Maximum size is %dMB", m.maxBytes>>20))
}

// UploadImage sniffs r, refuses anything that is not jpeg, png, gif or webp and stores the rest.
// size is the declared length; the stream is cut off past the limit either way.
func (m *MediaService) UploadImage(ctx context.Context, r io.Reader, size int64) (*Image, error) {
	if size > m.maxBytes {
		return nil, m.tooLarge()
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, apperr.Wrap(err, serverMessage)
	}
	head = head[:n]
	if n == 0 {
		return nil, apperr.New(apperr.Validation, "No image file provided")
	}

	mt := mimetype.Detect(head)
	ext := ""
	for _, t := range imageTypes {
		if mt.Is(t.mime) {
			ext = t.ext
			break
		}
	}
	if ext == "" {
		return nil, apperr.New(apperr.Validation, "Only image files are allowed!")
	}

	body := &limitedReader{r: io.MultiReader(bytes.NewReader(head), r), left: m.maxBytes}
	obj, err := m.bucket.Put(ctx, storage.NewKey(time.Now(), ext), body)
	if body.exceeded {
		if obj.Key != "" {
			_ = m.bucket.Delete(ctx, obj.Key)
		}
		return nil, m.tooLarge()
	}
	if err != nil {
		return nil, apperr.Wrap(err, serverMessage)
	}
	return &Image{URL: obj.URL, PublicID: obj.Key}, nil
}

// DeleteImage removes a previously uploaded image.
func (m *MediaService) DeleteImage(ctx context.Context, publicID string) error {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return apperr.New(apperr.Validation, "Public ID is required")
	}
	err := m.bucket.Delete(ctx, publicID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidKey):
		return apperr.New(apperr.NotFound, "Image not found")
	default:
		return apperr.Wrap(err, serverMessage)
	}
}

var errTooLarge = errors.New("upload exceeds size limit")

// limitedReader fails once more than left bytes have been read.
type limitedReader struct {
	r        io.Reader
	left     int64
	exceeded bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.left -= int64(n)
	if l.left < 0 {
		l.exceeded = true
		return 0, errTooLarge
	}
	return n, err
}
