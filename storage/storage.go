// Package storage keeps uploaded media behind a small bucket interface.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Folder prefixes every object key.
const Folder = "social-media-app"

// ErrNotFound means no object exists under the key.
var ErrNotFound = errors.New("storage: object not found")

// ErrInvalidKey means the key escapes the bucket or is malformed.
var ErrInvalidKey = errors.New("storage: invalid key")

// Object describes a stored object.
type Object struct {
	Key string
	URL string
}

// Bucket stores and removes objects by key.
type Bucket interface {
	Put(ctx context.Context, key string, r io.Reader) (Object, error)
	Delete(ctx context.Context, key string) error
}

// NewKey returns social-media-app/<yyyy>/<mm>/<uuid><ext>.
func NewKey(now time.Time, ext string) string {
	return path.Join(Folder, now.Format("2006"), now.Format("01"), uuid.NewString()+strings.ToLower(ext))
}

// Local is a Bucket on the local filesystem whose objects are served under baseURL.
type Local struct {
	root    string
	baseURL string
}

var _ Bucket = (*Local)(nil)

// NewLocal creates root if needed.
func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Local{root: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// resolve maps key to a path inside root, refusing anything that would leave it.
func (l *Local) resolve(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || strings.HasPrefix(clean, "..") {
		return "", ErrInvalidKey
	}
	full := filepath.Join(l.root, filepath.FromSlash(clean))
	rel, err := filepath.Rel(l.root, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", ErrInvalidKey
	}
	return full, nil
}

// URL returns the public address of key.
func (l *Local) URL(key string) string {
	return l.baseURL + "/" + key
}

// Put writes r to a temporary file and renames it into place.
func (l *Local) Put(ctx context.Context, key string, r io.Reader) (Object, error) {
	full, err := l.resolve(key)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Object{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return Object{}, err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, readerWithContext(ctx, r)); err != nil {
		tmp.Close()
		return Object{}, err
	}
	if err := tmp.Close(); err != nil {
		return Object{}, err
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return Object{}, err
	}
	return Object{Key: key, URL: l.URL(key)}, nil
}

// Delete removes key; a missing object is ErrNotFound.
func (l *Local) Delete(ctx context.Context, key string) error {
	full, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
