package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PhotoStore writes uploads to a local directory served under urlPrefix.
type PhotoStore struct {
	dir       string
	urlPrefix string
}

func NewPhotoStore(dir, urlPrefix string) (*PhotoStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &PhotoStore{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (s *PhotoStore) Dir() string { return s.dir }

func (s *PhotoStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	name := fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), uuid.NewString(), cleanName(filename))

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return s.urlPrefix + "/" + name, nil
}

// cleanName keeps the base name and drops characters unsafe in a URL path.
func cleanName(filename string) string {
	base := filepath.Base(filepath.Clean("/" + filename))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
	if base == "" || base == "." || base == "_" {
		return "photo"
	}
	return base
}
