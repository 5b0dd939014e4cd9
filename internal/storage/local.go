package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
)

// Local keeps objects under Dir and hands out encrypted-token URLs served
// by GET /files/:token.
type Local struct {
	Dir           string
	PublicBaseURL string
	TokenKey      string
}

func NewLocal(dir, publicBaseURL, tokenKey string) (*Local, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{Dir: dir, PublicBaseURL: strings.TrimRight(publicBaseURL, "/"), TokenKey: tokenKey}, nil
}

func (l *Local) path(key string) string {
	return filepath.Join(l.Dir, filepath.FromSlash(key))
}

func (l *Local) Put(ctx context.Context, key string, u Upload, contentType string) (models.FileRef, error) {
	dst := l.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return models.FileRef{}, err
	}

	rc, err := u.Open()
	if err != nil {
		return models.FileRef{}, err
	}
	defer rc.Close()

	f, err := os.Create(dst)
	if err != nil {
		return models.FileRef{}, err
	}
	n, copyErr := io.Copy(f, &ctxReader{ctx: ctx, r: rc})
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(dst)
		if copyErr != nil {
			return models.FileRef{}, copyErr
		}
		return models.FileRef{}, closeErr
	}

	return models.FileRef{
		Key:         key,
		Name:        u.Filename,
		ContentType: contentType,
		Size:        n,
	}, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	err := os.Remove(l.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (l *Local) DownloadURL(_ context.Context, ref models.FileRef, ttl time.Duration) (string, error) {
	return l.tokenURL(ref.Key, time.Now().Add(ttl))
}

func (l *Local) tokenURL(key string, expires time.Time) (string, error) {
	token, err := EncryptToken(key, expires, l.TokenKey)
	if err != nil {
		return "", err
	}
	return l.PublicBaseURL + "/files/" + token, nil
}

// Resolve maps a download token back to a file on disk.
func (l *Local) Resolve(token string) (string, error) {
	key, err := DecryptToken(token, time.Now(), l.TokenKey)
	if err != nil {
		return "", err
	}
	p := l.path(key)
	if _, err := os.Stat(p); err != nil {
		return "", ErrInvalidToken
	}
	return p, nil
}
