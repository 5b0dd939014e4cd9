package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
)

type GCS struct {
	client *gcs.Client
	bucket string
}

// NewGCS uses application default credentials, the same way Cloud Run
// deployments pick them up.
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("GCS_BUCKET is required for the gcs storage driver")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) Put(ctx context.Context, key string, u Upload, contentType string) (models.FileRef, error) {
	rc, err := u.Open()
	if err != nil {
		return models.FileRef{}, err
	}
	defer rc.Close()

	// Cancelling wctx aborts the resumable upload, so no object is created.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(wctx)
	w.ContentType = contentType
	w.ContentDisposition = fmt.Sprintf("attachment; filename=%q", u.Filename)

	n, err := io.Copy(w, &ctxReader{ctx: ctx, r: rc})
	if err != nil {
		cancel()
		_ = w.Close()
		return models.FileRef{}, err
	}
	if err := w.Close(); err != nil {
		return models.FileRef{}, err
	}

	return models.FileRef{
		Key:         key,
		Name:        u.Filename,
		ContentType: contentType,
		Size:        n,
	}, nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (g *GCS) DownloadURL(_ context.Context, ref models.FileRef, ttl time.Duration) (string, error) {
	return g.client.Bucket(g.bucket).SignedURL(ref.Key, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
}
