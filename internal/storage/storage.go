// Package storage is the file-storage collaborator: QR codes, payment proofs
// and completion deliverables. Two backends exist, local disk for
// development and Google Cloud Storage for deployments.
package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
)

var (
	ErrTooLarge        = errors.New("file exceeds size limit")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmptyFile       = errors.New("file is empty")
	ErrInvalidToken    = errors.New("invalid or expired download token")
)

// Upload is a file the caller wants stored. Open may be called more than once.
type Upload struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

func FromFileHeader(fh *multipart.FileHeader) Upload {
	return Upload{
		Filename: fh.Filename,
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func FromBytes(name string, b []byte) Upload {
	return Upload{
		Filename: name,
		Size:     int64(len(b)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		},
	}
}

type Storage interface {
	Put(ctx context.Context, key string, u Upload, contentType string) (models.FileRef, error)
	Delete(ctx context.Context, key string) error
	DownloadURL(ctx context.Context, ref models.FileRef, ttl time.Duration) (string, error)
}

// ObjectKey builds "works/<workID>/<kind>/<uuid><ext>".
func ObjectKey(workID uuid.UUID, kind, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join("works", workID.String(), kind, uuid.New().String()+ext)
}

// ctxReader stops a copy as soon as ctx is done so a cancelled upload
// never completes in the background.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
