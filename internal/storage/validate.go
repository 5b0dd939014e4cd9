package storage

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type Rule struct {
	MaxBytes  int64
	ImageOnly bool
}

// Inspect checks size and sniffs the real content type. It never writes.
func Inspect(u Upload, rule Rule) (string, error) {
	if u.Size <= 0 {
		return "", fmt.Errorf("%s: %w", u.Filename, ErrEmptyFile)
	}
	if rule.MaxBytes > 0 && u.Size > rule.MaxBytes {
		return "", fmt.Errorf("%s is %d bytes, limit %d: %w", u.Filename, u.Size, rule.MaxBytes, ErrTooLarge)
	}

	rc, err := u.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", u.Filename, err)
	}
	defer rc.Close()

	mt, err := mimetype.DetectReader(rc)
	if err != nil {
		return "", fmt.Errorf("detect %s: %w", u.Filename, err)
	}
	contentType := mt.String()
	if rule.ImageOnly && !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%s is %s, want an image: %w", u.Filename, contentType, ErrUnsupportedType)
	}
	return contentType, nil
}
