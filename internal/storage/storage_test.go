package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

const key16 = "0123456789abcdef"

var png = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func TestTokenRoundTrip(t *testing.T) {
	now := time.Now()
	objectKey := "works/" + uuid.NewString() + "/qr_code/a.png"

	tok, err := EncryptToken(objectKey, now.Add(time.Minute), key16)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	got, err := DecryptToken(tok, now, key16)
	if err != nil || got != objectKey {
		t.Fatalf("decrypt = %q, %v", got, err)
	}

	if _, err := DecryptToken(tok, now.Add(2*time.Minute), key16); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token = %v", err)
	}
	if _, err := DecryptToken(tok, now, "fedcba9876543210"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong key = %v", err)
	}
	if _, err := DecryptToken("not-a-token", now, key16); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage = %v", err)
	}

	if _, err := EncryptToken(objectKey, time.Time{}, key16); err == nil {
		t.Fatalf("token without expiry accepted")
	}

	if _, err := EncryptToken(objectKey, now, "short"); err == nil {
		t.Fatalf("short key accepted")
	}
}

func TestTokenRejectsForeignKeys(t *testing.T) {
	for _, k := range []string{"etc/passwd", "works/../../etc/passwd"} {
		tok, err := EncryptToken(k, time.Now().Add(time.Minute), key16)
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		if _, err := DecryptToken(tok, time.Now(), key16); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s decrypted: %v", k, err)
		}
	}
}

func TestLocalPutResolveDelete(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir, "http://localhost:8080/", key16)
	if err != nil {
		t.Fatalf("new local: %v", err)
	}
	ctx := context.Background()
	key := ObjectKey(uuid.New(), "qr_code", "Scan Me.PNG")
	if !strings.HasSuffix(key, ".png") || !strings.HasPrefix(key, "works/") {
		t.Fatalf("key = %s", key)
	}

	ref, err := l.Put(ctx, key, FromBytes("Scan Me.PNG", png), "image/png")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if ref.Size != int64(len(png)) || ref.Name != "Scan Me.PNG" || ref.URL != "" {
		t.Fatalf("ref = %+v", ref)
	}

	url, err := l.DownloadURL(ctx, ref, time.Minute)
	if err != nil {
		t.Fatalf("download url: %v", err)
	}
	p, err := l.Resolve(strings.TrimPrefix(url, "http://localhost:8080/files/"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil || len(b) != len(png) {
		t.Fatalf("read back %d bytes: %v", len(b), err)
	}

	if err := l.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := l.Delete(ctx, key); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := l.Resolve(strings.TrimPrefix(url, "http://localhost:8080/files/")); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("resolve deleted = %v", err)
	}
}

func TestLocalPutCancelledLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir, "http://localhost:8080", key16)
	if err != nil {
		t.Fatalf("new local: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	key := ObjectKey(uuid.New(), "completion", "report.pdf")
	_, err = l.Put(ctx, key, FromBytes("report.pdf", []byte("%PDF-1.4 body")), "application/pdf")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("put = %v, want canceled", err)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(key))); !os.IsNotExist(err) {
		t.Fatalf("partial file left behind: %v", err)
	}
}

func TestInspect(t *testing.T) {
	cases := []struct {
		name string
		u    Upload
		rule Rule
		want error
		ct   string
	}{
		{"png image", FromBytes("qr.png", png), Rule{MaxBytes: 1 << 20, ImageOnly: true}, nil, "image/png"},
		{"pdf as document", FromBytes("a.pdf", []byte("%PDF-1.4\n%%EOF\n")), Rule{MaxBytes: 1 << 20}, nil, "application/pdf"},
		{"pdf where image wanted", FromBytes("a.pdf", []byte("%PDF-1.4\n%%EOF\n")), Rule{ImageOnly: true}, ErrUnsupportedType, ""},
		{"renamed text", FromBytes("qr.png", []byte("hello there")), Rule{ImageOnly: true}, ErrUnsupportedType, ""},
		{"too large", FromBytes("qr.png", png), Rule{MaxBytes: 8, ImageOnly: true}, ErrTooLarge, ""},
		{"empty", FromBytes("qr.png", nil), Rule{}, ErrEmptyFile, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ct, err := Inspect(tc.u, tc.rule)
			if tc.want != nil {
				if !errors.Is(err, tc.want) {
					t.Fatalf("err = %v, want %v", err, tc.want)
				}
				return
			}
			if err != nil || ct != tc.ct {
				t.Fatalf("Inspect = %q, %v; want %q", ct, err, tc.ct)
			}
		})
	}
}

var _ Storage = (*Local)(nil)
