package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EncryptToken seals "<key>|<expiresUnix>" with AES-CFB. Every token
// carries an expiry.
func EncryptToken(objectKey string, expires time.Time, key string) (string, error) {
	k := []byte(key)
	if len(k) != 16 && len(k) != 24 && len(k) != 32 {
		return "", fmt.Errorf("invalid key length: %d (must be 16/24/32)", len(k))
	}
	if expires.IsZero() {
		return "", fmt.Errorf("token for %s has no expiry", objectKey)
	}

	plaintext := []byte(objectKey + "|" + strconv.FormatInt(expires.Unix(), 10))

	block, err := aes.NewCipher(k)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(plaintext))
	iv := ciphertext[:aes.BlockSize]
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to read random iv: %w", err)
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], plaintext)

	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

func DecryptToken(token string, now time.Time, key string) (string, error) {
	ciphertext, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(ciphertext) <= aes.BlockSize {
		return "", ErrInvalidToken
	}

	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", err
	}

	iv := ciphertext[:aes.BlockSize]
	body := ciphertext[aes.BlockSize:]
	plaintext := make([]byte, len(body))
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(plaintext, body)

	idx := strings.LastIndexByte(string(plaintext), '|')
	if idx <= 0 {
		return "", ErrInvalidToken
	}
	objectKey := string(plaintext[:idx])
	exp, err := strconv.ParseInt(string(plaintext[idx+1:]), 10, 64)
	if err != nil {
		return "", ErrInvalidToken
	}
	if exp <= 0 || now.Unix() > exp {
		return "", ErrInvalidToken
	}
	if !strings.HasPrefix(objectKey, "works/") || strings.Contains(objectKey, "..") {
		return "", ErrInvalidToken
	}
	return objectKey, nil
}
