// Package token issues and verifies the short-lived opaque credentials
// the services use to authenticate to each other. Tokens are AES-GCM
// sealed, carry only the calling service name and an expiry, and are
// distinct from any end-user credential.
package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var (
	ErrExpired = errors.New("service token expired")
	ErrInvalid = errors.New("invalid service token")
)

// Issue seals a token for the named service, valid for ttl. The key is
// base64 of 32 bytes (AES-256).
func Issue(b64Key, service string, ttl time.Duration) (string, error) {
	expiresAt := time.Now().Add(ttl).Unix()
	plaintext := []byte(service + ":" + strconv.FormatInt(expiresAt, 10))

	aesgcm, err := newGCM(b64Key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := aesgcm.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

// Verify opens the token and returns the issuing service name.
// Tampered, malformed or expired tokens are rejected.
func Verify(b64Key, tok string) (string, error) {
	aesgcm, err := newGCM(b64Key)
	if err != nil {
		return "", err
	}

	data, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return "", ErrInvalid
	}

	nonceSize := aesgcm.NonceSize()
	if len(data) < nonceSize {
		return "", ErrInvalid
	}

	pt, err := aesgcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", ErrInvalid
	}

	parts := strings.SplitN(string(pt), ":", 2)
	if len(parts) != 2 {
		return "", ErrInvalid
	}

	expiresAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", ErrInvalid
	}
	if time.Now().Unix() > expiresAt {
		return "", ErrExpired
	}

	return parts[0], nil
}

func newGCM(b64Key string) (cipher.AEAD, error) {
	key, err := base64.StdEncoding.DecodeString(b64Key)
	if err != nil {
		return nil, fmt.Errorf("invalid token key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("invalid token key: %w", err)
	}

	return cipher.NewGCM(block)
}
