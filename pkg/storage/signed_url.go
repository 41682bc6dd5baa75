package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTokenInvalid = errors.New("invalid download token")
	ErrTokenExpired = errors.New("download token expired")
)

// SignedLink is a token granting time-limited access to one stored file.
type SignedLink struct {
	Token     string
	ExpiresAt time.Time
}

// SignedClaims is the verified content of a token.
type SignedClaims struct {
	Resource  string
	Name      string
	ExpiresAt time.Time
}

// SignedURLSigner creates and validates signed download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Sign binds a resource identifier (for example "visit-42") to a stored file name.
func (s *SignedURLSigner) Sign(resource, name string) (SignedLink, error) {
	if resource == "" || name == "" {
		return SignedLink{}, fmt.Errorf("resource and name required")
	}
	if strings.Contains(resource, ".") {
		return SignedLink{}, fmt.Errorf("resource must not contain '.'")
	}
	if len(s.secret) == 0 {
		return SignedLink{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedName := base64.RawURLEncoding.EncodeToString([]byte(name))
	token := strings.Join([]string{resource, ts, encodedName, s.signature(resource, ts, encodedName)}, ".")
	return SignedLink{Token: token, ExpiresAt: expiresAt}, nil
}

// Verify checks the signature and expiry of token.
func (s *SignedURLSigner) Verify(token string) (SignedClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return SignedClaims{}, ErrTokenInvalid
	}
	resource, ts, encodedName, signature := parts[0], parts[1], parts[2], parts[3]

	expected := s.signature(resource, ts, encodedName)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return SignedClaims{}, ErrTokenInvalid
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return SignedClaims{}, ErrTokenInvalid
	}
	rawName, err := base64.RawURLEncoding.DecodeString(encodedName)
	if err != nil {
		return SignedClaims{}, ErrTokenInvalid
	}
	expiresAt := time.Unix(expUnix, 0)
	if s.now().After(expiresAt) {
		return SignedClaims{}, ErrTokenExpired
	}
	return SignedClaims{Resource: resource, Name: string(rawName), ExpiresAt: expiresAt}, nil
}

func (s *SignedURLSigner) signature(resource, ts, encodedName string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(resource + "|" + ts + "|" + encodedName))
	return hex.EncodeToString(mac.Sum(nil))
}
