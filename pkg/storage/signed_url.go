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

	"github.com/jonboulle/clockwork"
)

var (
	// ErrInvalidToken covers malformed or tampered tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned once a token passes its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// SignedURLSigner creates and validates signed download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration, clock clockwork.Clock) *SignedURLSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, clock: clock}
}

// Generate returns a signed token binding the owner id to a stored file.
func (s *SignedURLSigner) Generate(ownerID, relPath string) (string, time.Time, error) {
	if ownerID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("owner id and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.clock.Now().Add(s.ttl).UTC()
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	token := strings.Join([]string{ownerID, ts, encodedPath, s.sign(ownerID, ts, encodedPath)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the owner id and stored path.
func (s *SignedURLSigner) Parse(token string) (ownerID, relPath string, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", ErrInvalidToken
	}
	ownerID, ts, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(ownerID, ts, encodedPath)), []byte(signature)) {
		return "", "", ErrInvalidToken
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return "", "", fmt.Errorf("%w: decode path", ErrInvalidToken)
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", "", fmt.Errorf("%w: timestamp", ErrInvalidToken)
	}
	if s.clock.Now().After(time.Unix(expUnix, 0)) {
		return "", "", ErrTokenExpired
	}
	return ownerID, string(rawPath), nil
}

func (s *SignedURLSigner) sign(ownerID, ts, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(ownerID + "|" + ts + "|" + encodedPath))
	return hex.EncodeToString(mac.Sum(nil))
}
