// Package token issues and verifies the signed identity claim carried by
// every authenticated request.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// MinSecretLen is enforced at construction: a short secret is a
	// configuration error raised at process start, never at request time.
	MinSecretLen = 32

	DefaultTTL = 7 * 24 * time.Hour
)

// ErrInvalidToken covers signature, structure, and expiry failures alike.
// Expiry is deliberately indistinguishable from forgery to callers.
var ErrInvalidToken = errors.New("invalid token")

// Claim is the decoded token payload prior to any store lookup.
type Claim struct {
	SubjectID string
	Admin     bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Codec struct {
	secret []byte
	ttl    time.Duration
}

func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("token secret must be at least %d bytes, got %d", MinSecretLen, len(secret))
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl}, nil
}

func (c *Codec) TTL() time.Duration { return c.ttl }

type wireClaims struct {
	Admin bool `json:"adm"`
	jwt.RegisteredClaims
}

// Issue produces a self-contained HS256 token for the subject.
func (c *Codec) Issue(subjectID string, admin bool) (string, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return "", errors.New("subject id is required")
	}
	now := time.Now().UTC()
	claims := wireClaims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks signature, structure, and expiry. Any failure is ErrInvalidToken.
func (c *Codec) Verify(tok string) (Claim, error) {
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(tok), &wireClaims{}, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return Claim{}, ErrInvalidToken
	}
	wc, ok := parsed.Claims.(*wireClaims)
	if !ok || strings.TrimSpace(wc.Subject) == "" {
		return Claim{}, ErrInvalidToken
	}
	claim := Claim{SubjectID: wc.Subject, Admin: wc.Admin}
	if wc.IssuedAt != nil {
		claim.IssuedAt = wc.IssuedAt.Time
	}
	if wc.ExpiresAt != nil {
		claim.ExpiresAt = wc.ExpiresAt.Time
	}
	return claim, nil
}
