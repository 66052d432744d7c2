package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"klunkaz/pkg/registry"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSubject    = errors.New("token has no subject")
	ErrNoSecret     = errors.New("JWT secret is not configured")
)

// Verifier checks HS256 bearer tokens and returns their subject as the
// caller identity.
type Verifier struct {
	secret   []byte
	cache    TokenCache
	cacheTTL time.Duration
	now      func() time.Time
}

// NewVerifier returns a verifier. A nil cache disables caching.
func NewVerifier(secret string, cache TokenCache, cacheTTL time.Duration) (*Verifier, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Verifier{secret: []byte(secret), cache: cache, cacheTTL: cacheTTL, now: time.Now}, nil
}

func (v *Verifier) Verify(ctx context.Context, token string) (registry.Identity, error) {
	if token == "" {
		return "", ErrMissingToken
	}
	key := cacheKey(token)
	if v.cache != nil {
		if id, ok := v.cache.Get(ctx, key); ok {
			return id, nil
		}
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrNoSubject
	}
	id := registry.Identity(sub)

	if v.cache != nil {
		ttl := v.cacheTTL
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			if left := exp.Sub(v.now()); left < ttl {
				ttl = left
			}
		}
		if ttl > 0 {
			v.cache.Set(ctx, key, id, ttl)
		}
	}
	return id, nil
}

// cacheKey keeps raw tokens out of the cache.
func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Issuer signs development tokens.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) (*Issuer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Issuer{secret: []byte(secret), now: time.Now}, nil
}

func (i *Issuer) Issue(id registry.Identity, ttl time.Duration) (string, error) {
	if id == "" {
		return "", ErrNoSubject
	}
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   string(id),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}
