// Package auth implements account credentials for the gateway: signed
// session tokens and password hashing.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const defaultTokenTTL = 24 * time.Hour

// Token errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the verified content of a session token.
type Claims struct {
	UserID   int64
	Username string
	Email    string
}

// TokenIssuer signs and verifies HMAC session tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithTokenTTL sets the token lifetime.
func WithTokenTTL(ttl time.Duration) TokenOption {
	return func(ti *TokenIssuer) { ti.ttl = ttl }
}

// NewTokenIssuer creates a TokenIssuer with the given signing secret.
func NewTokenIssuer(secret, issuer string, opts ...TokenOption) (*TokenIssuer, error) {
	if len(secret) < 32 {
		return nil, errors.New("token secret must be at least 32 bytes")
	}

	ti := &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    defaultTokenTTL,
	}
	for _, opt := range opts {
		opt(ti)
	}
	return ti, nil
}

// Issue signs a token for the given account.
func (ti *TokenIssuer) Issue(claims Claims) (string, error) {
	now := time.Now()
	tok, err := jwt.NewBuilder().
		Issuer(ti.issuer).
		Subject(fmt.Sprintf("%d", claims.UserID)).
		IssuedAt(now).
		Expiration(now.Add(ti.ttl)).
		Claim("username", claims.Username).
		Claim("email", claims.Email).
		Claim("user_id", claims.UserID).
		Build()
	if err != nil {
		return "", err
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, ti.secret))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

// Verify parses and validates a signed token, returning its claims.
func (ti *TokenIssuer) Verify(raw string) (*Claims, error) {
	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, ti.secret),
		jwt.WithIssuer(ti.issuer),
		jwt.WithValidate(true),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := &Claims{}
	if v, ok := tok.Get("user_id"); ok {
		switch id := v.(type) {
		case float64:
			claims.UserID = int64(id)
		case int64:
			claims.UserID = id
		}
	}
	if v, ok := tok.Get("username"); ok {
		claims.Username, _ = v.(string)
	}
	if v, ok := tok.Get("email"); ok {
		claims.Email, _ = v.(string)
	}

	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
