package helpers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

type CustomClaims struct {
	UserID string `json:"id"`
	Role   string `json:"role,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AccountID returns the user id carried by the token, preferring the id claim.
func (c *CustomClaims) AccountID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}

// TokenValidator verifies access tokens either with a shared HMAC secret or,
// when a JWKS URL is configured, with the keys published there.
type TokenValidator struct {
	secret []byte
	jwks   *keyfunc.JWKS
}

func NewTokenValidator(secret, jwksURL string) (*TokenValidator, error) {
	if jwksURL == "" {
		if secret == "" {
			return nil, errors.New("either a JWT secret or a JWKS URL is required")
		}
		return &TokenValidator{secret: []byte(secret)}, nil
	}

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:               context.Background(),
		RefreshInterval:   time.Hour,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", jwksURL, err)
	}
	return &TokenValidator{jwks: jwks}, nil
}

func (tv *TokenValidator) ValidateToken(tokenStr string) (*CustomClaims, error) {
	var (
		kf   jwt.Keyfunc
		opts []jwt.ParserOption
	)
	if tv.jwks != nil {
		kf = tv.jwks.Keyfunc
	} else {
		kf = func(*jwt.Token) (interface{}, error) { return tv.secret, nil }
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, kf, opts...)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	if claims.AccountID() == "" {
		return nil, errors.New("token carries no user id")
	}
	return claims, nil
}

// Close stops the JWKS background refresh, if any.
func (tv *TokenValidator) Close() {
	if tv.jwks != nil {
		tv.jwks.EndBackground()
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
