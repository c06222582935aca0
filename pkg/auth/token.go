package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claim keys carried by user tokens
const (
	ClaimSubject = "sub"
	ClaimEmail   = "email"
	ClaimName    = "name"
	ClaimExpiry  = "exp"
)

// Claims is the decoded payload of a token. Email and Name are for display only;
// authorization always re-resolves the user from Subject.
type Claims struct {
	Subject   string
	Email     string
	Name      string
	ExpiresAt *time.Time
}

// TokenCodec signs and verifies HS256 tokens with a single server secret
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

// NewTokenCodec creates a codec. An empty secret is a configuration error.
func NewTokenCodec(secret []byte) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, ErrMissingAuthSecret
	}
	return &TokenCodec{secret: secret, now: time.Now}, nil
}

// Encode signs claims. When ttl is non-nil an exp claim of now+ttl is embedded;
// a nil ttl produces a token that never expires.
func (c *TokenCodec) Encode(claims Claims, ttl *time.Duration) (string, error) {
	mc := jwt.MapClaims{
		ClaimSubject: claims.Subject,
		ClaimEmail:   claims.Email,
		ClaimName:    claims.Name,
	}
	if ttl != nil {
		mc[ClaimExpiry] = jwt.NewNumericDate(c.now().Add(*ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mc)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry of tokenString and returns its claims.
// Every failure wraps ErrInvalidToken.
func (c *TokenCodec) Decode(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	sub, ok := mc[ClaimSubject].(string)
	if !ok || sub == "" {
		return Claims{}, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}

	claims := Claims{Subject: sub}
	claims.Email, _ = mc[ClaimEmail].(string)
	claims.Name, _ = mc[ClaimName].(string)

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if exp != nil {
		// exp equal to now counts as expired
		if !c.now().Before(exp.Time) {
			return Claims{}, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		t := exp.Time
		claims.ExpiresAt = &t
	}

	return claims, nil
}
