package utils // package utils provides helpers for token signing and password hashing

import (
	"crypto/sha256" // SHA‑256 digests of tokens for cache keys
	"encoding/hex"  // hex encoding of digests
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// Token types carried in the token_type claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claim names with a fixed meaning.
const (
	ClaimSubject   = "sub"
	ClaimExpiry    = "exp"
	ClaimIssuedAt  = "iat"
	ClaimUserID    = "user_id"
	ClaimTokenType = "token_type"
	ClaimTokenID   = "jti"
)

var (
	// ErrInvalidSignature covers every token that cannot be trusted: bad
	// encoding, forged or missing signature, unexpected algorithm or a
	// missing exp claim.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrTokenExpired is returned together with the decoded claims when the
	// signature verifies but exp has passed.
	ErrTokenExpired = errors.New("token expired")
)

// SignedToken is a serialized JWT along with its expiry.
type SignedToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// Claims is the decoded payload of a token.
type Claims struct {
	Subject   string
	UserID    string
	TokenType string
	ExpiresAt time.Time
	IssuedAt  time.Time
	// Extra holds every claim not listed above, as decoded from JSON.
	Extra map[string]any
}

// TokenCodec signs and verifies HS256 tokens with a shared secret.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

// NewTokenCodec returns a codec using the wall clock.
func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the codec clock. Issue and Decode both read it.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	c.now = now
	return c
}

// Issue signs a token for subject that expires ttl from now. extra is
// copied into the payload; it cannot override sub, exp or iat.
func (c *TokenCodec) Issue(subject string, ttl time.Duration, extra map[string]any) (SignedToken, error) {
	now := c.now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{}
	for k, v := range extra {
		claims[k] = v
	}
	claims[ClaimSubject] = subject
	claims[ClaimExpiry] = exp.Unix()
	claims[ClaimIssuedAt] = now.Unix()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: time.Unix(exp.Unix(), 0).UTC()}, nil
}

// Decode verifies raw and returns its claims. An expired token still yields
// its claims alongside ErrTokenExpired so callers can act on it.
func (c *TokenCodec) Decode(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidSignature
	}
	mc := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, mc, func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
		return claimsFrom(mc), nil
	case errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return claimsFrom(mc), ErrTokenExpired
	default:
		return nil, ErrInvalidSignature
	}
}

func claimsFrom(mc jwt.MapClaims) *Claims {
	out := &Claims{Extra: map[string]any{}}
	out.Subject, _ = mc.GetSubject()
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time.UTC()
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time.UTC()
	}
	for k, v := range mc {
		switch k {
		case ClaimSubject, ClaimExpiry, ClaimIssuedAt:
		case ClaimUserID:
			out.UserID, _ = v.(string)
		case ClaimTokenType:
			out.TokenType, _ = v.(string)
		default:
			out.Extra[k] = v
		}
	}
	return out
}

// TokenDigest returns the SHA‑256 of a token as a hex string. It is used
// where a token needs a fixed-size key that does not reveal the token.
func TokenDigest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
