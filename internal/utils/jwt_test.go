package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }
func newClock() *fakeClock { return &fakeClock{t: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)} }
func newCodec(c *fakeClock) *TokenCodec { return NewTokenCodec("test-secret").WithClock(c.now) }

func TestTokenCodec_RoundTrip(t *testing.T) {
	clk := newClock()
	codec := newCodec(clk)

	extra := map[string]any{
		ClaimUserID:    "u-1",
		ClaimTokenType: TokenTypeAccess,
		"scope":        "profile",
		"level":        float64(3),
	}
	tok, err := codec.Issue("alice@example.com", 15*time.Minute, extra)
	require.NoError(t, err)
	assert.Equal(t, clk.t.Add(15*time.Minute), tok.Exp)

	claims, err := codec.Decode(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Subject)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, map[string]any{"scope": "profile", "level": float64(3)}, claims.Extra)
	assert.Equal(t, clk.t.Add(15*time.Minute), claims.ExpiresAt)
	assert.Equal(t, clk.t, claims.IssuedAt)
}

func TestTokenCodec_ExtraCannotOverrideReserved(t *testing.T) {
	clk := newClock()
	codec := newCodec(clk)

	tok, err := codec.Issue("alice@example.com", time.Minute, map[string]any{
		ClaimSubject: "mallory@example.com",
		ClaimExpiry:  clk.t.Add(24 * time.Hour).Unix(),
	})
	require.NoError(t, err)

	claims, err := codec.Decode(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Subject)
	assert.Equal(t, clk.t.Add(time.Minute), claims.ExpiresAt)
}

func TestTokenCodec_Expired(t *testing.T) {
	clk := newClock()
	codec := newCodec(clk)

	tok, err := codec.Issue("alice@example.com", time.Minute, map[string]any{ClaimTokenType: TokenTypeRefresh})
	require.NoError(t, err)

	clk.advance(time.Minute)
	claims, err := codec.Decode(tok.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	require.NotNil(t, claims)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
	assert.Equal(t, "alice@example.com", claims.Subject)
}

func TestTokenCodec_Tampered(t *testing.T) {
	codec := newCodec(newClock())
	tok, err := codec.Issue("alice@example.com", time.Hour, nil)
	require.NoError(t, err)

	parts := strings.Split(tok.Token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"tampered":     tampered,
		"other secret": mustIssue(t, NewTokenCodec("another-secret").WithClock(newClock().now)),
		"expired forged": mustIssue(t, NewTokenCodec("another-secret").WithClock(func() time.Time {
			return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
		})),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			claims, err := codec.Decode(raw)
			assert.ErrorIs(t, err, ErrInvalidSignature)
			assert.Nil(t, claims)
		})
	}
}

func TestTokenCodec_RejectsOtherAlgorithms(t *testing.T) {
	clk := newClock()
	codec := newCodec(clk)
	claims := jwt.MapClaims{"sub": "alice@example.com", "exp": clk.t.Add(time.Hour).Unix()}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.Decode(none)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = codec.Decode(hs512)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenCodec_RequiresExpiry(t *testing.T) {
	codec := newCodec(newClock())
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice@example.com"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = codec.Decode(raw)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenDigest(t *testing.T) {
	d := TokenDigest("abc")
	assert.Len(t, d, 64)
	assert.Equal(t, d, TokenDigest("abc"))
	assert.NotEqual(t, d, TokenDigest("abd"))
}

func mustIssue(t *testing.T, c *TokenCodec) string {
	t.Helper()
	tok, err := c.Issue("alice@example.com", time.Hour, nil)
	require.NoError(t, err)
	return tok.Token
}
