// Package service holds the business logic behind the HTTP handlers: the
// token lifecycle (AuthService) and user management (UserService).
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/iliyamo/user-auth-service/internal/logging"
	"github.com/iliyamo/user-auth-service/internal/model"
	"github.com/iliyamo/user-auth-service/internal/repository"
	"github.com/iliyamo/user-auth-service/internal/utils"
	"github.com/iliyamo/user-auth-service/internal/workerpool"
)

// UserStore is the credential store.
type UserStore interface {
	repository.Repository[model.User]
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// RefreshTokenStore records issued refresh tokens.
type RefreshTokenStore interface {
	FindActiveForUser(ctx context.Context, userID string) (*model.RefreshToken, error)
	Store(ctx context.Context, userID, token string) error
}

// Ledger is the append-only set of revoked refresh tokens.
type Ledger interface {
	Contains(ctx context.Context, token string) (bool, error)
	Add(ctx context.Context, userID, token string) error
}

// TokenStatus is the outcome of checking one token.
type TokenStatus int

const (
	TokenValid TokenStatus = iota
	TokenMissing
	TokenMalformed
	TokenExpired
	TokenRevoked
	TokenWrongType
)

func (s TokenStatus) String() string {
	switch s {
	case TokenValid:
		return "valid"
	case TokenMissing:
		return "missing"
	case TokenMalformed:
		return "malformed"
	case TokenExpired:
		return "expired"
	case TokenRevoked:
		return "revoked"
	case TokenWrongType:
		return "wrong_type"
	}
	return "unknown"
}

// TokenCheck is the result of validating a token. Claims is set whenever
// the token decoded, including when it has expired.
type TokenCheck struct {
	Status TokenStatus
	Claims *utils.Claims
}

func (c TokenCheck) Valid() bool { return c.Status == TokenValid }

// TokenPair is what a successful login hands to the cookie layer.
type TokenPair struct {
	Access  utils.SignedToken
	Refresh utils.SignedToken
}

// Session describes an authenticated request. Reissued is set when the
// access token was minted from the refresh token during this request.
type Session struct {
	Claims   *utils.Claims
	Reissued *utils.SignedToken
}

// AuthConfig carries the token lifetimes and logout policy. BcryptCost must
// match the cost user passwords are hashed with.
type AuthConfig struct {
	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	LogoutRevokesRefresh bool
	BcryptCost           int
}

// AuthService runs the token lifecycle.
type AuthService struct {
	users   UserStore
	refresh RefreshTokenStore
	ledger  Ledger
	codec   *utils.TokenCodec
	pool    *workerpool.Pool
	cfg     AuthConfig
	dummy   string
	log     logging.Logger
}

func NewAuthService(users UserStore, refresh RefreshTokenStore, ledger Ledger, codec *utils.TokenCodec,
	pool *workerpool.Pool, cfg AuthConfig, log logging.Logger) *AuthService {
	return &AuthService{
		users:   users,
		refresh: refresh,
		ledger:  ledger,
		codec:   codec,
		pool:    pool,
		cfg:     cfg,
		dummy:   utils.DummyHash(cfg.BcryptCost),
		log:     log,
	}
}

// Check validates raw as a token of type want without side effects. For
// refresh tokens the ledger is consulted before decoding. The error is only
// non-nil when the ledger could not be read.
func (s *AuthService) Check(ctx context.Context, raw, want string) (TokenCheck, error) {
	if raw == "" {
		return TokenCheck{Status: TokenMissing}, nil
	}
	if want == utils.TokenTypeRefresh {
		revoked, err := s.ledger.Contains(ctx, raw)
		if err != nil {
			return TokenCheck{}, errors.Wrap(err, "check blacklist")
		}
		if revoked {
			return TokenCheck{Status: TokenRevoked}, nil
		}
	}
	claims, err := s.codec.Decode(raw)
	switch {
	case errors.Is(err, utils.ErrTokenExpired):
		return TokenCheck{Status: TokenExpired, Claims: claims}, nil
	case err != nil:
		return TokenCheck{Status: TokenMalformed}, nil
	case claims.TokenType != want:
		return TokenCheck{Status: TokenWrongType, Claims: claims}, nil
	}
	return TokenCheck{Status: TokenValid, Claims: claims}, nil
}

// ReapExpired blacklists an expired refresh token so later presentations
// are rejected by the ledger lookup alone. Other tokens are ignored.
func (s *AuthService) ReapExpired(ctx context.Context, raw string, claims *utils.Claims) error {
	if raw == "" || claims == nil || claims.TokenType != utils.TokenTypeRefresh {
		return nil
	}
	if err := s.ledger.Add(ctx, claims.UserID, raw); err != nil {
		return errors.Wrap(err, "blacklist expired refresh token")
	}
	s.log.Info(ctx, "expired refresh token blacklisted", "user_id", claims.UserID)
	return nil
}

// Validate is Check followed by ReapExpired for an expired refresh token.
func (s *AuthService) Validate(ctx context.Context, raw, want string) (TokenCheck, error) {
	chk, err := s.Check(ctx, raw, want)
	if err != nil {
		return chk, err
	}
	if chk.Status == TokenExpired && want == utils.TokenTypeRefresh {
		if err := s.ReapExpired(ctx, raw, chk.Claims); err != nil {
			return chk, err
		}
	}
	return chk, nil
}

// Authenticate resolves the access/refresh cookie pair of a request. A valid
// access token wins; otherwise a valid refresh token mints a new access
// token. Anything else is ErrUnauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, access, refresh string) (*Session, error) {
	ac, err := s.Validate(ctx, access, utils.TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	if ac.Valid() {
		return &Session{Claims: ac.Claims}, nil
	}

	rc, err := s.Validate(ctx, refresh, utils.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if !rc.Valid() {
		s.log.Debug(ctx, "request rejected", "access", ac.Status.String(), "refresh", rc.Status.String())
		return nil, ErrUnauthenticated
	}
	// A refresh token outlives the account it was issued to.
	if _, err := s.users.GetByID(ctx, rc.Claims.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Debug(ctx, "request rejected", "refresh", "user_deleted", "user_id", rc.Claims.UserID)
			return nil, ErrUnauthenticated
		}
		return nil, errors.Wrap(err, "load user")
	}

	tok, err := s.issue(ctx, rc.Claims.Subject, rc.Claims.UserID, utils.TokenTypeAccess, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	s.log.Debug(ctx, "access token reissued", "user_id", rc.Claims.UserID, "access", ac.Status.String())
	return &Session{
		Claims: &utils.Claims{
			Subject:   rc.Claims.Subject,
			UserID:    rc.Claims.UserID,
			TokenType: utils.TokenTypeAccess,
			ExpiresAt: tok.Exp,
			IssuedAt:  tok.Exp.Add(-s.cfg.AccessTTL),
		},
		Reissued: &tok,
	}, nil
}

// Login checks credentials and returns an access token plus the user's
// refresh token, reusing a stored one while it is still valid.
func (s *AuthService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return TokenPair{}, errors.Wrap(err, "load user")
	}
	hash := s.dummy
	if user != nil {
		hash = user.PasswordHash
	}
	ok, err := workerpool.Run(ctx, s.pool, func() (bool, error) {
		return utils.VerifyPassword(hash, password), nil
	})
	if err != nil {
		return TokenPair{}, err
	}
	if user == nil || !ok {
		s.log.Debug(ctx, "login rejected", "user_found", user != nil)
		return TokenPair{}, ErrUnauthenticated
	}

	access, err := s.issue(ctx, user.Email, user.ID, utils.TokenTypeAccess, s.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.refreshFor(ctx, user)
	if err != nil {
		return TokenPair{}, err
	}
	s.log.Info(ctx, "user logged in", "user_id", user.ID)
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *AuthService) refreshFor(ctx context.Context, user *model.User) (utils.SignedToken, error) {
	stored, err := s.refresh.FindActiveForUser(ctx, user.ID)
	switch {
	case err == nil:
		chk, err := s.Validate(ctx, stored.Token, utils.TokenTypeRefresh)
		if err != nil {
			return utils.SignedToken{}, err
		}
		// A token minted before an email change still names the old subject.
		if chk.Valid() && chk.Claims.Subject == user.Email {
			return utils.SignedToken{Token: stored.Token, Exp: chk.Claims.ExpiresAt}, nil
		}
	case !errors.Is(err, repository.ErrNotFound):
		return utils.SignedToken{}, errors.Wrap(err, "load refresh token")
	}

	tok, err := s.issue(ctx, user.Email, user.ID, utils.TokenTypeRefresh, s.cfg.RefreshTTL)
	if err != nil {
		return utils.SignedToken{}, err
	}
	if err := s.refresh.Store(ctx, user.ID, tok.Token); err != nil {
		return utils.SignedToken{}, errors.Wrap(err, "store refresh token")
	}
	return tok, nil
}

// Logout blacklists the refresh token when the policy asks for it. Tokens
// that do not decode are ignored; the cookies are cleared regardless.
func (s *AuthService) Logout(ctx context.Context, refresh string) error {
	if !s.cfg.LogoutRevokesRefresh || refresh == "" {
		return nil
	}
	claims, err := s.codec.Decode(refresh)
	if err != nil && !errors.Is(err, utils.ErrTokenExpired) {
		return nil
	}
	if claims.TokenType != utils.TokenTypeRefresh {
		return nil
	}
	if err := s.ledger.Add(ctx, claims.UserID, refresh); err != nil {
		return errors.Wrap(err, "blacklist refresh token on logout")
	}
	s.log.Info(ctx, "refresh token revoked on logout", "user_id", claims.UserID)
	return nil
}

func (s *AuthService) issue(ctx context.Context, subject, userID, typ string, ttl time.Duration) (utils.SignedToken, error) {
	extra := map[string]any{
		utils.ClaimUserID:    userID,
		utils.ClaimTokenType: typ,
	}
	// Refresh tokens are stored under a unique key, so two minted in the
	// same second must still differ.
	if typ == utils.TokenTypeRefresh {
		extra[utils.ClaimTokenID] = uuid.NewString()
	}
	return workerpool.Run(ctx, s.pool, func() (utils.SignedToken, error) {
		return s.codec.Issue(subject, ttl, extra)
	})
}
