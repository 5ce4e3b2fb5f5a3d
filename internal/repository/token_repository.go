package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/user-auth-service/internal/model"
	"github.com/iliyamo/user-auth-service/internal/utils"
)

// RefreshTokensTable maps model.RefreshToken onto `refresh_tokens`. Tokens
// are matched on token_hash; the token column is too wide to index.
var RefreshTokensTable = Table[model.RefreshToken]{
	Name:    "refresh_tokens",
	Columns: []string{"id", "user_id", "token", "token_hash", "created_at", "updated_at"},
	Scan: func(s Scanner) (*model.RefreshToken, error) {
		var t model.RefreshToken
		if err := s.Scan(&t.ID, &t.UserID, &t.Token, &t.TokenHash, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		return &t, nil
	},
	Values: func(t *model.RefreshToken) []any {
		return []any{t.ID, t.UserID, t.Token, t.TokenHash, t.CreatedAt, t.UpdatedAt}
	},
	Prepare: func(t *model.RefreshToken, now time.Time) {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		t.TokenHash = utils.TokenDigest(t.Token)
		t.CreatedAt, t.UpdatedAt = now, now
	},
}

// RefreshTokenRepo persists issued refresh tokens.
type RefreshTokenRepo struct {
	*SQLRepo[model.RefreshToken]
}

func NewRefreshTokenRepo(db DBTX) *RefreshTokenRepo {
	return &RefreshTokenRepo{SQLRepo: NewSQLRepo(db, RefreshTokensTable)}
}

// FindActiveForUser returns the newest refresh token of the user that has
// not been blacklisted. Whether it is still unexpired is for the caller to
// decide. ErrNotFound when there is none.
func (r *RefreshTokenRepo) FindActiveForUser(ctx context.Context, userID string) (*model.RefreshToken, error) {
	return r.First(ctx,
		"user_id = ? AND NOT EXISTS (SELECT 1 FROM blacklisted_tokens b WHERE b.token_hash = refresh_tokens.token_hash) "+
			"ORDER BY created_at DESC LIMIT 1",
		userID)
}

// Store records a freshly minted refresh token for userID.
func (r *RefreshTokenRepo) Store(ctx context.Context, userID, token string) error {
	return r.Create(ctx, &model.RefreshToken{UserID: userID, Token: token})
}

// BlacklistRepo is the append-only ledger of revoked refresh tokens. Only the
// SHA-256 digest of a token is stored. Rows have no foreign key, so they
// outlive the user.
type BlacklistRepo struct {
	db  DBTX
	now func() time.Time
}

func NewBlacklistRepo(db DBTX) *BlacklistRepo {
	return &BlacklistRepo{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Contains reports whether token has been blacklisted.
func (r *BlacklistRepo) Contains(ctx context.Context, token string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM blacklisted_tokens WHERE token_hash = ?", utils.TokenDigest(token)).Scan(&n)
	if err != nil {
		return false, translate(err, "blacklisted_tokens.Contains")
	}
	return n > 0, nil
}

// Add appends token to the ledger. Adding a token twice is a no-op.
func (r *BlacklistRepo) Add(ctx context.Context, userID, token string) error {
	now := r.now()
	_, err := r.db.ExecContext(ctx,
		"INSERT IGNORE INTO blacklisted_tokens (id, user_id, token_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		uuid.NewString(), userID, utils.TokenDigest(token), now, now)
	return translate(err, "blacklisted_tokens.Add")
}
