package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/user-auth-service/internal/model"
)

// Column names of the users table that callers may pass to Update.
const (
	ColUsername     = "username"
	ColName         = "name"
	ColSurname      = "surname"
	ColEmail        = "email"
	ColPasswordHash = "password_hash"
	ColGender       = "user_gender"
	ColBirthday     = "user_birthday"
	ColPreferences  = "user_preferences"
	ColAvatar       = "user_avatar"
	ColWeight       = "user_weight"
	ColHeight       = "user_height"
	ColSubscription = "user_subscription"
)

// UsersTable maps model.User onto `users`.
var UsersTable = Table[model.User]{
	Name: "users",
	Columns: []string{
		"id", ColUsername, ColName, ColSurname, ColEmail, ColPasswordHash,
		ColGender, ColBirthday, ColPreferences, ColAvatar, ColWeight, ColHeight,
		ColSubscription, "created_at", "updated_at",
	},
	Scan:    scanUser,
	Values:  userValues,
	Prepare: prepareUser,
}

// NormalizeEmail is applied to every email before it is stored or queried.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func scanUser(s Scanner) (*model.User, error) {
	var (
		u            model.User
		gender       sql.NullString
		birthday     sql.NullTime
		prefs        []byte
		avatar       sql.NullString
		weight       sql.NullFloat64
		height       sql.NullFloat64
		subscription sql.NullString
	)
	err := s.Scan(&u.ID, &u.Username, &u.Name, &u.Surname, &u.Email, &u.PasswordHash,
		&gender, &birthday, &prefs, &avatar, &weight, &height, &subscription,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if gender.Valid {
		g := model.Gender(gender.String)
		u.Gender = &g
	}
	if birthday.Valid {
		b := birthday.Time
		u.Birthday = &b
	}
	if len(prefs) > 0 {
		u.Preferences = json.RawMessage(prefs)
	}
	if avatar.Valid {
		u.Avatar = &avatar.String
	}
	if weight.Valid {
		u.Weight = &weight.Float64
	}
	if height.Valid {
		u.Height = &height.Float64
	}
	if subscription.Valid {
		sub := model.Subscription(subscription.String)
		u.Subscription = &sub
	}
	return &u, nil
}

func userValues(u *model.User) []any {
	return []any{
		u.ID, u.Username, u.Name, u.Surname, u.Email, u.PasswordHash,
		nullable(u.Gender), nullable(u.Birthday), jsonText(u.Preferences),
		nullable(u.Avatar), nullable(u.Weight), nullable(u.Height),
		nullable(u.Subscription), u.CreatedAt, u.UpdatedAt,
	}
}

func prepareUser(u *model.User, now time.Time) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = NormalizeEmail(u.Email)
	u.CreatedAt = now
	u.UpdatedAt = now
}

// nullable turns a nil pointer into SQL NULL and dereferences the rest.
func nullable[V any](p *V) any {
	if p == nil {
		return nil
	}
	return *p
}

// jsonText passes JSON as text; MySQL refuses JSON built from binary strings.
func jsonText(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// UserRepo persists users.
type UserRepo struct {
	*SQLRepo[model.User]
}

func NewUserRepo(db DBTX) *UserRepo { return &UserRepo{SQLRepo: NewSQLRepo(db, UsersTable)} }

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.GetByField(ctx, ColEmail, NormalizeEmail(email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.GetByField(ctx, "id", id)
}
