package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/iliyamo/user-auth-service/internal/logging"
	"github.com/iliyamo/user-auth-service/internal/model"
	"github.com/iliyamo/user-auth-service/internal/repository"
	"github.com/iliyamo/user-auth-service/internal/utils"
	"github.com/iliyamo/user-auth-service/internal/workerpool"
)

// MaxBatch is the largest accepted create-batch request.
const MaxBatch = 100

// BirthdayLayout is the wire format of user_birthday.
const BirthdayLayout = "2006-01-02"

// NewUser is a registration request.
type NewUser struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Name     string `json:"name" validate:"required,max=100"`
	Surname  string `json:"surname" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// UserInfo holds the optional profile attributes. Nil fields are left
// untouched.
type UserInfo struct {
	Gender       *model.Gender       `json:"user_gender,omitempty" validate:"omitempty,oneof=MALE FEMALE"`
	Birthday     *string             `json:"user_birthday,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Preferences  map[string]any      `json:"user_preferences,omitempty"`
	Avatar       *string             `json:"user_avatar,omitempty" validate:"omitempty,max=255"`
	Weight       *float64            `json:"user_weight,omitempty" validate:"omitempty,gt=0,lt=1000"`
	Height       *float64            `json:"user_height,omitempty" validate:"omitempty,gt=0,lt=400"`
	Subscription *model.Subscription `json:"user_subscription,omitempty" validate:"omitempty,oneof=FREE PRO ENTERPRISE"`
}

// UserPatch is a partial update. Preferences given here replace the stored
// object; use MergeInfo to merge keys instead.
type UserPatch struct {
	Username *string `json:"username,omitempty" validate:"omitempty,min=3,max=64"`
	Name     *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Surname  *string `json:"surname,omitempty" validate:"omitempty,max=100"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6,max=72"`
	UserInfo
}

func (i UserInfo) empty() bool {
	return i.Gender == nil && i.Birthday == nil && i.Preferences == nil && i.Avatar == nil &&
		i.Weight == nil && i.Height == nil && i.Subscription == nil
}

// changes converts the set fields to repository column values.
func (i UserInfo) changes() (map[string]any, error) {
	out := map[string]any{}
	if i.Gender != nil {
		if !i.Gender.Valid() {
			return nil, errors.Wrapf(ErrValidation, "unknown gender %q", *i.Gender)
		}
		out[repository.ColGender] = *i.Gender
	}
	if i.Birthday != nil {
		t, err := time.Parse(BirthdayLayout, *i.Birthday)
		if err != nil {
			return nil, errors.Wrapf(ErrValidation, "user_birthday must look like %s", BirthdayLayout)
		}
		out[repository.ColBirthday] = t
	}
	if i.Preferences != nil {
		b, err := json.Marshal(i.Preferences)
		if err != nil {
			return nil, errors.Wrap(ErrValidation, "user_preferences")
		}
		out[repository.ColPreferences] = string(b)
	}
	if i.Avatar != nil {
		out[repository.ColAvatar] = *i.Avatar
	}
	if i.Weight != nil {
		out[repository.ColWeight] = *i.Weight
	}
	if i.Height != nil {
		out[repository.ColHeight] = *i.Height
	}
	if i.Subscription != nil {
		if !i.Subscription.Valid() {
			return nil, errors.Wrapf(ErrValidation, "unknown subscription %q", *i.Subscription)
		}
		out[repository.ColSubscription] = *i.Subscription
	}
	return out, nil
}

// UserService manages user records.
type UserService struct {
	users UserStore
	pool  *workerpool.Pool
	cost  int
	log   logging.Logger
}

func NewUserService(users UserStore, pool *workerpool.Pool, bcryptCost int, log logging.Logger) *UserService {
	return &UserService{users: users, pool: pool, cost: bcryptCost, log: log}
}

// checkPassword rejects what bcrypt would refuse. The max tag counts runes,
// bcrypt counts bytes.
func checkPassword(password string) error {
	if len(password) > utils.MaxPasswordBytes {
		return errors.Wrapf(ErrValidation, "password must be at most %d bytes", utils.MaxPasswordBytes)
	}
	return nil
}

func (s *UserService) hash(ctx context.Context, password string) (string, error) {
	if err := checkPassword(password); err != nil {
		return "", err
	}
	return workerpool.Run(ctx, s.pool, func() (string, error) {
		return utils.HashPassword(password, s.cost)
	})
}

// Create registers one user.
func (s *UserService) Create(ctx context.Context, in NewUser) (*model.User, error) {
	hash, err := s.hash(ctx, in.Password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	u := newModel(in, hash)
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fromRepo(err, "create user")
	}
	s.log.Info(ctx, "user created", "user_id", u.ID)
	return u, nil
}

// CreateBatch registers up to MaxBatch users with one insert. A duplicate
// within the batch or against stored users rejects the whole batch.
func (s *UserService) CreateBatch(ctx context.Context, in []NewUser) ([]*model.User, error) {
	if len(in) == 0 || len(in) > MaxBatch {
		return nil, errors.Wrapf(ErrValidation, "batch must hold 1 to %d users", MaxBatch)
	}
	emails := make(map[string]bool, len(in))
	names := make(map[string]bool, len(in))
	for _, nu := range in {
		email := repository.NormalizeEmail(nu.Email)
		if emails[email] {
			return nil, errors.Wrapf(ErrConflict, "email %s repeated in batch", email)
		}
		if names[nu.Username] {
			return nil, errors.Wrapf(ErrConflict, "username %s repeated in batch", nu.Username)
		}
		if err := checkPassword(nu.Password); err != nil {
			return nil, errors.Wrapf(err, "user %s", nu.Username)
		}
		emails[email], names[nu.Username] = true, true
	}

	users, err := workerpool.Map(ctx, s.pool, in, func(ctx context.Context, nu NewUser) (*model.User, error) {
		hash, err := utils.HashPassword(nu.Password, s.cost)
		if err != nil {
			return nil, err
		}
		return newModel(nu, hash), nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "hash passwords")
	}
	if err := s.users.CreateMany(ctx, users); err != nil {
		return nil, fromRepo(err, "create users")
	}
	s.log.Info(ctx, "users created", "count", len(users))
	return users, nil
}

func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	us, err := s.users.All(ctx)
	return us, fromRepo(err, "list users")
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	return u, fromRepo(err, "get user")
}

func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	return u, fromRepo(err, "get user")
}

// Update applies a partial update. An empty patch is a validation error.
func (s *UserService) Update(ctx context.Context, id string, p UserPatch) (*model.User, error) {
	changes, err := p.UserInfo.changes()
	if err != nil {
		return nil, err
	}
	if p.Username != nil {
		changes[repository.ColUsername] = *p.Username
	}
	if p.Name != nil {
		changes[repository.ColName] = *p.Name
	}
	if p.Surname != nil {
		changes[repository.ColSurname] = *p.Surname
	}
	if p.Email != nil {
		changes[repository.ColEmail] = repository.NormalizeEmail(*p.Email)
	}
	if len(changes) == 0 && p.Password == nil {
		return nil, errors.Wrap(ErrValidation, "no fields to update")
	}
	if p.Password != nil {
		hash, err := s.hash(ctx, *p.Password)
		if err != nil {
			return nil, errors.Wrap(err, "hash password")
		}
		changes[repository.ColPasswordHash] = hash
	}
	u, err := s.users.Update(ctx, id, changes)
	if err != nil {
		return nil, fromRepo(err, "update user")
	}
	s.log.Info(ctx, "user updated", "user_id", id, "fields", len(changes))
	return u, nil
}

// Delete removes the user and, by cascade, its refresh tokens. Revoked
// tokens stay in the ledger.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return fromRepo(err, "delete user")
	}
	s.log.Info(ctx, "user deleted", "user_id", id)
	return nil
}

// MergeInfo sets profile attributes on an existing user. Preference keys
// are merged into the stored object, new values winning.
func (s *UserService) MergeInfo(ctx context.Context, id string, info UserInfo) (*model.User, error) {
	if info.empty() {
		return nil, errors.Wrap(ErrValidation, "no profile fields given")
	}
	cur, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "get user")
	}
	changes, err := info.changes()
	if err != nil {
		return nil, err
	}
	if info.Preferences != nil {
		merged, err := mergePreferences(cur.Preferences, info.Preferences)
		if err != nil {
			return nil, err
		}
		changes[repository.ColPreferences] = merged
	}
	u, err := s.users.Update(ctx, id, changes)
	if err != nil {
		return nil, fromRepo(err, "update user info")
	}
	return u, nil
}

// mergePreferences overlays add onto the stored JSON object. A stored value
// that is not an object is replaced.
func mergePreferences(stored json.RawMessage, add map[string]any) (string, error) {
	base := map[string]any{}
	if len(stored) > 0 {
		if err := json.Unmarshal(stored, &base); err != nil || base == nil {
			base = map[string]any{}
		}
	}
	for k, v := range add {
		base[k] = v
	}
	b, err := json.Marshal(base)
	if err != nil {
		return "", errors.Wrap(ErrValidation, "user_preferences")
	}
	return string(b), nil
}

func newModel(in NewUser, hash string) *model.User {
	return &model.User{
		Username:     in.Username,
		Name:         in.Name,
		Surname:      in.Surname,
		Email:        repository.NormalizeEmail(in.Email),
		PasswordHash: hash,
	}
}
