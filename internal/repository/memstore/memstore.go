// Package memstore keeps users and token ledgers in process memory. It backs
// APP_STORAGE=memory for local runs and load tests, and gives the service
// and handler tests a storage layer with the same semantics as MySQL:
// unique emails and usernames, all-or-nothing batch inserts, deletes that
// cascade to refresh tokens and a write-once blacklist that outlives users.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/iliyamo/user-auth-service/internal/model"
	"github.com/iliyamo/user-auth-service/internal/repository"
	"github.com/iliyamo/user-auth-service/internal/utils"
)

// Store owns every table; the accessors return views sharing one lock.
type Store struct {
	mu        sync.RWMutex
	users     map[string]*model.User
	order     []string
	refresh   []*model.RefreshToken
	blacklist map[string]*model.BlacklistedToken
	now       func() time.Time
}

func New() *Store {
	return &Store{
		users:     map[string]*model.User{},
		blacklist: map[string]*model.BlacklistedToken{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Users() *Users                 { return &Users{s: s} }
func (s *Store) RefreshTokens() *RefreshTokens { return &RefreshTokens{s: s} }
func (s *Store) Blacklist() *Blacklist         { return &Blacklist{s: s} }

// Users implements repository.Repository[model.User].
type Users struct{ s *Store }

var _ repository.Repository[model.User] = (*Users)(nil)

func (u *Users) All(_ context.Context) ([]*model.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	out := make([]*model.User, 0, len(u.s.order))
	for _, id := range u.s.order {
		out = append(out, cloneUser(u.s.users[id]))
	}
	return out, nil
}

func (u *Users) GetByField(_ context.Context, field string, value any) (*model.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	want := fmt.Sprint(value)
	for _, id := range u.s.order {
		usr := u.s.users[id]
		var got string
		switch field {
		case "id":
			got = usr.ID
		case repository.ColEmail:
			got = usr.Email
		case repository.ColUsername:
			got = usr.Username
		default:
			return nil, errors.Wrapf(repository.ErrUnknownField, "users.%s", field)
		}
		if got == want {
			return cloneUser(usr), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (u *Users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return u.GetByField(ctx, repository.ColEmail, repository.NormalizeEmail(email))
}

func (u *Users) GetByID(ctx context.Context, id string) (*model.User, error) {
	return u.GetByField(ctx, "id", id)
}

func (u *Users) Create(ctx context.Context, v *model.User) error {
	return u.CreateMany(ctx, []*model.User{v})
}

func (u *Users) CreateMany(_ context.Context, vs []*model.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	now := u.s.now()
	emails, names := map[string]bool{}, map[string]bool{}
	for _, usr := range u.s.users {
		emails[usr.Email], names[usr.Username] = true, true
	}
	for _, v := range vs {
		email := repository.NormalizeEmail(v.Email)
		if emails[email] || names[v.Username] {
			return errors.Wrap(repository.ErrConflict, "users.Create: duplicate entry")
		}
		emails[email], names[v.Username] = true, true
	}
	for _, v := range vs {
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		v.Email = repository.NormalizeEmail(v.Email)
		v.CreatedAt, v.UpdatedAt = now, now
		u.s.users[v.ID] = cloneUser(v)
		u.s.order = append(u.s.order, v.ID)
	}
	return nil
}

func (u *Users) Update(_ context.Context, id string, changes map[string]any) (*model.User, error) {
	if len(changes) == 0 {
		return nil, errors.New("update without changes")
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	cur, ok := u.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	next := cloneUser(cur)
	for col, val := range changes {
		if err := applyUserChange(next, col, val); err != nil {
			return nil, err
		}
	}
	for _, other := range u.s.users {
		if other.ID != id && (other.Email == next.Email || other.Username == next.Username) {
			return nil, errors.Wrap(repository.ErrConflict, "users.Update: duplicate entry")
		}
	}
	next.UpdatedAt = u.s.now()
	u.s.users[id] = next
	return cloneUser(next), nil
}

func (u *Users) Delete(_ context.Context, id string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, ok := u.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(u.s.users, id)
	for i, v := range u.s.order {
		if v == id {
			u.s.order = append(u.s.order[:i], u.s.order[i+1:]...)
			break
		}
	}
	kept := u.s.refresh[:0]
	for _, t := range u.s.refresh {
		if t.UserID != id {
			kept = append(kept, t)
		}
	}
	u.s.refresh = kept
	return nil
}

// RefreshTokens mirrors repository.RefreshTokenRepo.
type RefreshTokens struct{ s *Store }

func (r *RefreshTokens) FindActiveForUser(_ context.Context, userID string) (*model.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := len(r.s.refresh) - 1; i >= 0; i-- {
		t := r.s.refresh[i]
		if t.UserID != userID {
			continue
		}
		if _, revoked := r.s.blacklist[t.TokenHash]; revoked {
			continue
		}
		cp := *t
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r *RefreshTokens) Store(_ context.Context, userID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[userID]; !ok {
		return errors.Errorf("refresh_tokens.Create: unknown user %s", userID)
	}
	digest := utils.TokenDigest(token)
	for _, t := range r.s.refresh {
		if t.TokenHash == digest {
			return errors.Wrap(repository.ErrConflict, "refresh_tokens.Create: duplicate entry")
		}
	}
	now := r.s.now()
	r.s.refresh = append(r.s.refresh, &model.RefreshToken{
		ID: uuid.NewString(), UserID: userID, Token: token, TokenHash: digest, CreatedAt: now, UpdatedAt: now,
	})
	return nil
}

// Count returns how many refresh tokens are stored for userID.
func (r *RefreshTokens) Count(userID string) int {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, t := range r.s.refresh {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

// Blacklist mirrors repository.BlacklistRepo.
type Blacklist struct{ s *Store }

func (b *Blacklist) Contains(_ context.Context, token string) (bool, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	_, ok := b.s.blacklist[utils.TokenDigest(token)]
	return ok, nil
}

func (b *Blacklist) Add(_ context.Context, userID, token string) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	digest := utils.TokenDigest(token)
	if _, ok := b.s.blacklist[digest]; ok {
		return nil
	}
	now := b.s.now()
	b.s.blacklist[digest] = &model.BlacklistedToken{
		ID: uuid.NewString(), UserID: userID, TokenHash: digest, CreatedAt: now, UpdatedAt: now,
	}
	return nil
}

// Len returns the number of blacklisted tokens.
func (b *Blacklist) Len() int {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	return len(b.s.blacklist)
}

func cloneUser(u *model.User) *model.User {
	cp := *u
	if u.Preferences != nil {
		cp.Preferences = append(json.RawMessage(nil), u.Preferences...)
	}
	return &cp
}

// applyUserChange sets one column on u using the value types the SQL
// repository would receive as statement arguments.
func applyUserChange(u *model.User, col string, val any) error {
	bad := func() error { return errors.Errorf("users.%s: unsupported value %T", col, val) }
	str := func() (string, bool) {
		switch v := val.(type) {
		case string:
			return v, true
		case fmt.Stringer:
			return v.String(), true
		}
		return "", false
	}
	switch col {
	case repository.ColUsername, repository.ColName, repository.ColSurname,
		repository.ColEmail, repository.ColPasswordHash:
		v, ok := str()
		if !ok {
			return bad()
		}
		switch col {
		case repository.ColUsername:
			u.Username = v
		case repository.ColName:
			u.Name = v
		case repository.ColSurname:
			u.Surname = v
		case repository.ColEmail:
			u.Email = repository.NormalizeEmail(v)
		case repository.ColPasswordHash:
			u.PasswordHash = v
		}
	case repository.ColGender:
		switch v := val.(type) {
		case nil:
			u.Gender = nil
		case model.Gender:
			u.Gender = &v
		case string:
			g := model.Gender(v)
			u.Gender = &g
		default:
			return bad()
		}
	case repository.ColSubscription:
		switch v := val.(type) {
		case nil:
			u.Subscription = nil
		case model.Subscription:
			u.Subscription = &v
		case string:
			sub := model.Subscription(v)
			u.Subscription = &sub
		default:
			return bad()
		}
	case repository.ColBirthday:
		switch v := val.(type) {
		case nil:
			u.Birthday = nil
		case time.Time:
			u.Birthday = &v
		default:
			return bad()
		}
	case repository.ColPreferences:
		switch v := val.(type) {
		case nil:
			u.Preferences = nil
		case string:
			u.Preferences = json.RawMessage(v)
		default:
			return bad()
		}
	case repository.ColAvatar:
		switch v := val.(type) {
		case nil:
			u.Avatar = nil
		case string:
			u.Avatar = &v
		default:
			return bad()
		}
	case repository.ColWeight, repository.ColHeight:
		var p *float64
		switch v := val.(type) {
		case nil:
		case float64:
			p = &v
		default:
			return bad()
		}
		if col == repository.ColWeight {
			u.Weight = p
		} else {
			u.Height = p
		}
	default:
		return errors.Wrapf(repository.ErrUnknownField, "users.%s", col)
	}
	return nil
}
