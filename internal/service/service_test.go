package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/user-auth-service/internal/logging"
	"github.com/iliyamo/user-auth-service/internal/repository/memstore"
	"github.com/iliyamo/user-auth-service/internal/utils"
	"github.com/iliyamo/user-auth-service/internal/workerpool"
)

const (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 30 * 24 * time.Hour
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type testEnv struct {
	clock *testClock
	store *memstore.Store
	codec *utils.TokenCodec
	auth  *AuthService
	users *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clk := &testClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	store := memstore.New().WithClock(clk.now)
	codec := utils.NewTokenCodec("test-secret").WithClock(clk.now)
	pool := workerpool.New(4)
	log := logging.Nop()
	cfg := AuthConfig{
		AccessTTL:            testAccessTTL,
		RefreshTTL:           testRefreshTTL,
		LogoutRevokesRefresh: true,
		BcryptCost:           bcrypt.MinCost,
	}
	return &testEnv{
		clock: clk,
		store: store,
		codec: codec,
		auth:  NewAuthService(store.Users(), store.RefreshTokens(), store.Blacklist(), codec, pool, cfg, log),
		users: NewUserService(store.Users(), pool, bcrypt.MinCost, log),
	}
}

func (e *testEnv) register(t *testing.T, username, email, password string) string {
	t.Helper()
	u, err := e.users.Create(context.Background(), NewUser{
		Username: username, Name: "Test", Surname: "User", Email: email, Password: password,
	})
	require.NoError(t, err)
	return u.ID
}
