// Package app wires configuration, storage and services into a runnable
// HTTP server.
package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/user-auth-service/internal/cache"
	"github.com/iliyamo/user-auth-service/internal/config"
	"github.com/iliyamo/user-auth-service/internal/cookie"
	"github.com/iliyamo/user-auth-service/internal/database"
	"github.com/iliyamo/user-auth-service/internal/handler"
	"github.com/iliyamo/user-auth-service/internal/logging"
	"github.com/iliyamo/user-auth-service/internal/middleware"
	"github.com/iliyamo/user-auth-service/internal/queue"
	"github.com/iliyamo/user-auth-service/internal/repository"
	"github.com/iliyamo/user-auth-service/internal/repository/memstore"
	"github.com/iliyamo/user-auth-service/internal/router"
	"github.com/iliyamo/user-auth-service/internal/service"
	"github.com/iliyamo/user-auth-service/internal/utils"
	"github.com/iliyamo/user-auth-service/internal/workerpool"
)

// statusTTL is how long task status hashes outlive their last update.
const statusTTL = 24 * time.Hour

// Options carries dependencies that main resolves from the environment.
// Tests fill them directly.
type Options struct {
	Redis *redis.Client    // nil disables every Redis-backed feature
	Cache config.CacheConfig
	Now   func() time.Time // nil means the wall clock
}

// App holds the long-lived components of the server.
type App struct {
	Cfg   config.Config
	Log   logging.Logger
	DB    *sql.DB // nil with in-memory storage
	Redis *redis.Client

	Pool    *workerpool.Pool
	Codec   *utils.TokenCodec
	Auth    *service.AuthService
	Users   *service.UserService
	Cookies *cookie.Helper
	Cache   *middleware.ResponseCache
	Status  *queue.StatusStore
	Tasks   *queue.Publisher
}

// New opens storage for cfg.Storage and builds the services on top of it.
func New(ctx context.Context, cfg config.Config, log logging.Logger, opts Options) (*App, error) {
	if log == nil {
		log = logging.Nop()
	}
	a := &App{
		Cfg:   cfg,
		Log:   log,
		Redis: opts.Redis,
		Pool:  workerpool.New(cfg.WorkerPoolSize),
		Codec: utils.NewTokenCodec(cfg.JWTSecret),
	}
	if opts.Now != nil {
		a.Codec.WithClock(opts.Now)
	}

	var (
		users   service.UserStore
		refresh service.RefreshTokenStore
		ledger  cache.Ledger
	)
	switch cfg.Storage {
	case config.StorageMemory:
		store := memstore.New()
		if opts.Now != nil {
			store.WithClock(opts.Now)
		}
		users, refresh, ledger = store.Users(), store.RefreshTokens(), store.Blacklist()
		log.Warn(ctx, "using in-memory storage; data is lost on restart")
	default:
		db, err := database.Open(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.DBMigrate {
			if err := database.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		a.DB = db
		users = repository.NewUserRepo(db)
		refresh = repository.NewRefreshTokenRepo(db)
		ledger = repository.NewBlacklistRepo(db)
	}

	revoked := cache.NewBlacklist(ledger, opts.Redis, cfg.RefreshTTL(), log.With("component", "blacklist"))
	a.Auth = service.NewAuthService(users, refresh, revoked, a.Codec, a.Pool, service.AuthConfig{
		AccessTTL:            cfg.AccessTTL(),
		RefreshTTL:           cfg.RefreshTTL(),
		LogoutRevokesRefresh: cfg.LogoutRevokesRefresh,
		BcryptCost:           cfg.BcryptCost,
	}, log.With("component", "auth"))
	a.Users = service.NewUserService(users, a.Pool, cfg.BcryptCost, log.With("component", "users"))
	a.Cookies = cookie.NewHelper(cookie.Config{
		Secure:     cfg.CookieSecure,
		AccessTTL:  cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
	})
	a.Cache = middleware.NewResponseCache(opts.Cache, opts.Redis, log.With("component", "cache"))
	a.Status = queue.NewStatusStore(opts.Redis, statusTTL)
	a.Tasks = queue.NewPublisher(cfg.RabbitURL, cfg.Tasks.Queue, cfg.Tasks.MaxRetries, a.Status, log.With("component", "tasks"))
	return a, nil
}

// pinger hides a nil *sql.DB behind a nil interface.
func (a *App) pinger() handler.Pinger {
	if a.DB == nil {
		return nil
	}
	return a.DB
}

// Echo builds the HTTP server with every route registered.
func (a *App) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(a.Log))

	requireAuth := middleware.CookieAuth(a.Auth, a.Cookies, a.Log)

	router.RegisterRoutes(e, a.pinger())
	router.RegisterAuth(e, handler.NewAuthHandler(a.Auth, a.Cookies, a.Log), requireAuth)
	router.RegisterUsers(e, handler.NewUserHandler(a.Users, a.Cache, a.Log), requireAuth, a.Cache.Handler())
	router.RegisterTasks(e, handler.NewTaskHandler(a.Tasks, a.Status, a.Log), requireAuth)
	return e
}

// Serve runs e on addr until ctx ends, then shuts down gracefully.
func (a *App) Serve(ctx context.Context, e *echo.Echo, addr string) error {
	errc := make(chan error, 1)
	go func() {
		a.Log.Info(ctx, "listening", "addr", addr, "env", a.Cfg.Env, "storage", a.Cfg.Storage)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Log.Info(shutdownCtx, "shutting down")
	return e.Shutdown(shutdownCtx)
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	var errs []error
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
