// Package server assembles the gophauth server from its configuration:
// storage backends, the session core, and the HTTP and gRPC transports.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/httpapi"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	metrics  *metrics.Collector
	users    *services.UserService
	sessions *services.SessionService
	closers  []io.Closer
}

// NewApp opens the configured backends and builds the services. On error
// everything opened so far is closed again.
func NewApp(ctx context.Context, c *config.Config) (_ *App, err error) {

	app := &App{
		config:  c,
		logger:  logging.NewJSONLogger(os.Stdout, c.LogLevel),
		metrics: metrics.New(),
	}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	userRepos, err := app.openRepositories(ctx, c.StoreBackend)
	if err != nil {
		return nil, err
	}

	refresh, err := app.openRefreshStore(ctx, userRepos)
	if err != nil {
		return nil, err
	}

	hasher := auth.NewBcryptHasher(c.BcryptCost)
	tokens := auth.NewJWTService(auth.JWTConfig{
		Secret:        []byte(c.SecretKey),
		RefreshSecret: []byte(c.RefreshSecretKey),
		AccessTTL:     c.AccessTokenTTL,
		RefreshTTL:    c.RefreshTokenTTL,
	})

	app.users = services.NewUserService(userRepos.Users(), hasher, app.logger)
	app.sessions = services.NewSessionService(userRepos.Users(), app.users, hasher, tokens, refresh, c.RefreshTokenTTL,
		services.WithLogger(app.logger),
		services.WithRecorder(app.metrics),
	)

	return app, nil
}

func (app *App) openRepositories(ctx context.Context, backend string) (repomanager.RepositoryManager, error) {
	switch backend {
	case config.BackendMemory:
		return repomanager.NewMemoryRepositoryManager(), nil
	case config.BackendPostgres:
		db, err := repomanager.OpenPostgres(ctx, app.config.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		rm := repomanager.NewPostgresRepositoryManager(db)
		app.closers = append(app.closers, rm)
		if err := rm.RunMigrations(ctx); err != nil {
			return nil, err
		}
		return rm, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// openRefreshStore returns the refresh-token store, reusing the user
// backend when both are the same.
func (app *App) openRefreshStore(ctx context.Context, userRepos repomanager.RepositoryManager) (refreshtokens.Repository, error) {
	c := app.config
	backend := c.EffectiveRefreshStore()

	if backend == c.StoreBackend {
		return userRepos.RefreshTokens(), nil
	}
	if backend != config.BackendRedis {
		rm, err := app.openRepositories(ctx, backend)
		if err != nil {
			return nil, err
		}
		return rm.RefreshTokens(), nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{c.RedisAddr}})
	app.closers = append(app.closers, client)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	app.logger.Info(ctx, "Refresh tokens in Redis", "address", c.RedisAddr, "prefix", c.RedisPrefix)
	return refreshtokens.NewRedisRepository(client, c.RedisPrefix, c.RedisRetention), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	policy := validation.NewPolicy(app.config.PasswordMinLength)
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.sessions, app.users, policy)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return fmt.Errorf("grpc server: %w", err)
	}
	return nil
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	policy := validation.NewPolicy(app.config.PasswordMinLength)
	h := httpapi.NewHandler(app.sessions, app.users, policy,
		httpapi.WithLogger(app.logger),
		httpapi.WithMetrics(app.metrics.Handler()),
		httpapi.WithCORSConfig(httpapi.CORSConfig{AllowedOrigins: app.config.CORSAllowedOrigins}),
	)
	s := httpapi.NewServer(app.config.HTTPAddr, h.Routes(), app.logger, app.config.ShutdownTimeout)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Run serves until ctx is cancelled, a termination signal arrives or one
// of the servers fails, then releases the backends.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	start := func(run func(context.Context, context.CancelFunc) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx, cancelFunc); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}

	if app.config.GRPCAddr != "" {
		start(app.startGRPCServer)
	}
	if app.config.HTTPAddr != "" {
		start(app.startHTTPServer)
	}

	wg.Wait()

	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
	errs = append(errs, app.Close())
	return errors.Join(errs...)
}

// Close releases the storage backends.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		errs = append(errs, app.closers[i].Close())
	}
	app.closers = nil
	return errors.Join(errs...)
}
