// Package server wires the authkeeper server together: configuration, user
// storage, the auth service, and the gRPC and observability endpoints.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/observability"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/sethvargo/go-retry"
	"golang.org/x/crypto/bcrypt"

	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
)

const dbPingAttempts = 5

// initial delay between database pings; doubles on each attempt
var dbPingBackoff = 500 * time.Millisecond

type App struct {
	config        *config.Config
	logger        logging.Logger
	db            *sql.DB
	grpcServer    *gs.GRPCServer
	observability *observability.Server
}

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, c.Debug)

	app := &App{config: c, logger: logger}

	var metrics *observability.Metrics
	if c.MetricsAddr != "" {
		app.observability = observability.NewServer(c.MetricsAddr, logger, app.ready)
		metrics = app.observability.Metrics()
	}

	var rm repomanager.RepositoryManager
	switch c.StorageBackend {
	case config.StorageMemory:
		logger.Warn(ctx, "using in-memory user storage, data is lost on restart")
		rm = repomanager.NewMemoryRepositoryManager()
	default:
		db, err := app.initDB(ctx)
		if err != nil {
			return nil, err
		}
		app.db = db
		rm = repomanager.NewPostgresRepositoryManager()

		if err := rm.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations error: %w", err)
		}
	}

	as := services.NewAuthService(app.db, rm, auth.NewBcryptHasher(bcrypt.DefaultCost), c, metrics, logger)
	app.grpcServer = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, as)

	return app, nil
}

// initDB opens the pool and pings it with exponential backoff, since the
// database container may still be starting.
func (app *App) initDB(ctx context.Context) (*sql.DB, error) {
	db, err := openDB(app.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	backoff := retry.WithMaxRetries(dbPingAttempts-1, retry.NewExponential(dbPingBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			app.logger.Warn(ctx, "database not reachable, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	return db, nil
}

func (app *App) ready() bool {
	return app.grpcServer != nil && app.grpcServer.Serving()
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpcServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startObservabilityServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.observability.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a signal arrives or a server fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.StorageBackend, "debug", app.config.Debug)

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.observability != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startObservabilityServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(context.Background(), "close error", "error", err)
	}

	app.logger.Info(context.Background(), "App stopped")
}

func (app *App) Close() error {
	if app.db == nil {
		return nil
	}
	err := app.db.Close()
	app.db = nil
	if err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}
