// Package server wires and runs the development server: accounts in memory
// or PostgreSQL, the HTTP API and the gRPC endpoint, with graceful shutdown on signals.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/config"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/users"

	gs "github.com/dmitrijs2005/sessionkeeper/internal/server/grpc"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	userService *users.Service
	handlers    *httpapi.Handlers
	repos       *repositories
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel)

	ctx := context.Background()

	repos, err := openRepositories(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	us := users.NewService(repos.users, repos.refreshTokens, c)
	if err := us.Seed(ctx); err != nil {
		_ = repos.close()
		return nil, fmt.Errorf("seed error: %w", err)
	}

	return &App{
		config:      c,
		logger:      logger,
		userService: us,
		handlers:    httpapi.New(us, logger.With("module", "http_server")),
		repos:       repos,
	}, nil
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.handlers.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.handlers.Overloaded)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a signal arrives, ctx is cancelled or a server fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer func() {
		if err := app.repos.close(); err != nil {
			app.logger.Error(ctx, "error closing database", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting app...",
		"demo_accounts", []string{users.DemoPremiumEmail, users.DemoBasicEmail, users.DemoLapsedEmail},
		"access_ttl", app.config.AccessTokenValidityDuration,
	)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.EndpointAddrGRPC != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()
}
