package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/api"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/config"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/metrics"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
)

type App struct {
	config     *config.Config
	client     *api.Client
	closeStore func() error
	registry   *prometheus.Registry
	logger     logging.Logger
	reader     *bufio.Reader
	out        io.Writer
	userName   string
	conn       *grpc.ClientConn
}

func NewApp(c *config.Config) (*App, error) {
	return newApp(context.Background(), c, bufio.NewReader(os.Stdin), os.Stdout)
}

func newApp(ctx context.Context, c *config.Config, reader *bufio.Reader, out io.Writer) (*App, error) {
	logger := logging.New(os.Stderr, c.LogLevel)

	store, closeStore, err := credentials.Open(ctx, credentials.Options{
		Driver:        c.StoreDriver,
		SQLiteDSN:     c.SQLiteDSN,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		RedisPrefix:   c.RedisPrefix,
		Passphrase:    c.Passphrase,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening credential store: %w", err)
	}

	registry := prometheus.NewRegistry()
	ui := newTerminal(reader, out)

	client := api.New(store, api.Options{
		BaseURL:        c.BaseURL,
		LoginPath:      c.LoginPath,
		RefreshPath:    c.RefreshPath,
		LandingURL:     c.LandingURL,
		AccountURL:     c.AccountURL,
		RequestTimeout: c.RequestTimeout,
		RefreshTimeout: c.RefreshTimeout,
		TokenLeeway:    c.TokenLeeway,
		Navigator:      ui,
		Notifier:       ui,
		Logger:         logger,
		Metrics:        metrics.New(registry),
	})

	return &App{
		config:     c,
		client:     client,
		closeStore: closeStore,
		registry:   registry,
		logger:     logger,
		reader:     reader,
		out:        out,
	}, nil
}

// Run blocks until the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	if a.config.MetricsAddr != "" {
		stop := a.startMetricsServer(ctx, a.config.MetricsAddr)
		defer stop()
	}

	fmt.Fprintln(a.out, "Welcome to sessionkeeper CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) Close() {
	if a.conn != nil {
		_ = a.conn.Close()
	}
	if a.closeStore == nil {
		return
	}
	if err := a.closeStore(); err != nil {
		a.logger.Error(context.Background(), "error closing credential store", "error", err)
	}
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	st, err := a.client.Status(ctx)
	return err == nil && st.LoggedIn
}

func (a *App) getStatus() string {
	if !a.isLoggedIn(context.Background()) {
		a.userName = ""
		return "(anonymous)"
	}
	if a.userName == "" {
		return "(logged in)"
	}
	return fmt.Sprintf("(%s)", a.userName)
}
