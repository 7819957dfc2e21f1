package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/tablemirror/internal/config"
	"github.com/JonMunkholm/tablemirror/internal/core"
	"github.com/JonMunkholm/tablemirror/internal/export"
	"github.com/JonMunkholm/tablemirror/internal/layout"
	"github.com/JonMunkholm/tablemirror/internal/logging"
	"github.com/JonMunkholm/tablemirror/internal/source/file"
	"github.com/JonMunkholm/tablemirror/internal/source/mysql"
	"github.com/JonMunkholm/tablemirror/internal/source/postgres"
	"github.com/JonMunkholm/tablemirror/internal/web"
)

// producer emits change signals until its context is cancelled.
type producer interface {
	Run(ctx context.Context) error
}

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	clock := clockwork.NewRealClock()
	view := web.NewView(clock)

	// The orchestrator is the notifier producers feed, but producers need it
	// before it exists, so they are bound through a forwarding notifier.
	var orch *core.Orchestrator
	notifier := notifierFunc(func(ctx context.Context, sig core.ChangeSignal) error {
		return orch.Notify(ctx, sig)
	})

	src, prod, cleanup, err := openSource(ctx, cfg, notifier, clock)
	if err != nil {
		return err
	}
	defer cleanup()

	orch = core.NewOrchestrator(core.Options{
		Source:   src,
		Renderer: view,
		Engine: layout.Engine{
			MinColumnWidth: cfg.Layout.MinColumnWidth,
			CharWidth:      cfg.Layout.CharWidth,
			CellPadding:    cfg.Layout.CellPadding,
		},
		Clock:          clock,
		Logger:         slog.Default(),
		DebounceDelay:  cfg.Refresh.DebounceDelay,
		PollInterval:   cfg.Refresh.PollInterval,
		PollAttempts:   cfg.Refresh.PollAttempts,
		FetchTimeout:   cfg.Source.FetchTimeout,
		ContainerWidth: cfg.Layout.ContainerWidth,
	})

	exporter := export.NewSerializer(export.Options{
		IncludeRowIndex:  cfg.Export.IncludeRowIndex,
		ColumnWidth:      cfg.Export.ColumnWidth,
		DefaultExtension: cfg.Export.DefaultExtension,
		Banded:           cfg.Export.Banded,
	}, logging.Component("export"))

	rpm := 0
	if cfg.Rate.Enabled {
		rpm = cfg.Rate.RequestsPerMinute
	}
	server := web.NewServer(web.Options{
		Orchestrator:      orch,
		View:              view,
		Exporter:          exporter,
		Clock:             clock,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		RequestTimeout:    cfg.Server.RequestTimeout,
		RequestsPerMinute: rpm,
		TrustedProxies:    cfg.Security.TrustedProxies,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := orch.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if prod != nil {
		g.Go(func() error { return prod.Run(gctx) })
	}

	g.Go(func() error { return server.Start(gctx, cfg.Server.Addr()) })

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openSource connects the configured snapshot source and its signal producer.
func openSource(ctx context.Context, cfg *config.Config, n core.Notifier, clock clockwork.Clock) (core.Source, producer, func(), error) {
	switch strings.ToLower(cfg.Source.Kind) {
	case config.SourcePostgres:
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
			URL:             cfg.Source.URL,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		slog.Info("connected to postgres", "notify_channel", cfg.Source.NotifyChannel)

		src := postgres.NewSource(pool, cfg.Source.Query, cfg.Source.Name, logging.Component("postgres"))
		listener := postgres.NewListener(pool, cfg.Source.NotifyChannel, n, logging.Component("listener"))
		return src, listener, pool.Close, nil

	case config.SourceMySQL:
		// DB_MIN_CONNS sizes the idle pool, the closest database/sql knob.
		db, err := mysql.Open(ctx, mysql.PoolConfig{
			DSN:             cfg.Source.URL,
			MaxConns:        cfg.Database.MaxConns,
			MaxIdleConns:    cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		slog.Info("connected to mysql")

		src := mysql.NewSource(db, cfg.Source.Query, cfg.Source.Name, logging.Component("mysql"))
		return src, nil, func() { _ = db.Close() }, nil

	default:
		slog.Info("serving snapshot file", "path", cfg.Source.File)
		src := file.NewSource(cfg.Source.File, cfg.Source.Name)
		watcher := file.NewWatcher(cfg.Source.File, cfg.Source.WatchInterval, n, clock, logging.Component("watcher"))
		return src, watcher, func() {}, nil
	}
}

type notifierFunc func(ctx context.Context, sig core.ChangeSignal) error

func (f notifierFunc) Notify(ctx context.Context, sig core.ChangeSignal) error {
	return f(ctx, sig)
}
