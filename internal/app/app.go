package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/vadimbarashkov/shorty/internal/adapter/repository/sqldb"
	"github.com/vadimbarashkov/shorty/internal/adapter/shortio"
	"github.com/vadimbarashkov/shorty/internal/cache"
	"github.com/vadimbarashkov/shorty/internal/config"
	"github.com/vadimbarashkov/shorty/internal/entity"
	"github.com/vadimbarashkov/shorty/internal/session"
	"github.com/vadimbarashkov/shorty/internal/usecase"
	"github.com/vadimbarashkov/shorty/migrations"
	"github.com/vadimbarashkov/shorty/pkg/database"

	delivery "github.com/vadimbarashkov/shorty/internal/adapter/delivery/http"
)

func Run(ctx context.Context, cfg *config.Config, logger *httplog.Logger) error {
	const op = "app.Run"

	db, err := database.New(
		ctx,
		cfg.Storage.Driver,
		cfg.Storage.DSN,
		database.WithConnMaxIdleTime(cfg.Storage.ConnMaxIdleTime),
		database.WithConnMaxLifetime(cfg.Storage.ConnMaxLifetime),
		database.WithMaxIdleConns(cfg.Storage.MaxIdleConns),
		database.WithMaxOpenConns(cfg.Storage.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	migrationURL, err := database.MigrationURL(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		db.Close()
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := database.RunMigrations(migrations.FS, cfg.Storage.Driver, migrationURL); err != nil {
		db.Close()
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	r, sessions, err := newHandler(cfg, logger, db)
	if err != nil {
		db.Close()
		return fmt.Errorf("%s: %w", op, err)
	}

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        r,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)
	stopped := make(chan struct{})

	g.Go(func() error {
		var err error

		logger.Info("starting server", "addr", server.Addr, "env", cfg.Env)

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		defer close(stopped)

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		return sessions.Run(ctx)
	})

	g.Go(func() error {
		<-stopped

		sessions.CloseAll()

		if err := db.Close(); err != nil {
			return fmt.Errorf("%s: failed to close database: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}

// newHandler wires the API client, use cases and session registry over db
// into the HTTP router.
func newHandler(cfg *config.Config, logger *httplog.Logger, db *sqlx.DB) (http.Handler, *session.Registry, error) {
	const op = "app.newHandler"

	api, err := shortio.New(cfg.ShortAPI.BaseURL, shortio.WithTimeout(cfg.ShortAPI.Timeout))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to create api client: %w", op, err)
	}

	linkUseCase := usecase.New(
		api,
		usecase.WithPageSize(cfg.Links.PageSize),
		usecase.WithQROptions(entity.QROptions{
			Type:            cfg.QR.Type,
			BackgroundColor: cfg.QR.BackgroundColor,
			Color:           cfg.QR.Color,
		}),
	)

	sessions := session.NewRegistry(
		sqldb.NewSettingsRepository(db),
		linkUseCase.CreateLink,
		session.WithIdleTTL(cfg.Session.IdleTTL),
		session.WithReapInterval(cfg.Session.ReapInterval),
		session.WithCacheOptions(
			cache.WithDedupingInterval(cfg.Cache.DedupingInterval),
			cache.WithFocusThrottle(cfg.Cache.FocusThrottle),
		),
		session.WithLogger(logger.Logger),
	)

	r := delivery.NewRouter(logger, sessions, linkUseCase, delivery.CookieOptions{
		Name:   cfg.Session.CookieName,
		MaxAge: cfg.Session.CookieMaxAge,
		Secure: cfg.Env == config.EnvProd,
	}, cfg.HTTPServer.AllowedOrigins)

	return r, sessions, nil
}
