// Package server initializes and runs the auth service: it opens the
// database, applies migrations, starts the HTTP endpoint and the expired
// token reaper, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/reaper"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/security"
	"github.com/dmitrijs2005/gophauth/internal/server/services"

	httpapi "github.com/dmitrijs2005/gophauth/internal/server/http"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	userService  *services.UserService
	tokenService *services.TokenService
}

func NewApp(cfg *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()

	hasher := security.NewHasher(security.DefaultParams())
	us := services.NewUserService(db, rm, hasher)
	ts := services.NewTokenService(db, rm, cfg)

	return &App{
		config:       cfg,
		logger:       logger,
		db:           db,
		repomanager:  rm,
		userService:  us,
		tokenService: ts,
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

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		app.logger.Error(ctx, "migration error", "error", err)
		return
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		UsersHandler:  httpapi.NewUsersHandler(app.userService),
		TokensHandler: httpapi.NewTokensHandler(app.userService, app.tokenService),
		HealthHandler: httpapi.NewHealthHandler(app.db),
		RequireAuth:   httpapi.RequireAuth(app.userService, []byte(app.config.SecretKey)),
		Logger:        app.logger,
	})

	srv := &http.Server{Addr: app.config.EndpointAddr, Handler: router}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "http server error", "error", err)
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		r := reaper.New(app.db, app.repomanager, app.config.ReaperInterval, app.logger)
		r.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "http shutdown error", "error", err)
		}
		if err := app.db.Close(); err != nil {
			app.logger.Error(shutdownCtx, "db close error", "error", err)
		}
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "app stopped")
}
