package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bookcomments/config"
	"bookcomments/internal/adapter/in/httpapi"
	inmemorybus "bookcomments/internal/adapter/out/pubsub/inmemory"
	pgbus "bookcomments/internal/adapter/out/pubsub/postgres"
	memstore "bookcomments/internal/adapter/out/storage/inmemory"
	pgstore "bookcomments/internal/adapter/out/storage/postgres"
	sqlitestore "bookcomments/internal/adapter/out/storage/sqlite"
	"bookcomments/internal/model"
	"bookcomments/internal/service"
	"bookcomments/pkg/logger"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
)

type App struct {
	cfg     config.Config
	svc     *service.CommentService
	srv     *http.Server
	runBus  func(ctx context.Context, onEvent func(model.CommentEvent)) error
	closers []func()
}

func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	log := logger.FromContext(ctx)
	a := &App{cfg: cfg}

	cache, err := service.NewThreadCache(cfg.Comments.CacheSize, cfg.Comments.CacheTTL())
	if err != nil {
		return nil, fmt.Errorf("thread cache: %w", err)
	}

	local := inmemorybus.New(64)
	var (
		commentStorage service.CommentStorage
		commentBus     service.CommentBus = local
	)

	switch cfg.StorageType {
	case config.StoragePostgres:
		dsn := cfg.Postgres.GetDSN()
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("pgxpool: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		if err := Migrate(ctx, pool, cfg.MigrationsDir, "up"); err != nil {
			a.Close()
			return nil, err
		}

		txm := manager.Must(trmpgx.NewDefaultFactory(pool))
		commentStorage = pgstore.NewCommentStorage(pool, trmpgx.DefaultCtxGetter, txm)

		bus := pgbus.New(pool, dsn, local)
		commentBus = bus
		a.runBus = bus.Run

	case config.StorageSQLite:
		st, err := sqlitestore.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = st.Close() })
		commentStorage = st

	default:
		commentStorage = memstore.NewCommentStorage()
	}

	deleteMode := service.DeleteOrphan
	if cfg.Comments.DeleteMode == config.DeleteModeCascade {
		deleteMode = service.DeleteCascade
	}

	a.svc = service.NewCommentService(commentStorage, commentBus, service.Options{
		DeleteMode: deleteMode,
		MaxLength:  cfg.Comments.MaxLength,
		Cache:      cache,
	})

	gin.SetMode(gin.ReleaseMode)
	handler := httpapi.NewHandler(a.svc, httpapi.Options{
		KeepAlive:      time.Duration(cfg.WS.KeepAliveSeconds) * time.Second,
		AllowedOrigins: cfg.HTTP.CORSOrigins,
	})
	router := httpapi.NewRouter(handler, log)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.HTTP.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", httpapi.HeaderUserID, httpapi.HeaderUserName, httpapi.HeaderUserRole},
	})

	addr := ":" + cfg.HTTP.Port
	a.srv = &http.Server{
		Addr:              addr,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("app initialized", "addr", addr, "storage", cfg.StorageType, "delete_mode", cfg.Comments.DeleteMode)
	return a, nil
}

// Service exposes the comment service for commands that do not serve HTTP.
func (a *App) Service() *service.CommentService {
	return a.svc
}

// Run serves HTTP until ctx is cancelled or the server fails, then releases
// every resource the app holds.
func (a *App) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	defer a.Close()

	busCtx, stopBus := context.WithCancel(ctx)
	defer stopBus()
	if a.runBus != nil {
		go func() {
			// events from other instances make our cached forests stale
			err := a.runBus(busCtx, func(ev model.CommentEvent) { a.svc.Invalidate(ev.BookID) })
			if err != nil {
				log.Error("comment event listener stopped", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", a.srv.Addr)
		errCh <- a.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(shCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
