package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/drstein77/cartwidget/internal/catalog"
	"github.com/drstein77/cartwidget/internal/config"
	"github.com/drstein77/cartwidget/internal/controllers"
	"github.com/drstein77/cartwidget/internal/dbkeeper"
	"github.com/drstein77/cartwidget/internal/logger"
	"github.com/drstein77/cartwidget/internal/metrics"
	"github.com/drstein77/cartwidget/internal/storage"
	"github.com/go-chi/chi"
	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type Server struct {
	srv     *http.Server
	ctx     context.Context
	backend storage.Backend
	janitor *Janitor

	Log *logger.Logger
}

// NewServer builds the logger, the session store backend and the HTTP handler
// described by option.
func NewServer(ctx context.Context, option *config.Options) (*Server, error) {
	nLogger, err := logger.NewLogger(option.LogLevel())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	backend, err := newBackend(ctx, option, nLogger.With(zap.String("component", "storage")))
	if err != nil {
		return nil, err
	}

	products, err := loadCatalog(option)
	if err != nil {
		backend.Close()
		return nil, err
	}

	m := metrics.New()
	basecontr, err := controllers.NewBaseController(backend, products, newSessionStore(option), m, nLogger.With(zap.String("component", "http")))
	if err != nil {
		backend.Close()
		return nil, err
	}

	// create router and mount routes
	r := chi.NewRouter()
	r.Handle("/metrics", m.Handler())
	r.Mount("/", basecontr.Route())

	return &Server{
		srv: &http.Server{
			Addr:              option.RunAddr(),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ctx:     ctx,
		backend: backend,
		janitor: NewJanitor(backend, clockwork.NewRealClock(), option.PurgeInterval(), option.SessionTTL(), m, nLogger.With(zap.String("component", "janitor"))),
		Log:     nLogger,
	}, nil
}

// Serve starts the janitor and blocks serving HTTP until Shutdown is called.
func (server *Server) Serve() error {
	go server.janitor.Run(server.ctx)

	server.Log.Info("Starting server", zap.String("addr", server.srv.Addr))
	if err := server.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, waits up to timeout for in-flight ones
// and releases the session store.
func (server *Server) Shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.srv.Shutdown(ctx); err != nil {
		server.Log.Error("Server shutdown failed", zap.Error(err))
	}
	server.backend.Close()
	_ = server.Log.Sync()
}

func newBackend(ctx context.Context, option *config.Options, log *logger.Logger) (storage.Backend, error) {
	switch option.StoreBackend() {
	case config.BackendRedis:
		client, err := storage.NewRedisClient(ctx, option.RedisAddr(), option.RedisPassword(), option.RedisDB())
		if err != nil {
			return nil, err
		}
		return storage.NewRedisStorage(client, option.SessionTTL(), log), nil

	case config.BackendPostgres:
		if err := dbkeeper.Migrate(option.DataBaseDSN(), option.MigrationsDir(), log); err != nil {
			return nil, err
		}
		return dbkeeper.NewDBKeeper(ctx, option.DataBaseDSN, log)

	default:
		return storage.NewMemoryStorage(clockwork.NewRealClock(), log), nil
	}
}

func loadCatalog(option *config.Options) (*catalog.Catalog, error) {
	if path := option.CatalogFile(); path != "" {
		return catalog.LoadFile(path)
	}
	return catalog.Default()
}

// newSessionStore returns a cookie store whose cookies carry no Max-Age, so
// the browser drops them when its session ends.
func newSessionStore(option *config.Options) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(option.SessionSecret()))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   0,
		HttpOnly: true,
		Secure:   option.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	return store
}
