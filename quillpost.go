// Package quillpost serves a flat-file blog. Posts are text files with a
// small header, read through a storage backend, queried by the query engine
// and rendered with goldmark into templ views served by Echo.
package quillpost

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/quillpost/quillpost/markdown"
	"github.com/quillpost/quillpost/module"
	"github.com/quillpost/quillpost/query"
	"github.com/quillpost/quillpost/storage"
	"github.com/quillpost/quillpost/views"
)

// App is the central quillpost application. It owns the storage, query
// engine, module registry, renderers and the Echo server.
type App struct {
	Config  Config
	Echo    *echo.Echo
	Logger  zerolog.Logger
	Metrics *Metrics
	Views   ViewFuncs

	Storage storage.Storage
	Engine  *query.Engine
	Modules *module.Registry
	// Pages renders standalone pages such as the home page, with modules.
	Pages *markdown.Renderer
	// Posts renders post bodies.
	Posts *markdown.Renderer

	limiter      *RequestLimiter
	customRoutes []func(*App)
	closers      []io.Closer
	now          func() time.Time
	ready        bool
}

// New creates an App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:  cfg,
		Echo:    echo.New(),
		Logger:  NewLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr),
		Metrics: NewMetrics(),
		Views:   DefaultViews(),
		now:     time.Now,
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}
	a.Views = a.Views.withDefaults()
	return a
}

// WithLogger replaces the logger built from Config.LogLevel.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *App) {
		a.Logger = logger
	}
}

// Setup validates the configuration, connects the storage backend and
// registers middleware and routes. Start calls it when needed.
func (a *App) Setup(ctx context.Context) error {
	if a.ready {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}

	if a.Storage == nil {
		s, closer, err := openStorage(ctx, a.Config)
		if err != nil {
			return fmt.Errorf("quillpost: init storage: %w", err)
		}
		a.Storage = s
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}

	a.Engine = query.NewEngine(a.Storage)
	a.Engine.Ext = a.Config.PostExt
	a.Engine.Logger = a.Logger.With().Str("component", "query").Logger()
	a.Engine.OnSkip = func(_ string, err error) {
		a.Metrics.RecordSkip(err)
	}
	a.Engine.OnQuery = func(_ query.Spec, elapsed time.Duration, _ int) {
		a.Metrics.QueryDuration.Observe(elapsed.Seconds())
	}

	a.Modules = module.NewRegistry(a.Logger.With().Str("component", "module").Logger())
	a.Modules.OnRender = a.Metrics.RecordModule
	posts := &module.Posts{
		Engine:  a.Engine,
		Root:    a.Config.PostsRoot,
		SiteURL: a.Config.URL,
		Now:     a.now,
	}
	if err := posts.Register(a.Modules); err != nil {
		return fmt.Errorf("quillpost: register modules: %w", err)
	}

	a.Pages = markdown.New(markdown.Options{
		Modules:   a.Modules,
		Safe:      a.Config.Safe,
		CodeStyle: a.Config.CodeStyle,
	})
	a.Posts = markdown.New(markdown.Options{
		Safe:      a.Config.Safe,
		CodeStyle: a.Config.CodeStyle,
	})

	if a.Config.RateLimit > 0 {
		a.limiter = NewRequestLimiter(a.Config.RateLimit, time.Minute)
		a.closers = append(a.closers, a.limiter)
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

// Start sets the app up and serves until ctx is canceled or SIGINT/SIGTERM
// is received, then shuts down gracefully.
func (a *App) Start(ctx context.Context) error {
	if err := a.Setup(ctx); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", a.Config.Addr).Str("url", a.Config.URL).Msg("listening")
		errc <- a.Echo.Start(a.Config.Addr)
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()
	return a.Echo.Shutdown(shutdownCtx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.Config.StaticDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/time", a.handleTime)
	e.GET("/metrics", a.handleMetrics())

	e.GET("/", a.handleHome)
	e.GET("/rss.xml", a.handleFeed)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/archive", a.handleArchive)
	e.GET("/tag/:tag", a.handleTag)
	e.GET("/post/:slug", a.handlePost)
	e.GET("/post/:slug/media/:file", a.handleMedia)
}

// Close releases the storage connection and background workers.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) site() views.SiteConfig {
	return views.SiteConfig{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Author:      a.Config.Author,
		PostExt:     a.Config.PostExt,
	}
}

func openStorage(ctx context.Context, cfg Config) (storage.Storage, io.Closer, error) {
	switch cfg.Backend {
	case BackendS3:
		s, err := storage.NewS3(ctx, cfg.S3)
		return s, nil, err
	case BackendSFTP:
		s, err := storage.DialSFTP(cfg.SFTP)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return storage.Dir{Base: cfg.DataDir}, nil, nil
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or an error
// naming it when it is not set.
func MustEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", &ConfigError{Field: key, Reason: "environment variable is not set"}
	}
	return v, nil
}
