package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/specialistvlad/pipelinestudio/internal/canvasrelay"
	"github.com/specialistvlad/pipelinestudio/internal/catalog"
	"github.com/specialistvlad/pipelinestudio/internal/codec"
	"github.com/specialistvlad/pipelinestudio/internal/config"
	"github.com/specialistvlad/pipelinestudio/internal/ctxlog"
	"github.com/specialistvlad/pipelinestudio/internal/hcl"
	"github.com/specialistvlad/pipelinestudio/internal/localsession"
	"github.com/specialistvlad/pipelinestudio/internal/nodeid"
	"github.com/specialistvlad/pipelinestudio/internal/remotecatalog"
	"github.com/specialistvlad/pipelinestudio/internal/session"
	"github.com/specialistvlad/pipelinestudio/internal/templatestore"
	"github.com/specialistvlad/pipelinestudio/internal/topologystore"
)

// Option customizes an App.
type Option func(*App)

// WithBackend replaces the catalog backend chosen from the configuration.
func WithBackend(b catalog.Backend) Option {
	return func(a *App) { a.backend = b }
}

// WithNodeIDs sets the node id generator of every session.
func WithNodeIDs(f nodeid.Func) Option {
	return func(a *App) { a.newID = f }
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx     context.Context
	cfg     config.Config
	logger  *slog.Logger
	metrics *Metrics
	newID   nodeid.Func

	backend catalog.Backend
	catalog *catalog.Catalog

	templatesMu sync.Mutex
	templates   *templatestore.Store

	httpServer *http.Server
	closers    []func() error
}

// NewApp validates cfg and wires the catalog. Logs go to logW. The template
// store is opened on first use.
func NewApp(ctx context.Context, logW io.Writer, cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	a := &App{ctx: ctx, cfg: cfg, logger: logger, metrics: NewMetrics()}
	for _, opt := range opts {
		opt(a)
	}

	if a.backend == nil {
		backend, err := a.openBackend(ctx)
		if err != nil {
			return nil, err
		}
		a.backend = backend
	}
	a.catalog = catalog.New(a.backend, catalog.Options{OnFetchError: a.metrics.FetchFailed})
	logger.Debug("Catalog configured.")
	return a, nil
}

func (app *App) openBackend(ctx context.Context) (catalog.Backend, error) {
	if app.cfg.CatalogURL != "" {
		client := remotecatalog.New(app.cfg.CatalogURL, app.cfg.Namespace, remotecatalog.WithTimeout(app.cfg.CatalogTimeout))
		app.closers = append(app.closers, client.Close)
		app.logger.Info("Using remote catalog.", "url", app.cfg.CatalogURL)
		return client, nil
	}
	backend, err := hcl.Open(ctx, app.cfg.ManifestsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load plugin manifests: %w", err)
	}
	app.logger.Info("Using plugin manifests.", "path", app.cfg.ManifestsPath)
	return backend, nil
}

// Context returns the app's base context, which carries its logger.
func (app *App) Context() context.Context {
	return app.ctx
}

// Config returns the validated configuration.
func (app *App) Config() config.Config {
	return app.cfg
}

// Metrics returns the app's collectors.
func (app *App) Metrics() *Metrics {
	return app.metrics
}

// Catalog returns the plugin catalog of the one-shot commands. Sessions
// get their own.
func (app *App) Catalog() *catalog.Catalog {
	return app.catalog
}

// Codec returns a codec using the app's node ids.
func (app *App) Codec() *codec.Codec {
	return codec.New(app.newID)
}

// Templates opens the template store the first time it is called.
func (app *App) Templates() (*templatestore.Store, error) {
	app.templatesMu.Lock()
	defer app.templatesMu.Unlock()
	if app.templates != nil {
		return app.templates, nil
	}
	s, err := templatestore.Open(app.cfg.TemplatesDB)
	if err != nil {
		return nil, err
	}
	app.templates = s
	app.closers = append(app.closers, s.Close)
	app.logger.Debug("Template store opened.", "path", app.cfg.TemplatesDB)
	return s, nil
}

// SessionOptions are the host-side hooks of a session.
type SessionOptions struct {
	Confirm   session.ConfirmFunc
	Navigator session.Navigator
}

// NewSession creates a started edit session with its own catalog, so that
// switching the artifact of one session leaves the others alone. When a
// canvas URL is configured the session's changes are relayed to it over a
// connection the session closes.
func (app *App) NewSession(ctx context.Context, opts SessionOptions) (*localsession.Session, error) {
	templates, err := app.Templates()
	if err != nil {
		return nil, err
	}
	preferred, err := app.cfg.Artifact()
	if err != nil {
		return nil, err
	}
	listeners := []topologystore.Listener{app.metrics.Observe}
	var closers []func() error
	if app.cfg.CanvasURL != "" {
		conn, err := canvasrelay.Dial(ctx, app.cfg.CanvasURL, canvasrelay.DialOptions{Namespace: app.cfg.CanvasNamespace})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to canvas: %w", err)
		}
		closers = append(closers, func() error {
			canvasrelay.Close(app.ctx, conn)
			return nil
		})
		listeners = append(listeners, canvasrelay.New(canvasrelay.SocketEmitter(conn)).Observe)
	}

	factory := &localsession.SessionFactory{NewID: app.newID}
	s, err := factory.NewSession(ctx, localsession.Options{
		Catalog:   catalog.New(app.backend, catalog.Options{OnFetchError: app.metrics.FetchFailed}),
		Templates: templates,
		Navigator: opts.Navigator,
		Confirm:   opts.Confirm,
		Observer:  app.metrics,
		Namespace: app.cfg.Namespace,
		Listeners: listeners,
		Closers:   closers,
	})
	if err != nil {
		return nil, err
	}
	if err := s.Editor().Start(ctx, preferred); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	return s, nil
}

// Close releases everything the app opened, newest first.
func (app *App) Close() error {
	errs := []error{app.closeHealthCheckServer()}
	for i := len(app.closers) - 1; i >= 0; i-- {
		errs = append(errs, app.closers[i]())
	}
	app.closers = nil
	app.templates = nil
	app.logger.Debug("App closed.")
	return errors.Join(errs...)
}
