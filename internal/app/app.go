package app

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	chirender "github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"github.com/NU-Formula-Racing/daq-interface-25/internal/config"
	apierrors "github.com/NU-Formula-Racing/daq-interface-25/internal/errors"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/exporter"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/infrastructure"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/ingest"
	customMiddleware "github.com/NU-Formula-Racing/daq-interface-25/internal/middleware"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/render"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/services"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/session"
	handlers "github.com/NU-Formula-Racing/daq-interface-25/internal/transport/http"
	ws "github.com/NU-Formula-Racing/daq-interface-25/internal/websocket"
	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts"
)

const (
	// AppName is the human-readable application name used in startup logs.
	AppName = "DAQ Interface"
	// Executable is the canonical binary name.
	Executable = "daq-interface"
)

// Application wires configuration, services, transport, and lifecycle
// management into a single runnable unit.
type Application struct {
	Config         *config.Config
	Router         *chi.Mux
	Server         *http.Server
	WebSocketHub   *ws.Hub
	SessionStore   *session.Store
	SessionService *services.SessionService
	HealthService  *services.HealthService
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders
	FrontendFS     fs.FS

	metrics *infrastructure.BusinessMetrics
}

// NewApplication creates a fully wired application instance. The frontendFS
// argument carries the embedded dashboard; a nil filesystem leaves the server
// running in API-only mode.
func NewApplication(frontendFS fs.FS) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("executable", Executable))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(contracts.Version), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		FrontendFS:    frontendFS,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the service graph in dependency order.
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.metrics = metrics

	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.WebSocketHub = hub

	loader := ingest.NewLoader(a.Config.Upload, a.Logger)

	store := session.NewStore(a.Config.Session, a.Logger)
	a.SessionStore = store

	renderer := render.NewRenderer(a.Config.Render, a.Logger)
	snapshotter := render.NewSnapshotter(a.Config.Render, a.Logger)
	exp := exporter.New(a.Logger)

	a.SessionService = services.NewSessionService(loader, store, renderer, snapshotter, exp, hub, metrics, a.Logger)
	a.HealthService = services.NewHealthService(store, hub, a.Logger)

	return nil
}

// setupRouter configures the HTTP router with all routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID and RealIP do not wrap the ResponseWriter, which keeps the
	// WebSocket upgrade path hijackable. Everything that does wrap it lives
	// in the group below.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).HandleFunc("/ws", a.handleWebSocket)

	if a.FrontendFS != nil {
		a.setupStaticAssets(r)
	}

	r.Group(func(r chi.Router) {
		otelMiddleware := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.metrics)
		r.Use(otelMiddleware.Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.getCORSConfig()))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
		a.setupFrontendRoutes(r)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures the JSON API endpoints.
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(chirender.SetContentType(chirender.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		errorHandler := apierrors.NewErrorHandler(a.Logger, false)

		// The multipart budget covers the whole request, so it scales with
		// the per-file limit times the file cap.
		maxUploadBytes := a.Config.Upload.MaxFileSize * int64(a.Config.Upload.MaxFiles)
		sessionHandler := handlers.NewSessionHandler(a.SessionService, maxUploadBytes, a.Logger, errorHandler)
		r.Mount("/sessions", sessionHandler.Routes())

		r.Get("/ws/stats", func(w http.ResponseWriter, req *http.Request) {
			chirender.JSON(w, req, map[string]interface{}{
				"status": "success",
				"data":   a.WebSocketHub.Metrics(),
			})
		})
	})
}

// setupStaticAssets serves the dashboard's static files outside the main
// middleware group so responses stay cacheable and cheap.
func (a *Application) setupStaticAssets(r chi.Router) {
	r.Route("/static", func(r chi.Router) {
		r.Use(customMiddleware.Compress(5))
		r.Use(middleware.SetHeader("Cache-Control", "public, max-age=86400"))
		r.HandleFunc("/*", a.serveStaticWithMIME(a.FrontendFS).ServeHTTP)
	})

	r.Get("/favicon.ico", a.serveFrontendFile(a.FrontendFS, "favicon.ico"))
}

// setupFrontendRoutes registers the dashboard page routes. Without an
// embedded frontend the root route reports version info instead.
func (a *Application) setupFrontendRoutes(r chi.Router) {
	if a.FrontendFS == nil {
		a.Logger.Warn("frontend filesystem not available, running API-only")
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			chirender.JSON(w, req, map[string]interface{}{
				"status": "success",
				"data":   contracts.GetVersionInfo(),
			})
		})
		return
	}

	r.Get("/*", a.serveDashboard(a.FrontendFS))
}

// serveFrontendFile serves a single named file from the embedded frontend.
func (a *Application) serveFrontendFile(frontendFS fs.FS, filename string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, err := frontendFS.Open(filename)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer file.Close()

		if ct := contentTypeByExtension(filename); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")

		io.Copy(w, file)
	}
}

// serveStaticWithMIME serves embedded static assets with explicit MIME types.
// Embedded filesystems carry no metadata, so sniffing alone mislabels CSS and
// JS, which browsers then refuse to run under nosniff.
func (a *Application) serveStaticWithMIME(frontendFS fs.FS) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")

		file, err := frontendFS.Open(path)
		if err != nil {
			a.Logger.WarnContext(r.Context(), "static file not found",
				slog.String("path", path),
				slog.String("error", err.Error()))
			http.NotFound(w, r)
			return
		}
		defer file.Close()

		if ct := contentTypeByExtension(path); ct != "" {
			w.Header().Set("Content-Type", ct)
		} else {
			w.Header().Set("Content-Type", "application/octet-stream")
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")

		io.Copy(w, file)
	})
}

// serveDashboard serves the single-page dashboard. Exact file paths win, and
// everything else falls back to index.html for client-side routing.
func (a *Application) serveDashboard(frontendFS fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		urlPath := strings.TrimPrefix(r.URL.Path, "/")

		if urlPath != "" {
			file, err := frontendFS.Open(urlPath)
			if err == nil {
				if stat, statErr := file.Stat(); statErr == nil && !stat.IsDir() {
					defer file.Close()
					if ct := contentTypeByExtension(urlPath); ct != "" {
						w.Header().Set("Content-Type", ct)
					}
					w.Header().Set("X-Content-Type-Options", "nosniff")
					io.Copy(w, file)
					return
				}
				file.Close()
			}
		}

		indexFile, err := frontendFS.Open("index.html")
		if err != nil {
			a.Logger.ErrorContext(r.Context(), "failed to open index.html",
				slog.String("error", err.Error()),
				slog.String("path", r.URL.Path))
			http.Error(w, "Frontend not available", http.StatusServiceUnavailable)
			return
		}
		defer indexFile.Close()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")

		io.Copy(w, indexFile)
	}
}

// contentTypeByExtension maps the dashboard's asset extensions to MIME types.
func contentTypeByExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".js":
		return "application/javascript"
	case ".css":
		return "text/css"
	case ".json":
		return "application/json"
	case ".svg":
		return "image/svg+xml"
	case ".png":
		return "image/png"
	case ".ico":
		return "image/x-icon"
	case ".woff2":
		return "font/woff2"
	case ".txt":
		return "text/plain"
	default:
		return ""
	}
}

// getCORSConfig returns CORS configuration based on environment.
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}

	sameOrigin := []string{
		fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
		fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
	}

	if a.isDevelopmentMode() {
		// Allow the Vite dev server alongside the Go server.
		cfg.AllowedOrigins = append([]string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		}, sameOrigin...)
	} else {
		cfg.AllowedOrigins = sameOrigin
		if a.Config.Security.EnableCORS && len(a.Config.Security.AllowedOrigins) > 0 {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, a.Config.Security.AllowedOrigins...)
		}
	}

	return cfg
}

// isDevelopmentMode reports whether the server runs in development mode.
func (a *Application) isDevelopmentMode() bool {
	if env := os.Getenv("DAQ_ENV"); env == "development" {
		return true
	}
	if env := os.Getenv("GO_ENV"); env == "development" {
		return true
	}
	return false
}

// createServer creates the HTTP server.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start launches the HTTP server and background workers. A server failure
// cancels the passed context so the caller can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	// The session sweeper stops when the run context is cancelled.
	go a.SessionStore.Run(ctx)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	if a.Config.Server.OpenBrowser {
		go a.openBrowserWhenReady(ctx)
	}

	return nil
}

// openBrowserWhenReady polls the health endpoint until the server answers,
// then opens the default browser on the dashboard.
func (a *Application) openBrowserWhenReady(ctx context.Context) {
	url := fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)
	healthURL := url + "/api/health"

	for i := 0; i < 10; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		resp, err := http.Get(healthURL)
		if err == nil {
			ready := resp.StatusCode == http.StatusOK
			resp.Body.Close()
			if ready {
				if err := openBrowser(url); err != nil {
					a.Logger.Error("failed to open browser",
						slog.String("error", err.Error()),
						slog.String("url", url))
					fmt.Printf("\n%s is running. Open your browser at:\n  %s\n\n", AppName, url)
				}
				return
			}
		}

		time.Sleep(500 * time.Millisecond)
	}

	a.Logger.Error("server did not become ready for browser opening",
		slog.String("url", healthURL))
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down telemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// Run runs the application until interrupted or until the server fails.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "run context cancelled")
	}

	// The run context may already be cancelled, so shutdown gets its own.
	return a.Stop(context.Background())
}

// handleWebSocket upgrades a connection and hands it to the hub.
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = fmt.Sprintf("ws-%d", time.Now().UnixNano())
	}

	ctx := infrastructure.WithTraceID(r.Context(), reqID)
	a.Logger.InfoContext(ctx, "websocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if a.isDevelopmentMode() {
				return true
			}
			for _, allowed := range a.getCORSConfig().AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			a.Logger.WarnContext(ctx, "websocket origin rejected",
				slog.String("origin", origin))
			return false
		},
		// A custom Error hook takes over response writing from the upgrader,
		// so it must emit the status itself.
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.ErrorContext(ctx, "websocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()))
			http.Error(w, http.StatusText(status), status)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.ErrorContext(ctx, "websocket upgrade failed",
			slog.String("error", err.Error()))
		return
	}

	ws.ServeWS(a.WebSocketHub, conn, reqID, a.Logger)

	a.Logger.InfoContext(ctx, "websocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("request_id", reqID))
}

// openBrowser opens the default browser at the given URL.
func openBrowser(url string) error {
	var lastErr error

	for _, method := range browserOpenMethods(url) {
		cmd := exec.Command(method.cmd, method.args...)

		if err := cmd.Start(); err != nil {
			lastErr = err
			slog.Warn("browser open method failed",
				slog.String("method", method.name),
				slog.String("error", err.Error()))
			continue
		}

		// Reap the launcher so it does not linger as a zombie.
		go cmd.Wait()

		slog.Info("browser opened",
			slog.String("method", method.name),
			slog.String("url", url))
		return nil
	}

	return fmt.Errorf("failed to open browser: %w", lastErr)
}

// browserMethod represents one way to open the browser.
type browserMethod struct {
	name string
	cmd  string
	args []string
}

// browserOpenMethods returns platform-specific browser launchers in
// preference order.
func browserOpenMethods(url string) []browserMethod {
	switch runtime.GOOS {
	case "windows":
		return []browserMethod{
			{name: "start_command", cmd: "cmd", args: []string{"/c", "start", "", url}},
			{name: "rundll32", cmd: "rundll32", args: []string{"url.dll,FileProtocolHandler", url}},
		}
	case "darwin":
		return []browserMethod{
			{name: "open", cmd: "open", args: []string{url}},
		}
	default:
		return []browserMethod{
			{name: "xdg-open", cmd: "xdg-open", args: []string{url}},
			{name: "sensible-browser", cmd: "sensible-browser", args: []string{url}},
		}
	}
}
