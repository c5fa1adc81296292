// Package app provides application initialization and lifecycle management
// for the DAQ interface server. It wires configuration loading, service
// construction, HTTP routing, and graceful shutdown into one place.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from defaults, config file, and DAQ_* environment
//	2. Initialize the slog logger and OpenTelemetry providers
//	3. Build the service graph: hub, loader, store, renderer, snapshotter
//	4. Set up HTTP handlers and middleware
//	5. Configure the HTTP server
//
// # Usage
//
// The main entry point is typically:
//
//	application, err := app.NewApplication(frontendFS)
//	if err != nil {
//	    slog.Error("failed to initialize", slog.String("error", err.Error()))
//	    os.Exit(1)
//	}
//	if err := application.Run(); err != nil {
//	    os.Exit(1)
//	}
//
// # Routing
//
// The router keeps three zones with different middleware weight:
//
//	- /ws upgrades run behind RequestID and RealIP only, because the
//	  wrapping middleware would break connection hijacking
//	- /static and /favicon.ico are served outside the API group so asset
//	  fetches skip rate limiting and per-request logging
//	- /api and the dashboard pages carry the full chain: OTel, structured
//	  logging, recovery, security headers, CORS, and rate limiting
//
// # Graceful Shutdown
//
// Run handles SIGINT and SIGTERM. Shutdown drains in-flight requests within
// the configured timeout, disconnects WebSocket clients, and flushes
// telemetry providers before returning.
package app
