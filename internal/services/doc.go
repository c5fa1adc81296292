// Package services implements the business logic layer between the HTTP
// handlers and the session, ingest, and render packages. Handlers stay
// thin; every rule about what an upload, a slot edit, or a render trigger
// means lives here.
//
// # Architecture
//
// Services follow these architectural principles:
//
//	1. Interface-driven design for testability
//	2. Context propagation for cancellation and tracing
//	3. Dependency injection for loose coupling
//	4. Domain-focused methods that encapsulate business rules
//
// # Service Layer Responsibilities
//
// The service layer is responsible for:
//
//	- Orchestrating upload decoding, catalog building, and session creation
//	- Applying slot configuration changes and collecting their diagnostics
//	- Triggering figure renders and caching the results on the session
//	- Broadcasting lifecycle events to connected dashboard clients
//	- Recording business metrics
//	- Error handling and transformation
//
// # Common Service Pattern
//
// Services typically follow this structure:
//
//	type ServiceName struct {
//		store  *session.Store
//		logger *slog.Logger
//	}
//
//	func NewServiceName(store *session.Store, logger *slog.Logger) *ServiceName {
//		return &ServiceName{store: store, logger: logger}
//	}
//
// Dependencies that cross package boundaries (the event hub, the browser
// snapshotter) are consumed through interfaces declared in this package so
// tests can substitute fakes.
package services
