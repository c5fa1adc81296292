// Package http implements the HTTP transport layer: chi routers, request
// decoding, and RFC 7807 error responses. Handlers stay thin and delegate
// every decision to the services layer.
//
// # Routes
//
// The session handler owns the /api/sessions tree:
//
//	POST   /api/sessions                                      upload files, open a session
//	GET    /api/sessions/{sessionID}                          current state
//	DELETE /api/sessions/{sessionID}                          end the session
//	PUT    /api/sessions/{sessionID}/slots                    resize the slot grid
//	PATCH  /api/sessions/{sessionID}/slots/{slotIndex}        change one spec field
//	POST   /api/sessions/{sessionID}/render                   render all slots
//	GET    /api/sessions/{sessionID}/figures                  last rendered batch
//	GET    /api/sessions/{sessionID}/figures/{slotIndex}/snapshot  PNG download
//	GET    /api/sessions/{sessionID}/datasets/{dataset}/preview    bounded row preview
//	GET    /api/sessions/{sessionID}/datasets/{dataset}/export     CSV/XLSX download
//
// The health handler owns /api/health, /api/health/ready, /api/health/live,
// and /api/version.
//
// # Error Handling
//
// Service errors are mapped to APIError values and rendered by the shared
// ErrorHandler as application/problem+json. Success responses use the
// {"status": "success", "data": ...} envelope.
package http
