// Package api implements the HTTP REST API and WebSocket server of the HMI.
//
// This package provides:
//   - REST endpoints for the active alarm list, the daily event log, alarm
//     history, point tables, production statistics and PLC writes
//   - WebSocket hub broadcasting alarm edges, point changes and statistics
//   - JWT authentication against the configured operator accounts, with
//     ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - Prometheus scrape endpoint
//
// # Architecture
//
// The server never talks to the controller for reads. Every read endpoint
// serves state already applied by the monitor sessions; the only path to the
// controller is the control service behind POST /api/v1/control.
//
// # Security
//
// Roles map to permissions (view, plc:operate, plc:configure, admin).
// WebSocket connections use single-use tickets to keep tokens out of URLs.
//
// # Graceful Degradation
//
// The event log, history, audit trail and metrics are optional. Endpoints
// backed by a missing dependency answer 503.
package api
