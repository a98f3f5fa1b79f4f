// Copyright (c) TuneFlow Authors.
// Licensed under the MIT License.

// Package api describes the TuneFlow HTTP API.
//
// Handlers live in api/handlers; this package only carries the API overview.
//
// # API Overview
//
// TuneFlow exposes a JSON API for:
//   - Parameter adjustment (single, scoped, and batch)
//   - Strategy selection and sensitivity analysis
//   - Feedback evaluation and performance/agent feedback recording
//   - The drive / bias / global state control loop
//   - Analytic/creative balance audits
//   - Health, readiness, and version probes
//
// # Authentication
//
// When API keys are configured every /api/v1 endpoint requires:
//
//	X-API-Key: your-api-key
//
// When JWT is configured a bearer token is accepted instead:
//
//	Authorization: Bearer <token>
//
// # Endpoints
//
//	GET  /health
//	GET  /ready
//	GET  /version
//	POST /api/v1/tuning/adjust
//	POST /api/v1/tuning/adjust-all
//	POST /api/v1/tuning/strategies/select
//	GET  /api/v1/tuning/strategies
//	GET  /api/v1/tuning/parameters
//	GET  /api/v1/tuning/parameters/{name}
//	GET  /api/v1/tuning/sensitivity?lookback_days=30
//	POST /api/v1/tuning/feedback
//	POST /api/v1/tuning/performance
//	POST /api/v1/tuning/agent-feedback
//	POST /api/v1/tuning/cycle
//	POST /api/v1/control/drive
//	POST /api/v1/control/bias
//	POST /api/v1/control/global
//	POST /api/v1/control/tick
//	POST /api/v1/balance/audit
//
// # Response Envelope
//
// Every response body uses the same envelope:
//
//	{"success": true, "data": {...}, "timestamp": "...", "request_id": "..."}
//	{"success": false, "error": {"code": "NOT_FOUND", "message": "..."}, ...}
package api
