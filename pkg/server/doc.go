// Package server exposes the gateway over HTTP.
//
// This package ties the gateway pipeline to JSON endpoints and manages
// server lifecycle including start, graceful shutdown, and OS signal
// handling (SIGTERM, SIGINT).
//
// # Routes
//
// The server exposes the following endpoints:
//
//   - POST /v1/chat - Mediated text completion
//   - POST /v1/vision - Mediated image understanding
//   - POST /v1/audio/transcriptions - Mediated transcription
//   - POST /v1/embeddings - Mediated embeddings
//   - GET /health - Liveness probe
//
// When a metrics address is configured, a second listener serves
// GET /metrics with the Prometheus exposition format.
//
// # Error Mapping
//
// Gateway errors carry a category; the server maps categories to HTTP
// status codes:
//
//   - validation -> 400
//   - unknown tenant or model -> 404
//   - compliance or prompt rejection -> 422
//   - insufficient credits -> 402
//   - provider rate limit -> 429
//   - provider failures -> 502
//
// # Basic Usage
//
//	gw, _ := gateway.New(opts)
//	srv := server.NewServer(cfg.Server, gw, registry)
//	if err := srv.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// The server shuts down gracefully on SIGTERM/SIGINT, draining active
// requests up to the configured shutdown timeout.
package server
