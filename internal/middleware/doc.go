// Package middleware provides the HTTP middleware of the gate's host
// pipeline.
//
//   - RequestID: unique request identifier injection
//   - Recovery: panic recovery with stack trace logging
//   - Logging: structured request logging
//   - CORS: Cross-Origin Resource Sharing via go-chi/cors
//
// Middleware functions follow the standard Go pattern:
//
//	handler := middleware.Recovery(logger, metrics)(
//	    middleware.RequestID()(
//	        middleware.Logging(logger)(yourHandler),
//	    ),
//	)
package middleware
