// Package gateway assembles and runs the opagate HTTP servers.
//
// The public router applies, in order: panic recovery, request ids,
// tracing, request metrics, access logging and CORS. The health
// endpoints are mounted next. Every other route passes through bearer
// authentication and the authorization enforcer before reaching the
// upstream proxy.
//
//	/health, /ready, /live   health endpoints, never authorized
//	/*                       authenticate -> authorize -> upstream
//
// The admin router serves Prometheus metrics and the same health
// endpoints on a separate address.
package gateway
