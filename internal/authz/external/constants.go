// Package external is the client for the external policy decision point.
//
// It speaks the OPA REST Data API: a decision is requested with
// POST {url}/v1/data/{policyPath} carrying {"input": ...} and answered with
// {"result": bool | {"allow": bool, ...}}. Infrastructure failures are
// reported as ErrPolicyEngineUnreachable, ErrPolicyEngineTimeout or
// ErrPolicyEngineProtocolError and are never folded into a deny verdict.
package external

import "time"

// HTTP header constants.
const (
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderAccept        = "Accept"
)

// ContentTypeJSON is the JSON content type.
const ContentTypeJSON = "application/json"

// Policy engine defaults.
const (
	DefaultURL     = "http://opa:8181"
	DefaultTimeout = 2 * time.Second
)

// Engine API paths.
const (
	dataPathPrefix = "/v1/data/"
	healthPath     = "/health"
)

// maxResponseBytes bounds the decision response body read into memory.
const maxResponseBytes = 1 << 20

// maxErrorBodyBytes bounds the response body kept on an HTTPError.
const maxErrorBodyBytes = 512
