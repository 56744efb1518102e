package authz

import (
	"errors"
)

// ErrNoPolicyEngine indicates that an Enforcer was built without a client.
var ErrNoPolicyEngine = errors.New("policy engine client is required")

// Outcome is the terminal result of authorizing one request.
type Outcome string

// Outcomes.
const (
	// OutcomeAllowed means the policy allowed the request.
	OutcomeAllowed Outcome = "allow"

	// OutcomeDenied means the policy denied the request.
	OutcomeDenied Outcome = "deny"

	// OutcomeClientError means no verdict could be obtained.
	OutcomeClientError Outcome = "error"

	// OutcomeFailOpen means no verdict could be obtained and the request
	// was let through because fail-open is configured.
	OutcomeFailOpen Outcome = "fail_open"

	// OutcomeCanceled means the caller went away before a verdict.
	OutcomeCanceled Outcome = "canceled"

	// OutcomeSkipped means the path bypasses authorization.
	OutcomeSkipped Outcome = "skipped"
)

// errorResponse is the JSON body of a rejection.
type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
	Code   string `json:"code,omitempty"`
}
