package authz

// HTTP header constants.
const (
	HeaderContentType = "Content-Type"
)

// ContentTypeJSON is the JSON content type.
const ContentTypeJSON = "application/json"

// StatusClientClosedRequest is written when the caller cancels the request
// before a decision is made.
const StatusClientClosedRequest = 499

// DefaultPolicyPath is the policy evaluated when no route group matches.
const DefaultPolicyPath = "system/main"

// Machine-readable codes of engine failure responses.
const (
	CodePolicyEngineUnreachable   = "policy_engine_unreachable"
	CodePolicyEngineTimeout       = "policy_engine_timeout"
	CodePolicyEngineProtocolError = "policy_engine_protocol_error"
)
