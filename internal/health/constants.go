package health

// HTTP header constants.
const (
	// HeaderContentType is the Content-Type header name.
	HeaderContentType = "Content-Type"
)

// Content type constants.
const (
	// ContentTypeJSON is the JSON content type.
	ContentTypeJSON = "application/json"
)

// Check names.
const (
	CheckPolicyEngine    = "policy_engine"
	CheckContextProvider = "context_provider"
)
