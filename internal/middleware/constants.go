package middleware

// HTTP header constants.
const (
	HeaderContentType = "Content-Type"
	HeaderRequestID   = "X-Request-ID"
)

// ContentTypeJSON is the JSON content type.
const ContentTypeJSON = "application/json"

// errInternalServerError is the JSON body written after a recovered panic.
const errInternalServerError = `{"error":"internal server error"}`
