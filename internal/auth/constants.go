package auth

// HTTP header constants for authentication.
const (
	// HeaderAuthorization is the Authorization header name.
	HeaderAuthorization = "Authorization"

	// HeaderWWWAuthenticate is the WWW-Authenticate header name.
	HeaderWWWAuthenticate = "WWW-Authenticate"

	// HeaderContentType is the Content-Type header name.
	HeaderContentType = "Content-Type"
)

// ContentTypeJSON is the JSON content type.
const ContentTypeJSON = "application/json"

// AuthSchemeBearer is the Bearer authentication scheme.
const AuthSchemeBearer = "Bearer"
