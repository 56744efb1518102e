package provider

import (
	"net/http"
)

// sensitiveHeaders are never copied into context data.
var sensitiveHeaders = map[string]bool{
	"Authorization":       true,
	"Cookie":              true,
	"Set-Cookie":          true,
	"Proxy-Authorization": true,
	"X-Api-Key":           true,
	"X-Auth-Token":        true,
}

// HeaderProvider copies an allow-list of request headers under "headers".
type HeaderProvider struct {
	base
	names []string
}

// NewHeaderProvider creates a header provider for the given header names.
func NewHeaderProvider(names []string, opts ...Option) *HeaderProvider {
	canonical := make([]string, 0, len(names))
	for _, name := range names {
		name = http.CanonicalHeaderKey(name)
		if name == "" || sensitiveHeaders[name] {
			continue
		}
		canonical = append(canonical, name)
	}
	return &HeaderProvider{
		base:  newBase(TypeHeaders, opts),
		names: canonical,
	}
}

// Extract returns {"headers": {name: first value}} for present headers.
func (p *HeaderProvider) Extract(r *http.Request) ContextData {
	headers := make(map[string]interface{}, len(p.names))
	for _, name := range p.names {
		if values := r.Header.Values(name); len(values) > 0 {
			headers[name] = values[0]
		}
	}
	return ContextData{"headers": headers}
}
