package provider

import (
	"net/http"
	"net/url"
)

// QueryProvider copies the query parameters under "query".
type QueryProvider struct {
	base
}

// NewQueryProvider creates a query provider.
func NewQueryProvider(opts ...Option) *QueryProvider {
	return &QueryProvider{base: newBase(TypeQuery, opts)}
}

// Extract returns {"query": {...}}. A parameter given once maps to a
// string, a repeated one to a list.
func (p *QueryProvider) Extract(r *http.Request) ContextData {
	query := make(map[string]interface{})

	values, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		p.fail(r, "malformed", err)
	}
	for key, vs := range values {
		switch len(vs) {
		case 0:
		case 1:
			query[key] = vs[0]
		default:
			list := make([]interface{}, len(vs))
			for i, v := range vs {
				list[i] = v
			}
			query[key] = list
		}
	}
	return ContextData{"query": query}
}
