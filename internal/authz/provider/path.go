package provider

import (
	"net/http"
	"strings"
)

// PathProvider exposes the non-empty path segments under "segments".
type PathProvider struct {
	base
}

// NewPathProvider creates a path provider.
func NewPathProvider(opts ...Option) *PathProvider {
	return &PathProvider{base: newBase(TypePath, opts)}
}

// Extract returns {"segments": [...]}.
func (p *PathProvider) Extract(r *http.Request) ContextData {
	segments := make([]interface{}, 0)
	for _, s := range strings.Split(r.URL.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return ContextData{"segments": segments}
}
