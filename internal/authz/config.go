package authz

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/vyrodovalexey/opagate/internal/authz/external"
	"github.com/vyrodovalexey/opagate/internal/authz/provider"
)

// Config represents the authorization configuration.
type Config struct {
	// PolicyPath is the policy evaluated when no route group matches.
	PolicyPath string `yaml:"policyPath" json:"policyPath"`

	// FailOpen lets requests through when the policy engine fails.
	FailOpen bool `yaml:"failOpen" json:"failOpen"`

	// SkipPaths bypass authorization. An entry ending in "*" is a prefix.
	SkipPaths []string `yaml:"skipPaths,omitempty" json:"skipPaths,omitempty"`

	// RouteGroups select a policy per path prefix. The longest matching
	// prefix wins.
	RouteGroups []RouteGroup `yaml:"routeGroups,omitempty" json:"routeGroups,omitempty"`

	// ContextProvider configures the context data provider.
	ContextProvider provider.Config `yaml:"contextProvider" json:"contextProvider"`
}

// RouteGroup maps a path prefix to a policy path.
type RouteGroup struct {
	PathPrefix string `yaml:"pathPrefix" json:"pathPrefix"`
	PolicyPath string `yaml:"policyPath" json:"policyPath"`
}

// DefaultConfig returns the default authorization configuration.
func DefaultConfig() Config {
	return Config{
		PolicyPath:      DefaultPolicyPath,
		SkipPaths:       []string{"/health", "/ready", "/live"},
		ContextProvider: provider.DefaultConfig(),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := external.ValidatePolicyPath(c.PolicyPath); err != nil {
		return fmt.Errorf("authz.policyPath: %w", err)
	}

	seen := make(map[string]bool, len(c.RouteGroups))
	for i, g := range c.RouteGroups {
		if !strings.HasPrefix(g.PathPrefix, "/") {
			return fmt.Errorf("authz.routeGroups[%d].pathPrefix %q must start with /", i, g.PathPrefix)
		}
		if seen[g.PathPrefix] {
			return fmt.Errorf("authz.routeGroups[%d].pathPrefix %q is duplicated", i, g.PathPrefix)
		}
		seen[g.PathPrefix] = true
		if err := external.ValidatePolicyPath(g.PolicyPath); err != nil {
			return fmt.Errorf("authz.routeGroups[%d].policyPath: %w", i, err)
		}
	}

	for i, p := range c.SkipPaths {
		if p == "" || p == "*" {
			return fmt.Errorf("authz.skipPaths[%d] %q would bypass authorization for every path", i, p)
		}
		if !strings.HasPrefix(p, "/") {
			return errors.New("authz.skipPaths entries must start with /")
		}
	}

	return c.ContextProvider.Validate()
}

// pathMatcher resolves policy paths and skip paths for request paths. It
// is built once from an immutable Config.
type pathMatcher struct {
	defaultPolicy string
	groups        []RouteGroup
	skipExact     map[string]bool
	skipPrefixes  []string
}

func newPathMatcher(cfg *Config) *pathMatcher {
	groups := make([]RouteGroup, len(cfg.RouteGroups))
	copy(groups, cfg.RouteGroups)
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].PathPrefix) > len(groups[j].PathPrefix)
	})

	m := &pathMatcher{
		defaultPolicy: cfg.PolicyPath,
		groups:        groups,
		skipExact:     make(map[string]bool),
	}
	for _, p := range cfg.SkipPaths {
		if strings.HasSuffix(p, "*") {
			m.skipPrefixes = append(m.skipPrefixes, strings.TrimSuffix(p, "*"))
			continue
		}
		m.skipExact[p] = true
	}
	return m
}

// policyPathFor returns the policy of the longest route group prefix that
// matches path on a segment boundary, or the default policy.
func (m *pathMatcher) policyPathFor(path string) string {
	for _, g := range m.groups {
		if matchesPrefix(path, g.PathPrefix) {
			return g.PolicyPath
		}
	}
	return m.defaultPolicy
}

func (m *pathMatcher) skip(path string) bool {
	if m.skipExact[path] {
		return true
	}
	for _, prefix := range m.skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func matchesPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) || strings.HasSuffix(prefix, "/") {
		return true
	}
	return path[len(prefix)] == '/'
}

// cleanPath resolves dot-segments and repeated slashes. A trailing slash
// is kept.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	cleaned := path.Clean(p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}
