package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" && !strings.HasPrefix(e.Message, e.Path) {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate checks every section and returns all problems at once as
// ValidationErrors.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(path string, err error) {
		if err != nil {
			errs = append(errs, ValidationError{Path: path, Message: err.Error()})
		}
	}

	if c == nil {
		return ValidationErrors{{Message: "configuration is nil"}}
	}

	if c.Server.Address == "" {
		errs = append(errs, ValidationError{Path: "server.address", Message: "address is required"})
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		errs = append(errs, ValidationError{Path: "server", Message: "timeouts must be non-negative"})
	}

	add("jwt", c.JWT.Validate())
	add("policyEngine", c.PolicyEngine.Config.Validate())
	if c.PolicyEngine.Vault.Enabled {
		add("policyEngine.vault", c.PolicyEngine.Vault.Validate())
		if c.PolicyEngine.Token != "" {
			errs = append(errs, ValidationError{
				Path:    "policyEngine.token",
				Message: "token and vault are mutually exclusive",
			})
		}
	}
	add("authz", c.Authz.Validate())

	if len(c.CORS.AllowOrigins) == 0 {
		errs = append(errs, ValidationError{Path: "cors.origins", Message: "at least one origin is required"})
	}
	if c.CORS.MaxAge < 0 {
		errs = append(errs, ValidationError{Path: "cors.maxAge", Message: "maxAge must be non-negative"})
	}

	if c.Upstream.URL != "" {
		if u, err := url.Parse(c.Upstream.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Path:    "upstream.url",
				Message: fmt.Sprintf("invalid URL %q", c.Upstream.URL),
			})
		}
	}

	add("observability.logging", c.Observability.Logging.Validate())
	add("observability.tracing", c.Observability.Tracing.Validate())
	if m := c.Observability.Metrics; m.Enabled {
		if m.Address == "" {
			errs = append(errs, ValidationError{Path: "observability.metrics.address", Message: "address is required"})
		}
		if m.Address == c.Server.Address {
			errs = append(errs, ValidationError{
				Path:    "observability.metrics.address",
				Message: "must differ from server.address",
			})
		}
		if !strings.HasPrefix(m.Path, "/") {
			errs = append(errs, ValidationError{Path: "observability.metrics.path", Message: "path must start with /"})
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
