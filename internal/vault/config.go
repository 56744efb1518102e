package vault

import (
	"errors"
	"fmt"
	"time"
)

// AuthMethod specifies the Vault authentication method.
type AuthMethod string

// Authentication method constants.
const (
	// AuthMethodToken uses direct token authentication.
	AuthMethodToken AuthMethod = "token"

	// AuthMethodKubernetes uses Kubernetes ServiceAccount JWT authentication.
	AuthMethodKubernetes AuthMethod = "kubernetes"

	// AuthMethodAppRole uses AppRole authentication with RoleID and SecretID.
	AuthMethodAppRole AuthMethod = "approle"
)

// Defaults.
const (
	DefaultMount               = "secret"
	DefaultKey                 = "token"
	DefaultCacheTTL            = 5 * time.Minute
	DefaultTimeout             = 5 * time.Second
	DefaultAppRoleMountPath    = "approle"
	DefaultKubernetesMountPath = "kubernetes"
	DefaultKubernetesTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token" //nolint:gosec // file path
)

// IsValid returns true if the auth method is valid.
func (m AuthMethod) IsValid() bool {
	switch m {
	case AuthMethodToken, AuthMethodKubernetes, AuthMethodAppRole:
		return true
	default:
		return false
	}
}

// Config represents the Vault token source configuration.
type Config struct {
	// Enabled enables reading the token from Vault.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Address is the Vault server address.
	Address string `yaml:"address" json:"address"`

	// Namespace is the Vault namespace (Enterprise feature).
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`

	// AuthMethod specifies the authentication method.
	AuthMethod AuthMethod `yaml:"authMethod" json:"authMethod"`

	// Token for token authentication.
	Token string `yaml:"token,omitempty" json:"token,omitempty"`

	// AppRole auth configuration.
	AppRole AppRoleAuthConfig `yaml:"appRole,omitempty" json:"appRole,omitempty"`

	// Kubernetes auth configuration.
	Kubernetes KubernetesAuthConfig `yaml:"kubernetes,omitempty" json:"kubernetes,omitempty"`

	// Mount is the KV v2 mount.
	Mount string `yaml:"mount,omitempty" json:"mount,omitempty"`

	// Path is the secret path below the mount.
	Path string `yaml:"path" json:"path"`

	// Key is the field of the secret holding the token.
	Key string `yaml:"key,omitempty" json:"key,omitempty"`

	// CacheTTL is how long a read value is served before re-reading.
	CacheTTL time.Duration `yaml:"cacheTTL,omitempty" json:"cacheTTL,omitempty"`

	// Timeout bounds every Vault request.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// AppRoleAuthConfig configures AppRole authentication.
type AppRoleAuthConfig struct {
	RoleID    string `yaml:"roleId" json:"roleId"`
	SecretID  string `yaml:"secretId" json:"secretId"`
	MountPath string `yaml:"mountPath,omitempty" json:"mountPath,omitempty"`
}

// KubernetesAuthConfig configures Kubernetes authentication.
type KubernetesAuthConfig struct {
	Role      string `yaml:"role" json:"role"`
	MountPath string `yaml:"mountPath,omitempty" json:"mountPath,omitempty"`
	TokenPath string `yaml:"tokenPath,omitempty" json:"tokenPath,omitempty"`
}

// DefaultConfig returns the default Vault configuration, disabled.
func DefaultConfig() Config {
	return Config{
		AuthMethod: AuthMethodToken,
		Mount:      DefaultMount,
		Key:        DefaultKey,
		CacheTTL:   DefaultCacheTTL,
		Timeout:    DefaultTimeout,
	}
}

// Validate validates the configuration. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Address == "" {
		return errors.New("vault.address is required")
	}
	if c.Path == "" {
		return errors.New("vault.path is required")
	}
	if !c.AuthMethod.IsValid() {
		return fmt.Errorf("vault.authMethod %q is not supported", c.AuthMethod)
	}

	switch c.AuthMethod {
	case AuthMethodToken:
		if c.Token == "" {
			return fmt.Errorf("%w: vault.token is required for token auth", ErrInvalidAuthConfig)
		}
	case AuthMethodAppRole:
		if c.AppRole.RoleID == "" || c.AppRole.SecretID == "" {
			return fmt.Errorf("%w: vault.appRole.roleId and secretId are required", ErrInvalidAuthConfig)
		}
	case AuthMethodKubernetes:
		if c.Kubernetes.Role == "" {
			return fmt.Errorf("%w: vault.kubernetes.role is required", ErrInvalidAuthConfig)
		}
	}

	if c.CacheTTL < 0 || c.Timeout < 0 {
		return errors.New("vault.cacheTTL and vault.timeout must be non-negative")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Mount == "" {
		c.Mount = DefaultMount
	}
	if c.Key == "" {
		c.Key = DefaultKey
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.AppRole.MountPath == "" {
		c.AppRole.MountPath = DefaultAppRoleMountPath
	}
	if c.Kubernetes.MountPath == "" {
		c.Kubernetes.MountPath = DefaultKubernetesMountPath
	}
	if c.Kubernetes.TokenPath == "" {
		c.Kubernetes.TokenPath = DefaultKubernetesTokenPath
	}
}
