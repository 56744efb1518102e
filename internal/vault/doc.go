// Package vault reads the policy engine bearer token from HashiCorp Vault.
//
// The token is stored in a KV v2 secret. A TokenSource authenticates to
// Vault with a token, AppRole or Kubernetes ServiceAccount credentials,
// reads the secret and caches the value for a configurable TTL. When Vault
// is unavailable the last value read keeps being served.
//
//	cfg := vault.Config{
//	    Enabled:    true,
//	    Address:    "https://vault.example.com:8200",
//	    AuthMethod: vault.AuthMethodAppRole,
//	    AppRole:    vault.AppRoleAuthConfig{RoleID: "...", SecretID: "..."},
//	    Mount:      "secret",
//	    Path:       "opagate/policy-engine",
//	    Key:        "token",
//	}
package vault
