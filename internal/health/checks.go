package health

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/opagate/internal/authz/external"
	"github.com/vyrodovalexey/opagate/internal/authz/provider"
)

// PolicyEngineCheck probes the policy engine health endpoint.
func PolicyEngineCheck(client external.Client) CheckFunc {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("policy engine client is nil")
		}
		return client.Health(ctx)
	}
}

// ContextProviderCheck pings the stores behind p. Providers without a
// store always pass.
func ContextProviderCheck(p provider.Provider) CheckFunc {
	return func(ctx context.Context) error {
		if p == nil {
			return nil
		}
		return provider.Ping(ctx, p)
	}
}
