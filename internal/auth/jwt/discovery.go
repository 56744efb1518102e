package jwt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// wellKnownPath is the OIDC discovery document path relative to the authority.
const wellKnownPath = "/.well-known/openid-configuration"

// maxDiscoveryBytes bounds the discovery and JWKS documents read from the network.
const maxDiscoveryBytes = 1 << 20

// DiscoveryDocument holds the fields of the OIDC discovery document the
// validator needs.
type DiscoveryDocument struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// Discover fetches the OIDC discovery document of authority.
func Discover(ctx context.Context, client *http.Client, authority string, requireHTTPS bool) (*DiscoveryDocument, error) {
	if err := checkMetadataURL(authority, requireHTTPS); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	endpoint := strings.TrimSuffix(authority, "/") + wellKnownPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscoveryFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscoveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d from %s", ErrDiscoveryFailed, resp.StatusCode, endpoint)
	}

	var doc DiscoveryDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDiscoveryBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrDiscoveryFailed, err)
	}
	if doc.JWKSURI == "" {
		return nil, fmt.Errorf("%w: jwks_uri missing", ErrDiscoveryFailed)
	}
	if err := checkMetadataURL(doc.JWKSURI, requireHTTPS); err != nil {
		return nil, err
	}

	return &doc, nil
}

func checkMetadataURL(raw string, requireHTTPS bool) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDiscoveryFailed, err)
	}
	if requireHTTPS && u.Scheme != "https" {
		return fmt.Errorf("%w: %s", ErrInsecureMetadata, raw)
	}
	return nil
}
