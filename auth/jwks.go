package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"time"
)

// maxKeySetBytes caps the JWKS response body
const maxKeySetBytes = 1 << 20

// KeySet represents the JSON Web Key Set published by the identity provider
type KeySet struct {
	Keys []JSONWebKey `json:"keys"`
}

// JSONWebKey represents a single RSA signing key
type JSONWebKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg,omitempty"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// Lookup returns the key whose kid matches. When several keys share the kid
// the last one in the set wins.
func (ks *KeySet) Lookup(kid string) (*JSONWebKey, bool) {
	if ks == nil {
		return nil, false
	}
	var found *JSONWebKey
	for i := range ks.Keys {
		if ks.Keys[i].Kid == kid {
			found = &ks.Keys[i]
		}
	}
	return found, found != nil
}

// RSAPublicKey converts the JWK into an RSA public key
func (k *JSONWebKey) RSAPublicKey() (*rsa.PublicKey, error) {
	if k.Kty != "RSA" {
		return nil, fmt.Errorf("%w: unsupported key type %q", ErrInvalidKey, k.Kty)
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode modulus: %v", ErrInvalidKey, err)
	}
	if len(nBytes) == 0 {
		return nil, fmt.Errorf("%w: empty modulus", ErrInvalidKey)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode exponent: %v", ErrInvalidKey, err)
	}

	e := new(big.Int).SetBytes(eBytes)
	if e.Sign() <= 0 || !e.IsInt64() || e.Int64() > math.MaxInt32 {
		return nil, fmt.Errorf("%w: invalid exponent", ErrInvalidKey)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}

// KeySetFetcher retrieves the identity provider's current key set
type KeySetFetcher interface {
	FetchKeySet(ctx context.Context) (*KeySet, error)
}

// KeySetRefresher is implemented by fetchers that may serve a stale key set
// and can be asked to bypass it, e.g. after a kid miss.
type KeySetRefresher interface {
	RefreshKeySet(ctx context.Context) (*KeySet, error)
}

// JWKSURL returns the well-known JWKS location for an identity provider domain
func JWKSURL(domain string) string {
	return fmt.Sprintf("https://%s/.well-known/jwks.json", domain)
}

// HTTPKeySetFetcher fetches the key set over HTTP on every call
type HTTPKeySetFetcher struct {
	url        string
	httpClient *http.Client
}

// NewHTTPKeySetFetcher creates a fetcher for the given JWKS URL.
// A zero timeout falls back to 10 seconds.
func NewHTTPKeySetFetcher(url string, timeout time.Duration) *HTTPKeySetFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPKeySetFetcher{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// URL returns the JWKS endpoint this fetcher reads from
func (f *HTTPKeySetFetcher) URL() string {
	return f.url
}

// FetchKeySet performs a GET against the JWKS endpoint and decodes the response
func (f *HTTPKeySetFetcher) FetchKeySet(ctx context.Context) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySetFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status code %d", ErrKeySetFetchFailed, resp.StatusCode)
	}

	var keySet KeySet
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxKeySetBytes)).Decode(&keySet); err != nil {
		return nil, fmt.Errorf("%w: failed to decode JWKS: %v", ErrKeySetFetchFailed, err)
	}

	return &keySet, nil
}
