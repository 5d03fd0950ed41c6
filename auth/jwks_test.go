package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPKeySetFetcher_FetchKeySet(t *testing.T) {
	_, publicKey := generateTestKeyPair(t)
	jwk := newTestJWK(publicKey, "kid-1")
	server := createMockJWKSServer(t, jwk)

	fetcher := NewHTTPKeySetFetcher(server.URL, 5*time.Second)
	ctx := context.Background()

	keySet, err := fetcher.FetchKeySet(ctx)
	require.NoError(t, err)
	require.Len(t, keySet.Keys, 1)
	assert.Equal(t, jwk, keySet.Keys[0])

	// No caching: every call hits the endpoint
	_, err = fetcher.FetchKeySet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), server.hits.Load())
}

func TestHTTPKeySetFetcher_Errors(t *testing.T) {
	t.Run("non 200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := NewHTTPKeySetFetcher(server.URL, 0).FetchKeySet(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrKeySetFetchFailed)
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		}))
		defer server.Close()

		_, err := NewHTTPKeySetFetcher(server.URL, 0).FetchKeySet(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrKeySetFetchFailed)
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := NewHTTPKeySetFetcher(url, time.Second).FetchKeySet(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrKeySetFetchFailed)
	})
}

func TestNewHTTPKeySetFetcher_DefaultTimeout(t *testing.T) {
	fetcher := NewHTTPKeySetFetcher("https://example.com/jwks.json", 0)
	assert.Equal(t, 10*time.Second, fetcher.httpClient.Timeout)
	assert.Equal(t, "https://example.com/jwks.json", fetcher.URL())
}

func TestJWKSURL(t *testing.T) {
	assert.Equal(t, "https://tenant.auth0.com/.well-known/jwks.json", JWKSURL("tenant.auth0.com"))
}

func TestKeySet_Lookup(t *testing.T) {
	keySet := &KeySet{Keys: []JSONWebKey{
		{Kid: "a", N: "first"},
		{Kid: "b", N: "other"},
		{Kid: "a", N: "last"},
	}}

	key, ok := keySet.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "last", key.N, "last matching key wins")

	_, ok = keySet.Lookup("missing")
	assert.False(t, ok)

	var nilSet *KeySet
	_, ok = nilSet.Lookup("a")
	assert.False(t, ok)
}

func TestJSONWebKey_RSAPublicKey(t *testing.T) {
	_, publicKey := generateTestKeyPair(t)
	jwk := newTestJWK(publicKey, "kid-1")

	key, err := jwk.RSAPublicKey()
	require.NoError(t, err)
	assert.Equal(t, publicKey.N, key.N)
	assert.Equal(t, publicKey.E, key.E)

	tests := []struct {
		name   string
		mutate func(k *JSONWebKey)
		errMsg string
	}{
		{"wrong key type", func(k *JSONWebKey) { k.Kty = "EC" }, "unsupported key type"},
		{"bad modulus encoding", func(k *JSONWebKey) { k.N = "!!!" }, "failed to decode modulus"},
		{"empty modulus", func(k *JSONWebKey) { k.N = "" }, "empty modulus"},
		{"bad exponent encoding", func(k *JSONWebKey) { k.E = "!!!" }, "failed to decode exponent"},
		{"zero exponent", func(k *JSONWebKey) { k.E = "" }, "invalid exponent"},
		{"oversized exponent", func(k *JSONWebKey) { k.E = "AQAAAAAB" }, "invalid exponent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := jwk
			tt.mutate(&k)
			_, err := k.RSAPublicKey()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidKey)
			assert.True(t, strings.Contains(err.Error(), tt.errMsg), err.Error())
		})
	}
}
