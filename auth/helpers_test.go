package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testDomain   = "coffee-test.eu.auth0.com"
	testAudience = "coffee"
)

// Test helper to generate RSA key pair
func generateTestKeyPair(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return privateKey, &privateKey.PublicKey
}

// Test helper to convert a public key to JWK format
func newTestJWK(publicKey *rsa.PublicKey, kid string) JSONWebKey {
	return JSONWebKey{
		Kid: kid,
		Kty: "RSA",
		Alg: "RS256",
		Use: "sig",
		N:   base64.RawURLEncoding.EncodeToString(publicKey.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(publicKey.E)).Bytes()),
	}
}

// mockJWKSServer serves a key set and counts requests
type mockJWKSServer struct {
	*httptest.Server
	hits atomic.Int32
	keys atomic.Pointer[KeySet]
}

func (s *mockJWKSServer) setKeys(keys ...JSONWebKey) {
	s.keys.Store(&KeySet{Keys: keys})
}

// Test helper to create a mock JWKS server
func createMockJWKSServer(t *testing.T, keys ...JSONWebKey) *mockJWKSServer {
	s := &mockJWKSServer{}
	s.setKeys(keys...)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.keys.Load())
	}))
	t.Cleanup(s.Close)
	return s
}

// Test helper returning claims a correctly configured verifier accepts
func validTestClaims(permissions ...string) jwt.MapClaims {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": "https://" + testDomain + "/",
		"sub": "auth0|" + uuid.New().String(),
		"aud": []string{testAudience, "https://" + testDomain + "/userinfo"},
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	if permissions != nil {
		claims["permissions"] = permissions
	}
	return claims
}

// Test helper to create a test token
func createTestToken(t *testing.T, privateKey *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}

	tokenString, err := token.SignedString(privateKey)
	require.NoError(t, err)

	return tokenString
}

func newTestVerifier(fetcher KeySetFetcher) *Verifier {
	return NewVerifier(VerifierConfig{
		Domain:   testDomain,
		Audience: testAudience,
	}, fetcher, zap.NewNop())
}
