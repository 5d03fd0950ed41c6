package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// DefaultAlgorithms lists the signing algorithms accepted when none are configured
var DefaultAlgorithms = []string{jwt.SigningMethodRS256.Alg()}

// VerifierConfig holds identity provider settings for token verification
type VerifierConfig struct {
	// Domain is the identity provider host, e.g. "tenant.eu.auth0.com"
	Domain string
	// Audience is the API identifier tokens must be issued for
	Audience string
	// Algorithms accepted for signatures. Defaults to RS256 only.
	Algorithms []string
	// Leeway is the clock skew tolerated on time based claims
	Leeway time.Duration
}

// Issuer returns the expected iss claim for the configured domain
func (c VerifierConfig) Issuer() string {
	return fmt.Sprintf("https://%s/", c.Domain)
}

// Verifier validates access tokens against the identity provider's key set
type Verifier struct {
	issuer   string
	audience string
	fetcher  KeySetFetcher
	parser   *jwt.Parser
	logger   *zap.Logger
}

// NewVerifier creates a verifier that resolves signing keys through fetcher
func NewVerifier(cfg VerifierConfig, fetcher KeySetFetcher, logger *zap.Logger) *Verifier {
	algorithms := cfg.Algorithms
	if len(algorithms) == 0 {
		algorithms = DefaultAlgorithms
	}

	issuer := cfg.Issuer()
	parser := jwt.NewParser(
		jwt.WithValidMethods(algorithms),
		jwt.WithAudience(cfg.Audience),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	)

	return &Verifier{
		issuer:   issuer,
		audience: cfg.Audience,
		fetcher:  fetcher,
		parser:   parser,
		logger:   logger,
	}
}

// Verify checks the token's signature, issuer, audience, and expiry and
// returns its claims. Failures are returned as *AuthError.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	kid, err := unverifiedKeyID(tokenString)
	if err != nil {
		return nil, err
	}

	jwk, err := v.resolveKey(ctx, kid)
	if err != nil {
		return nil, err
	}

	publicKey, err := jwk.RSAPublicKey()
	if err != nil {
		return nil, errUnparsable(err)
	}

	payload := jwt.MapClaims{}
	_, err = v.parser.ParseWithClaims(tokenString, payload, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, err := NewClaims(payload)
	if err != nil {
		return nil, errUnparsable(err)
	}

	v.logger.Debug("token verified",
		zap.String("sub", claims.Subject),
		zap.String("kid", kid))

	return claims, nil
}

// unverifiedKeyID reads the kid header without checking the signature
func unverifiedKeyID(tokenString string) (string, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", errUnparsable(err)
	}

	raw, ok := token.Header["kid"]
	if !ok {
		return "", errMalformed(errors.New("kid header not found"))
	}

	// A non-string kid cannot match any key and is reported as a key miss.
	kid, _ := raw.(string)
	return kid, nil
}

// resolveKey finds the key for kid, refetching once on a miss when the
// fetcher may be serving a cached key set.
func (v *Verifier) resolveKey(ctx context.Context, kid string) (*JSONWebKey, error) {
	keySet, err := v.fetcher.FetchKeySet(ctx)
	if err != nil {
		return nil, errKeyNotFound(err)
	}
	if jwk, ok := keySet.Lookup(kid); ok {
		return jwk, nil
	}

	if refresher, ok := v.fetcher.(KeySetRefresher); ok {
		v.logger.Debug("kid not in cached jwks, refetching", zap.String("kid", kid))
		keySet, err = refresher.RefreshKeySet(ctx)
		if err != nil {
			return nil, errKeyNotFound(err)
		}
		if jwk, ok := keySet.Lookup(kid); ok {
			return jwk, nil
		}
	}

	return nil, errKeyNotFound(fmt.Errorf("key with kid %q not found in JWKS", kid))
}

// classifyParseError maps jwt validation errors onto AuthErrors.
// Expiry takes precedence when several checks fail at once.
func classifyParseError(err error) *AuthError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return errExpired(err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return errClaims(err)
	default:
		return errUnparsable(err)
	}
}
