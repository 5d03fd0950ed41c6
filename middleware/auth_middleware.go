package middleware

import (
	"context"
	"net/http"

	"github.com/upb/coffee-shop/auth"
	"github.com/upb/coffee-shop/utils"
	"go.uber.org/zap"
)

// TokenVerifier defines the interface for verifying access tokens
type TokenVerifier interface {
	// Verify validates a token and returns its claims
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

// ProtectedHandlerFunc is a handler that receives the verified claims of the caller
type ProtectedHandlerFunc func(w http.ResponseWriter, r *http.Request, claims *auth.Claims)

// AuthMiddleware guards handlers behind a bearer token and a required permission
type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *zap.Logger

	// collapseVerifyErrors reports every verification failure as "invalid token"
	collapseVerifyErrors bool
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier TokenVerifier, logger *zap.Logger, collapseVerifyErrors bool) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:             verifier,
		logger:               logger,
		collapseVerifyErrors: collapseVerifyErrors,
	}
}

// Authorize extracts the bearer token from r, verifies it, and checks that it
// grants permission. The returned error is always an *auth.AuthError.
func (m *AuthMiddleware) Authorize(r *http.Request, permission string) (*auth.Claims, error) {
	token, err := auth.ExtractBearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}

	claims, err := m.verifier.Verify(r.Context(), token)
	if err != nil {
		return nil, m.verifyError(err)
	}

	if err := auth.CheckPermissions(permission, claims); err != nil {
		return nil, err
	}

	return claims, nil
}

func (m *AuthMiddleware) verifyError(err error) *auth.AuthError {
	if m.collapseVerifyErrors {
		return auth.ErrInvalidToken(err)
	}
	if authErr, ok := auth.AsAuthError(err); ok {
		return authErr
	}
	return auth.ErrInvalidToken(err)
}

// Require wraps next so it only runs for callers holding permission.
// The verified claims are passed to next as an argument.
func (m *AuthMiddleware) Require(permission string, next ProtectedHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := GetRequestIDFromContext(r.Context())

		claims, err := m.Authorize(r, permission)
		if err != nil {
			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("permission", permission),
				zap.Error(err),
			}
			if authErr, ok := auth.AsAuthError(err); ok {
				fields = append(fields, zap.String("code", authErr.Code))
			}
			m.logger.Warn("authorization failed", fields...)
			_ = WriteAuthError(w, err)
			return
		}

		m.logger.Debug("authorization successful",
			zap.String("request_id", requestID),
			zap.String("sub", claims.Subject),
			zap.String("permission", permission))

		next(w, r, claims)
	}
}

// WriteAuthError renders err as {"code", "description"} with its status code.
// Errors that are not *auth.AuthError are rendered as "invalid token".
func WriteAuthError(w http.ResponseWriter, err error) error {
	authErr, ok := auth.AsAuthError(err)
	if !ok {
		authErr = auth.ErrInvalidToken(err)
	}
	return utils.WriteJSON(w, authErr.StatusCode, authErr)
}
