package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried by AuthError
const (
	CodeHeaderMissing      = "authorization_header_missing"
	CodeInvalidHeader      = "invalid_header"
	CodeInvalidClaims      = "invalid_claims"
	CodeTokenExpired       = "token_expired"
	CodeInvalidPermissions = "invalid_permissions"
	CodeInvalidToken       = "invalid token"
)

var (
	// ErrKeySetFetchFailed is returned when the JWKS document cannot be retrieved
	ErrKeySetFetchFailed = errors.New("failed to fetch JWKS")

	// ErrInvalidKey is returned when a JWK cannot be turned into an RSA public key
	ErrInvalidKey = errors.New("invalid JSON web key")
)

// AuthError is a classified authentication or authorization failure.
// It is rendered at the HTTP boundary as {"code", "description"} with StatusCode.
type AuthError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	StatusCode  int    `json:"-"`

	// cause is kept for logging only and never rendered
	cause error
}

// Error implements the error interface
func (e *AuthError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Description, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Unwrap returns the underlying cause, if any
func (e *AuthError) Unwrap() error {
	return e.cause
}

// Is matches another AuthError with the same code and status
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.StatusCode == t.StatusCode
}

func newAuthError(code, description string, status int, cause error) *AuthError {
	return &AuthError{
		Code:        code,
		Description: description,
		StatusCode:  status,
		cause:       cause,
	}
}

// AsAuthError extracts an *AuthError from an error chain
func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// Header errors

func errHeaderMissing() *AuthError {
	return newAuthError(CodeHeaderMissing, "Authorization header is expected.", http.StatusUnauthorized, nil)
}

func errHeaderScheme() *AuthError {
	return newAuthError(CodeInvalidHeader, `Authorization header must start with "Bearer".`, http.StatusUnauthorized, nil)
}

func errTokenNotFound() *AuthError {
	return newAuthError(CodeInvalidHeader, "Token not found.", http.StatusUnauthorized, nil)
}

func errNotBearerToken() *AuthError {
	return newAuthError(CodeInvalidHeader, "Authorization header must be bearer token.", http.StatusUnauthorized, nil)
}

// Verification errors

func errMalformed(cause error) *AuthError {
	return newAuthError(CodeInvalidHeader, "Authorization malformed.", http.StatusUnauthorized, cause)
}

func errKeyNotFound(cause error) *AuthError {
	return newAuthError(CodeInvalidHeader, "Unable to find the appropriate key.", http.StatusBadRequest, cause)
}

func errUnparsable(cause error) *AuthError {
	return newAuthError(CodeInvalidHeader, "Unable to parse authentication token.", http.StatusBadRequest, cause)
}

func errExpired(cause error) *AuthError {
	return newAuthError(CodeTokenExpired, "Token expired.", http.StatusUnauthorized, cause)
}

func errClaims(cause error) *AuthError {
	return newAuthError(CodeInvalidClaims, "Incorrect claims. Please, check the audience and issuer.", http.StatusUnauthorized, cause)
}

// Permission errors

func errNoRoles() *AuthError {
	return newAuthError(CodeInvalidPermissions, "User does not have any roles attached.", http.StatusUnauthorized, nil)
}

func errNotEnoughPrivileges() *AuthError {
	return newAuthError(CodeInvalidPermissions, "User does not have enough privileges.", http.StatusUnauthorized, nil)
}

// ErrInvalidToken returns the generic failure used when verification errors are collapsed
// or when verification fails for a reason that carries no classification.
func ErrInvalidToken(cause error) *AuthError {
	return newAuthError(CodeInvalidToken, "Invalid token.", http.StatusUnauthorized, cause)
}
