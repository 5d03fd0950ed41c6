package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PermissionsClaim is the payload field holding granted permission strings
const PermissionsClaim = "permissions"

// Claims is the verified payload of an access token.
// A Claims value is only produced by Verifier after signature, issuer,
// audience, and expiry checks passed; it is not mutated afterwards.
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time

	// Permissions is nil when the token carries no permissions claim.
	// A present but empty claim yields an empty, non-nil slice.
	Permissions []string

	// Raw is a copy of the complete decoded payload
	Raw map[string]interface{}
}

// NewClaims builds Claims from a decoded token payload
func NewClaims(payload map[string]interface{}) (*Claims, error) {
	mc := jwt.MapClaims(payload)

	sub, err := mc.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("invalid sub claim: %w", err)
	}
	iss, err := mc.GetIssuer()
	if err != nil {
		return nil, fmt.Errorf("invalid iss claim: %w", err)
	}
	aud, err := mc.GetAudience()
	if err != nil {
		return nil, fmt.Errorf("invalid aud claim: %w", err)
	}
	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("invalid exp claim: %w", err)
	}
	iat, err := mc.GetIssuedAt()
	if err != nil {
		return nil, fmt.Errorf("invalid iat claim: %w", err)
	}

	permissions, err := parsePermissions(payload)
	if err != nil {
		return nil, err
	}

	claims := &Claims{
		Subject:     sub,
		Issuer:      iss,
		Audience:    []string(aud),
		Permissions: permissions,
		Raw:         copyMap(payload),
	}
	if exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat != nil {
		claims.IssuedAt = iat.Time
	}

	return claims, nil
}

// HasPermission reports whether permission is granted verbatim
func (c *Claims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

func parsePermissions(payload map[string]interface{}) ([]string, error) {
	value, ok := payload[PermissionsClaim]
	if !ok || value == nil {
		return nil, nil
	}

	switch v := value.(type) {
	case []string:
		return append(make([]string, 0, len(v)), v...), nil
	case []interface{}:
		permissions := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s claim must contain only strings", PermissionsClaim)
			}
			permissions = append(permissions, s)
		}
		return permissions, nil
	default:
		return nil, fmt.Errorf("%s claim must be an array, got %T", PermissionsClaim, value)
	}
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return copyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = copyValue(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
