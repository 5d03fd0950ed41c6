package auth

import "strings"

// ExtractBearerToken returns the token from an Authorization header value of
// the form "Bearer <token>". Parts are split on any run of whitespace and the
// scheme is matched case-insensitively.
func ExtractBearerToken(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) == 0 {
		return "", errHeaderMissing()
	}

	if !strings.EqualFold(parts[0], "bearer") {
		return "", errHeaderScheme()
	}

	switch {
	case len(parts) == 1:
		return "", errTokenNotFound()
	case len(parts) > 2:
		return "", errNotBearerToken()
	}

	return parts[1], nil
}
