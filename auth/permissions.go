package auth

// CheckPermissions verifies that claims grant permission. Matching is exact
// string equality; an empty permission is not special-cased and must itself
// be present in the claim.
func CheckPermissions(permission string, claims *Claims) error {
	if claims == nil || claims.Permissions == nil {
		return errNoRoles()
	}
	if !claims.HasPermission(permission) {
		return errNotEnoughPrivileges()
	}
	return nil
}
