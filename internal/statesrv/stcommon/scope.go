package stcommon

import (
	"regexp"
)

// scopeIdRe mirrors the check constraint on the manifests table.
var scopeIdRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// IsValidScopeID reports whether a scope id is acceptable: non-empty,
// at most 64 characters, alphanumerics plus '-' and '_'.
func IsValidScopeID(scopeID string) bool {
	return scopeIdRe.MatchString(scopeID)
}
