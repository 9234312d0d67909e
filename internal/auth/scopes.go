// scopes.go defines permission scope constants for all hub resources and
// provides HasScope, HasAnyScope, and HasAllScopes helper functions for scope checking.
package auth

import (
	"errors"
	"fmt"
)

// Scope represents a permission/scope type
type Scope string

const (
	// Organization management scopes
	ScopeOrganizationsRead  Scope = "organizations:read"  // View organizations
	ScopeOrganizationsWrite Scope = "organizations:write" // Create, update, delete organizations

	// Application management scopes
	ScopeApplicationsRead  Scope = "applications:read"  // View applications and their key rows
	ScopeApplicationsWrite Scope = "applications:write" // Create, update, activate, delete applications

	// API key management scopes
	ScopeAPIKeysManage Scope = "api_keys:manage" // Generate, rotate, revoke application API keys

	// User management scopes
	ScopeUsersRead  Scope = "users:read"
	ScopeUsersWrite Scope = "users:write"

	// Audit log scopes
	ScopeAuditRead Scope = "audit:read"

	// Admin scope (wildcard - all permissions)
	ScopeAdmin Scope = "admin"
)

// AllScopes returns all valid scopes
func AllScopes() []Scope {
	return []Scope{
		ScopeOrganizationsRead,
		ScopeOrganizationsWrite,
		ScopeApplicationsRead,
		ScopeApplicationsWrite,
		ScopeAPIKeysManage,
		ScopeUsersRead,
		ScopeUsersWrite,
		ScopeAuditRead,
		ScopeAdmin,
	}
}

// ValidScopes returns a map of valid scope strings
func ValidScopes() map[string]bool {
	validScopes := make(map[string]bool)
	for _, scope := range AllScopes() {
		validScopes[string(scope)] = true
	}
	return validScopes
}

// ValidateScopes checks if all provided scopes are valid
func ValidateScopes(scopes []string) error {
	if len(scopes) == 0 {
		return errors.New("at least one scope is required")
	}
	validScopes := ValidScopes()
	for _, scope := range scopes {
		if !validScopes[scope] {
			return fmt.Errorf("invalid scope: %s", scope)
		}
	}
	return nil
}

// HasScope checks if a scope list contains the required scope.
// The admin scope implicitly grants every other scope.
func HasScope(scopes []string, required Scope) bool {
	for _, s := range scopes {
		if s == string(required) || s == string(ScopeAdmin) {
			return true
		}
	}
	return false
}

// HasAnyScope checks if a scope list contains at least one of the required scopes
func HasAnyScope(scopes []string, required []Scope) bool {
	for _, r := range required {
		if HasScope(scopes, r) {
			return true
		}
	}
	return false
}

// HasAllScopes checks if a scope list contains every required scope
func HasAllScopes(scopes []string, required []Scope) bool {
	for _, r := range required {
		if !HasScope(scopes, r) {
			return false
		}
	}
	return true
}
