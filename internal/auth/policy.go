package auth

import "github.com/spec-kit/client-service/internal/domain"

// CanAccess decides whether the identity may read or modify a resource
// owned by ownerID. Admins see everything; everyone else sees only what
// they own.
func CanAccess(identity domain.Identity, ownerID int64) bool {
	return identity.Role.IsAdmin() || identity.UserID == ownerID
}

// ListScope narrows a listing query. Owner is nil for an unrestricted
// listing, otherwise it points at the only user ID whose records may be
// returned.
type ListScope struct {
	Owner *int64
}

// All reports whether the scope is unrestricted.
func (s ListScope) All() bool {
	return s.Owner == nil
}

// ScopeForList computes the listing scope: admins see all records unless
// they explicitly ask for their own (mineOnly); non-admins are always
// restricted to their own.
func ScopeForList(identity domain.Identity, mineOnly bool) ListScope {
	if !identity.Role.IsAdmin() || mineOnly {
		owner := identity.UserID
		return ListScope{Owner: &owner}
	}
	return ListScope{}
}
