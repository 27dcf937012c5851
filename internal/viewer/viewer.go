package viewer

import "gorm.io/gorm"

// Viewer is the opaque identity attached to every request. Anonymous viewers
// have Authenticated false and an empty ID.
type Viewer struct {
	Authenticated bool
	ID            string
}

// Anonymous is the viewer used for unauthenticated requests.
var Anonymous = Viewer{}

// Authenticated builds a viewer for the given user id.
func Authenticated(userID string) Viewer {
	return Viewer{Authenticated: true, ID: userID}
}

// Tier is the effective visibility tier of a record, derived from its owner
// and is_public fields.
type Tier int

const (
	// TierGlobal marks unowned content, visible to everyone.
	TierGlobal Tier = iota
	// TierUserPublic marks owned content shared publicly, attributed to its owner.
	TierUserPublic
	// TierPrivate marks owned content visible only to the owner.
	TierPrivate
)

// TierOf derives the visibility tier from ownership fields.
func TierOf(ownerID *string, isPublic bool) Tier {
	switch {
	case ownerID == nil:
		return TierGlobal
	case isPublic:
		return TierUserPublic
	default:
		return TierPrivate
	}
}

// IsVisibleTo reports whether a record with the given ownership fields is
// visible to the viewer. Global and user-public records are visible to
// everyone; private records only to their owner.
func IsVisibleTo(ownerID *string, isPublic bool, v Viewer) bool {
	switch TierOf(ownerID, isPublic) {
	case TierGlobal, TierUserPublic:
		return true
	default:
		return v.Authenticated && ownerID != nil && *ownerID == v.ID
	}
}

// Scope narrows a query to the rows visible to the viewer. The predicate must
// stay consistent with IsVisibleTo for every record.
func Scope(query *gorm.DB, v Viewer) *gorm.DB {
	if v.Authenticated {
		return query.Where("owner_user_id IS NULL OR is_public = ? OR owner_user_id = ?", true, v.ID)
	}
	return query.Where("owner_user_id IS NULL OR is_public = ?", true)
}

// OwnerMatches reports whether the viewer owns a record with the given owner
// field. Unowned (global) records match no viewer.
func OwnerMatches(ownerID *string, v Viewer) bool {
	return v.Authenticated && ownerID != nil && *ownerID == v.ID
}
