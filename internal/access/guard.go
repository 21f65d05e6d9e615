// Package access decides who may run privileged operations.
package access

import "github.com/TobiSchelling/ChannelReports/internal/reporterr"

// Guard allows a fixed set of admin IDs.
type Guard struct {
	admins map[int64]struct{}
}

// NewGuard creates a guard for the given admin IDs. With no IDs nobody is
// allowed.
func NewGuard(adminIDs []int64) *Guard {
	g := &Guard{admins: make(map[int64]struct{}, len(adminIDs))}
	for _, id := range adminIDs {
		g.admins[id] = struct{}{}
	}
	return g
}

// IsAdmin reports whether userID is configured as an admin.
func (g *Guard) IsAdmin(userID int64) bool {
	_, ok := g.admins[userID]
	return ok
}

// Check returns a permission-denied error unless userID is an admin.
func (g *Guard) Check(userID int64) error {
	if g.IsAdmin(userID) {
		return nil
	}
	return reporterr.PermissionDenied(userID)
}
