package service

import (
	"sort"

	"github.com/villarosa/admin-api/internal/domain"
)

// rolePermissions are the baseline grants implied by a role; the
// record's explicit permission list is merged on top.
var rolePermissions = map[domain.AdminRole][]string{
	domain.RoleAdmin: {
		"users:read", "users:write", "users:delete",
		"properties:read", "properties:write",
		"bookings:write",
		"contact:read",
		"images:cleanup",
	},
	domain.RoleStaff: {
		"properties:read",
		"contact:read",
	},
}

// EffectivePermissions merges role-implied grants with the record's
// explicit list, deduplicated and sorted for stable output.
func EffectivePermissions(rec *domain.AdminRecord) []string {
	if rec == nil {
		return nil
	}
	set := make(map[string]struct{})
	for _, p := range rolePermissions[rec.Role] {
		set[p] = struct{}{}
	}
	for _, p := range rec.Permissions {
		if p != "" {
			set[p] = struct{}{}
		}
	}
	perms := make([]string, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return perms
}
