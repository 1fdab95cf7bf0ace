// Package authz contains the pure role-hierarchy predicates that gate the
// administrative surface. No I/O, no session state: every decision is a
// function of the two role values involved.
package authz

// Role is the closed set of operator roles. Any other value is rejected at
// the boundary and every predicate in this package fails closed on it.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleSuperAdmin      Role = "superadmin"
	RoleSuperSuperAdmin Role = "super_super_admin"
)

// rank maps each known role to its position in the strict total order
// admin < superadmin < super_super_admin. Unknown roles have no rank.
var rank = map[Role]int{
	RoleAdmin:           1,
	RoleSuperAdmin:      2,
	RoleSuperSuperAdmin: 3,
}

// ParseRole validates a raw role string against the closed set.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := rank[r]
	if !ok {
		return "", false
	}
	return r, true
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	_, ok := rank[r]
	return ok
}

func (r Role) String() string { return string(r) }

// CanManageRole reports whether an actor may manage (edit, deactivate, assign
// work to) a target operator. Management requires a strictly higher tier,
// except that a super_super_admin may also manage its own tier.
func CanManageRole(actor, target Role) bool {
	ar, ok := rank[actor]
	if !ok {
		return false
	}
	tr, ok := rank[target]
	if !ok {
		return false
	}
	if actor == RoleSuperSuperAdmin {
		return true
	}
	return ar > tr
}

// CanCreateRole reports whether an actor may create an operator account with
// the given role. Same ordering rule as CanManageRole: only strictly lower
// roles, except super_super_admin which may create any role including its own.
func CanCreateRole(actor, toCreate Role) bool {
	ar, ok := rank[actor]
	if !ok {
		return false
	}
	cr, ok := rank[toCreate]
	if !ok {
		return false
	}
	if actor == RoleSuperSuperAdmin {
		return true
	}
	return ar > cr
}

// CanViewRole reports whether an actor may view operators of the target role.
// Unlike management, viewing is inclusive of the actor's own tier.
func CanViewRole(actor, target Role) bool {
	ar, ok := rank[actor]
	if !ok {
		return false
	}
	tr, ok := rank[target]
	if !ok {
		return false
	}
	return ar >= tr
}

// CanAccessSuperSuperAdminFeatures reports whether the role may use the
// top-tier administrative features.
func CanAccessSuperSuperAdminFeatures(role Role) bool {
	return role == RoleSuperSuperAdmin
}
