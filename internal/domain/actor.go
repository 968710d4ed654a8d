package domain

// Actor is the authenticated identity asserted by the auth
// collaborator. The engine only ever reads its id and role.
type Actor struct {
	ID   string
	Role Role
}

// Admin reports whether the actor carries the admin role.
func (a Actor) Admin() bool { return a.Role == RoleAdmin }
