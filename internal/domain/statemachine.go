package domain

// Role of an authenticated actor, as asserted by the auth collaborator.
type Role string

const (
	RoleClient Role = "client"
	RoleMaster Role = "master"
	RoleAdmin  Role = "admin"
	// RoleSystem is used for transitions driven by the engine itself
	// (first proposal arriving, last proposal rejected, exchange
	// settlement). It never comes from a request.
	RoleSystem Role = "system"
)

// allowedTransitions is the table-driven permission check: for each
// current status, the set of reachable statuses and the roles allowed
// to drive each edge. Ownership (is the actor the order's client, the
// assigned master) is checked by the engine on top of this table.
var allowedTransitions = map[OrderStatus]map[OrderStatus][]Role{
	StatusOpen: {
		StatusActiveSearch: {RoleClient, RoleAdmin},
		StatusProposed:     {RoleSystem},
		StatusCancelled:    {RoleClient, RoleMaster, RoleAdmin},
		StatusDeleted:      {RoleClient, RoleAdmin},
	},
	StatusActiveSearch: {
		StatusOpen:      {RoleClient, RoleAdmin},
		StatusProposed:  {RoleSystem},
		StatusCancelled: {RoleClient, RoleMaster, RoleAdmin},
		StatusDeleted:   {RoleClient, RoleAdmin},
	},
	StatusProposed: {
		StatusOpen:      {RoleSystem},
		StatusAccepted:  {RoleClient, RoleAdmin},
		StatusCancelled: {RoleClient, RoleMaster, RoleAdmin},
		StatusDeleted:   {RoleClient, RoleAdmin},
	},
	StatusAccepted: {
		StatusInProgress: {RoleMaster, RoleAdmin},
		StatusCancelled:  {RoleClient, RoleAdmin},
		StatusDeleted:    {RoleClient, RoleAdmin},
	},
	StatusInProgress: {
		StatusCompleted: {RoleClient, RoleAdmin},
		StatusCancelled: {RoleClient, RoleAdmin},
		StatusDeleted:   {RoleClient, RoleAdmin},
	},
	StatusDeleted: {
		StatusOpen: {RoleClient, RoleAdmin},
	},
	// completed, cancelled and exchanged are terminal
}

// CanTransition validates one edge of the order state machine.
// Returns ErrInvalidTransition when the edge does not exist and
// ErrForbiddenTransition when it exists but the role may not drive it.
func CanTransition(from, to OrderStatus, role Role) error {
	edges, ok := allowedTransitions[from]
	if !ok {
		return ErrInvalidTransition
	}
	roles, ok := edges[to]
	if !ok {
		return ErrInvalidTransition
	}
	for _, r := range roles {
		if r == role {
			return nil
		}
	}
	return ErrForbiddenTransition
}

// Transition applies one validated edge to the order, keeping the
// agreed-price invariant: agreed_price is set iff the order is in
// accepted, in_progress or completed.
func (o *Order) Transition(to OrderStatus, role Role) error {
	if err := CanTransition(o.Status, to, role); err != nil {
		return err
	}
	o.Status = to
	switch to {
	case StatusOpen:
		o.AgreedPrice = nil
		o.MasterID = ""
		o.DeletedAt = nil
	case StatusCancelled:
		o.AgreedPrice = nil
	}
	return nil
}
