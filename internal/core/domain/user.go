package domain

type Role string

const (
	RoleTechnician Role = "Technician"
	RoleExpert     Role = "Expert"
)

func (r Role) Valid() bool {
	return r == RoleTechnician || r == RoleExpert
}

// CanCreateCalls reports whether the role may open pending call sessions.
func (r Role) CanCreateCalls() bool {
	return r == RoleTechnician
}

type User struct {
	ID   UserID
	Role Role
}

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)
