package port

import "github.com/Wyydra/callrelay/internal/core/domain"

// UserDirectory is the account store behind login and role checks.
type UserDirectory interface {
	Authenticate(username, password string) (domain.User, error)
	Lookup(id domain.UserID) (domain.User, bool)
	ListByRole(role domain.Role) []domain.User
	List() []domain.User
}
