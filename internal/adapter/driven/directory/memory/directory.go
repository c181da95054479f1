package memory

import (
	"crypto/subtle"

	"github.com/Wyydra/callrelay/internal/core/domain"
)

// Account is a directory entry as loaded from configuration.
type Account struct {
	Username string
	Password string
	Role     domain.Role
}

// DefaultAccounts is the seed used when no users are configured.
var DefaultAccounts = []Account{
	{Username: "user1", Password: "P", Role: domain.RoleTechnician},
	{Username: "user2", Password: "P", Role: domain.RoleExpert},
	{Username: "user3", Password: "p3", Role: domain.RoleExpert},
}

// Directory is a read-only, in-memory port.UserDirectory. It is never
// written after construction, so it is safe to share between goroutines.
type Directory struct {
	accounts map[domain.UserID]Account
	order    []domain.UserID
}

func NewDirectory(accounts []Account) *Directory {
	d := &Directory{
		accounts: make(map[domain.UserID]Account, len(accounts)),
	}
	for _, a := range accounts {
		id := domain.UserID(a.Username)
		if _, dup := d.accounts[id]; !dup {
			d.order = append(d.order, id)
		}
		d.accounts[id] = a
	}
	return d
}

func (d *Directory) Authenticate(username, password string) (domain.User, error) {
	a, ok := d.accounts[domain.UserID(username)]
	if !ok || subtle.ConstantTimeCompare([]byte(a.Password), []byte(password)) != 1 {
		return domain.User{}, domain.NewError(domain.ErrUnauthorized, "Invalid username or password")
	}
	return toUser(a), nil
}

func (d *Directory) Lookup(id domain.UserID) (domain.User, bool) {
	a, ok := d.accounts[id]
	if !ok {
		return domain.User{}, false
	}
	return toUser(a), true
}

func (d *Directory) ListByRole(role domain.Role) []domain.User {
	var out []domain.User
	for _, id := range d.order {
		if a := d.accounts[id]; a.Role == role {
			out = append(out, toUser(a))
		}
	}
	return out
}

// List returns every account in configuration order.
func (d *Directory) List() []domain.User {
	out := make([]domain.User, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, toUser(d.accounts[id]))
	}
	return out
}

func toUser(a Account) domain.User {
	return domain.User{ID: domain.UserID(a.Username), Role: a.Role}
}
