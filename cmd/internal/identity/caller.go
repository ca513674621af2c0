// Package identity turns a bearer token issued by the identity provider into a Caller.
// It never issues credentials for real users; IssueDevToken exists for local setups
// that run on a shared signing key.
package identity

import (
	"slices"

	"github.com/labstack/echo/v4"

	"medappointments/cmd/internal/domain/entity"
)

const callerKey = "caller"

// Caller is the authenticated identity attached to a request.
type Caller struct {
	ID    string
	Email string
	Roles []entity.Role
}

func (c *Caller) HasRole(role entity.Role) bool {
	return c != nil && slices.Contains(c.Roles, role)
}

func (c *Caller) IsAdmin() bool {
	return c.HasRole(entity.RoleAdmin)
}

func NewCaller(id string, roles ...entity.Role) *Caller {
	return &Caller{ID: id, Roles: roles}
}

func FromContext(c echo.Context) (*Caller, bool) {
	caller, ok := c.Get(callerKey).(*Caller)
	return caller, ok && caller != nil
}

func SetCaller(c echo.Context, caller *Caller) {
	c.Set(callerKey, caller)
}
