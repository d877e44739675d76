package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRole is returned when a stored or submitted role is neither admin nor customer.
var ErrUnknownRole = errors.New("unknown role")

// Role is the closed set of user roles. The zero value is not a valid role;
// roles only come from ParseRole or the RoleAdmin/RoleCustomer values.
type Role struct {
	name string
}

var (
	RoleAdmin    = Role{name: "admin"}
	RoleCustomer = Role{name: "customer"}
)

// ParseRole converts the stored representation into a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case RoleAdmin.name:
		return RoleAdmin, nil
	case RoleCustomer.name:
		return RoleCustomer, nil
	default:
		return Role{}, fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

func (r Role) String() string { return r.name }

// IsZero reports whether r was never assigned a role.
func (r Role) IsZero() bool { return r.name == "" }

func (r Role) MarshalText() ([]byte, error) {
	if r.IsZero() {
		return nil, ErrUnknownRole
	}
	return []byte(r.name), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MatchRole dispatches on r with one branch per role. Adding a role adds a
// parameter here, so every caller has to decide what the new role does.
// It panics on the zero Role.
func MatchRole[T any](r Role, admin func() T, customer func() T) T {
	switch r {
	case RoleAdmin:
		return admin()
	case RoleCustomer:
		return customer()
	default:
		panic(fmt.Sprintf("models: match on invalid role %q", r.name))
	}
}
