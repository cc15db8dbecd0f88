package authz

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles. Routes declare allow-lists as
// RoleSet values; handlers never compare raw strings.
type Role string

const (
	// RoleRoot is the platform-wide role exempt from tenant scoping.
	RoleRoot Role = "root"
	// RoleAdmin administers a single company.
	RoleAdmin Role = "admin"
	// RoleManager manages HR data within a single company.
	RoleManager Role = "manager"
	// RoleEmployee is the most restrictive tier, limited to its own records.
	RoleEmployee Role = "employee"
)

// ParseRole validates a stored or transmitted role value.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.TrimSpace(strings.ToLower(raw)))
	switch role {
	case RoleRoot, RoleAdmin, RoleManager, RoleEmployee:
		return role, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// RoleSet is a per-route allow-list.
type RoleSet map[Role]struct{}

// Roles builds a RoleSet from its members.
func Roles(members ...Role) RoleSet {
	set := make(RoleSet, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	return set
}

// Contains reports membership.
func (s RoleSet) Contains(r Role) bool {
	_, ok := s[r]
	return ok
}

// AllRoles is the allow-list for routes open to any authenticated account.
func AllRoles() RoleSet {
	return Roles(RoleRoot, RoleAdmin, RoleManager, RoleEmployee)
}
