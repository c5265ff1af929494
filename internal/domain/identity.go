package domain

import (
	"errors"
	"strings"
)

type Role uint8

const (
	RoleUser Role = iota
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	default:
		return "user"
	}
}

func ToRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	}
	return RoleUser, errors.New("invalid role")
}

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Role   Role
}

func (i Identity) IsAuthenticated() bool {
	return strings.TrimSpace(i.UserID) != ""
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
