package auth

import (
	"errors"
	"regexp"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// Role represents an authorisation tier at the HMI.
type Role string

const (
	// RoleOperator runs the machine: views, alarms, jog and start/stop controls.
	RoleOperator Role = "operator"

	// RoleEngineer can additionally change machine parameters.
	RoleEngineer Role = "engineer"

	// RoleAdmin has everything, including the audit trail.
	RoleAdmin Role = "admin"
)

// ValidRoles lists the roles an operator account may hold.
var ValidRoles = []Role{RoleOperator, RoleEngineer, RoleAdmin}

// IsValidRole returns true if r is one of ValidRoles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Operator is a configured login account.
type Operator struct {
	Username     string `json:"username"`
	Role         Role   `json:"role"`
	PasswordHash string `json:"-"` // never serialised
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOperatorNotFound   = errors.New("operator not found")
	ErrInvalidAccount     = errors.New("invalid operator account")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrInvalidHash        = errors.New("invalid password hash")
)
