package domain

import "errors"

// Caller is the already-authenticated identity on whose behalf an operation runs.
type Caller struct {
	ID   string
	Role Role
}

// AnonymousCaller is used when authentication is disabled.
var AnonymousCaller = Caller{ID: "anonymous", Role: RoleOperator}

// Role represents a caller's access level
type Role string

const (
	// RoleAdmin has full access to all operations
	RoleAdmin Role = "admin"

	// RoleOperator can move money and view history
	RoleOperator Role = "operator"

	// RoleViewer can only view history
	RoleViewer Role = "viewer"
)

var validRoles = map[Role]bool{
	RoleAdmin:    true,
	RoleOperator: true,
	RoleViewer:   true,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanMoveFunds checks if the role may deposit, withdraw or transfer
func (r Role) CanMoveFunds() bool {
	return r == RoleAdmin || r == RoleOperator
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
)
