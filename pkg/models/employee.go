package models

import "time"

// Role is an employee's permission level. Roles are ordered: admin > editor > viewer.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
}

// Satisfies reports whether r grants at least the access of required.
func (r Role) Satisfies(required Role) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	return rank >= roleRank[required]
}

// EmployeeStatus is the approval state of a directory entry
type EmployeeStatus string

const (
	EmployeeStatusPending  EmployeeStatus = "pending"
	EmployeeStatusApproved EmployeeStatus = "approved"
	EmployeeStatusRejected EmployeeStatus = "rejected"
	EmployeeStatusDisabled EmployeeStatus = "disabled"
)

// Employee is an entry in the employee directory. Email is the principal identity.
type Employee struct {
	ID          string         `json:"id" db:"id"`
	Email       string         `json:"email" db:"email"`
	Name        string         `json:"name" db:"name"`
	Role        Role           `json:"role" db:"role"`
	Status      EmployeeStatus `json:"status" db:"status"`
	RequestedAt time.Time      `json:"requested_at" db:"requested_at"`
	ReviewedAt  *time.Time     `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ReviewedBy  *string        `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewNote  *string        `json:"review_note,omitempty" db:"review_note"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// RegisterEmployeeRequest is the self registration body. Email comes from the principal.
type RegisterEmployeeRequest struct {
	Name          string `json:"name" validate:"required,max=255"`
	RequestedRole Role   `json:"requested_role" validate:"omitempty,oneof=admin editor viewer"`
}

// ReviewEmployeeRequest approves or rejects a pending employee
type ReviewEmployeeRequest struct {
	Role *Role   `json:"role,omitempty" validate:"omitempty,oneof=admin editor viewer"`
	Note *string `json:"note,omitempty" validate:"omitempty,max=1000"`
}

// UpdateRoleRequest changes an employee's role
type UpdateRoleRequest struct {
	Role Role `json:"role" validate:"required,oneof=admin editor viewer"`
}

// EmployeeListResponse is the response for listing employees
type EmployeeListResponse struct {
	Items      []Employee `json:"items"`
	TotalCount int        `json:"total_count"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
}
