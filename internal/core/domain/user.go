package domain

import "time"

// Well-known approver roles. Policies may name additional roles; these are the
// ones seeded by default.
const (
	RoleEmployee = "Employee"
	RoleManager  = "Manager"
	RoleDirector = "Director"
	RoleFinance  = "Finance"
)

// User represents an employee or approver in the directory. The claim workflow
// only cares about the role string; anything else is directory metadata.
type User struct {
	UserID         string `json:"userID"` // Primary Key (e.g., UUID)
	OrganizationID string `json:"organizationID"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	PasswordHash   string `json:"-"`
	Role           string `json:"role"` // Matches policy approver roles
	AuditFields
	DeletedAt *time.Time `json:"deletedAt,omitempty" db:"deleted_at"` // Used for soft delete
}
