package domain

import "time"

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleAgent StaffRole = "AGENT"
	StaffRoleAdmin StaffRole = "ADMIN"
)

// StaffMember models a support agent. Department is fixed per staff
// member and partitions the routing pool. AssignedCount is the load
// counter consulted by automatic routing; it is only ever mutated with
// atomic in-place increments on the storage side.
type StaffMember struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	Role          StaffRole
	Department    Department
	AssignedCount int
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
