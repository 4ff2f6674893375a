package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusToDo       TicketStatus = "to_do"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusCompleted  TicketStatus = "completed"
)

// ValidStatus reports whether the value is a known ticket status.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusToDo, TicketStatusInProgress, TicketStatusCompleted:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels produced by the classifier.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// ValidPriority reports whether the value is a known priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// Department is the fixed routing taxonomy shared by the classifier and
// the staff roster.
type Department string

const (
	DepartmentAccount  Department = "account"
	DepartmentHardware Department = "hardware"
	DepartmentNetwork  Department = "network"
	DepartmentSoftware Department = "software"
	DepartmentOther    Department = "other"
)

// ValidDepartment reports whether the value is a known department.
func ValidDepartment(d Department) bool {
	switch d {
	case DepartmentAccount, DepartmentHardware, DepartmentNetwork, DepartmentSoftware, DepartmentOther:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests. Department, Priority and
// EstimatedMinutes stay nil until classification succeeds; AssigneeID
// stays nil until routing or a claim assigns the ticket.
type Ticket struct {
	ID               string
	ExternalKey      string
	RequesterID      string
	AssigneeID       *string
	Title            string
	Message          string
	Status           TicketStatus
	Priority         *TicketPriority
	Department       *Department
	EstimatedMinutes *int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Assigned reports whether the ticket has an assignee.
func (t *Ticket) Assigned() bool {
	return t.AssigneeID != nil
}
