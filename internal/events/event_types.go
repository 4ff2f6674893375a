package events

import (
	"time"

	"github.com/helpdeskhq/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketClaimed       EventType = "ticket_claimed"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketDeleted       EventType = "ticket_deleted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	UserID  *string            `json:"user_id,omitempty"`
	StaffID *string            `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title      string                 `json:"title"`
	Department *domain.Department     `json:"department,omitempty"`
	Priority   *domain.TicketPriority `json:"priority,omitempty"`
	Assigned   bool                   `json:"assigned"`
}

// TicketAssignedPayload payload for automatic routing assignments.
type TicketAssignedPayload struct {
	AssigneeStaffID string            `json:"assignee_staff_id"`
	Department      domain.Department `json:"department"`
	AssignedCount   int               `json:"assigned_count"`
}

// TicketClaimedPayload payload for manual claims.
type TicketClaimedPayload struct {
	AssigneeStaffID string `json:"assignee_staff_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	RequesterID string `json:"requester_id"`
}
