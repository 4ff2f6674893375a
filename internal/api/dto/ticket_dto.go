package dto

import (
	"time"

	"github.com/helpdeskhq/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload. Classification fields are never accepted
// from the client; they are filled by the routing pipeline.
type CreateTicketRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// UpdateStatusRequest payload for staff status changes.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// TicketResponse is the canonical wire shape for a ticket.
type TicketResponse struct {
	ID               string                 `json:"id"`
	ExternalKey      string                 `json:"external_key"`
	RequesterID      string                 `json:"requester_id"`
	AssigneeID       *string                `json:"assignee_id"`
	Title            string                 `json:"title"`
	Message          string                 `json:"message"`
	Status           domain.TicketStatus    `json:"status"`
	Priority         *domain.TicketPriority `json:"priority"`
	Department       *domain.Department     `json:"department"`
	EstimatedMinutes *int                   `json:"estimated_minutes"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// TicketHistoryResponse is one audit entry for a ticket.
type TicketHistoryResponse struct {
	ID         string                  `json:"id"`
	ChangeType domain.TicketChangeType `json:"change_type"`
	ActorType  domain.ActorType        `json:"actor_type"`
	ActorID    *string                 `json:"actor_id"`
	OldValue   map[string]any          `json:"old_value,omitempty"`
	NewValue   map[string]any          `json:"new_value,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
}

// TicketDetailResponse is a ticket with its audit trail.
type TicketDetailResponse struct {
	TicketResponse
	History []TicketHistoryResponse `json:"history"`
}

// TicketDetailFromDomain maps a ticket plus its history.
func TicketDetailFromDomain(t *domain.Ticket, history []domain.TicketHistory) TicketDetailResponse {
	entries := make([]TicketHistoryResponse, 0, len(history))
	for _, h := range history {
		entries = append(entries, TicketHistoryResponse{
			ID:         h.ID,
			ChangeType: h.ChangeType,
			ActorType:  h.ChangedByType,
			ActorID:    h.ChangedByID,
			OldValue:   h.OldValue,
			NewValue:   h.NewValue,
			CreatedAt:  h.CreatedAt,
		})
	}
	return TicketDetailResponse{
		TicketResponse: TicketFromDomain(t),
		History:        entries,
	}
}

// TicketFromDomain maps a domain ticket onto the response shape.
func TicketFromDomain(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:               t.ID,
		ExternalKey:      t.ExternalKey,
		RequesterID:      t.RequesterID,
		AssigneeID:       t.AssigneeID,
		Title:            t.Title,
		Message:          t.Message,
		Status:           t.Status,
		Priority:         t.Priority,
		Department:       t.Department,
		EstimatedMinutes: t.EstimatedMinutes,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

// TicketsFromDomain maps a slice of tickets.
func TicketsFromDomain(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, TicketFromDomain(&tickets[i]))
	}
	return out
}
