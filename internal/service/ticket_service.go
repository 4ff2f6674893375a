package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/helpdeskhq/helpdesk-service/internal/config"
	"github.com/helpdeskhq/helpdesk-service/internal/domain"
	"github.com/helpdeskhq/helpdesk-service/internal/events"
	"github.com/helpdeskhq/helpdesk-service/internal/repository"
	apperrors "github.com/helpdeskhq/helpdesk-service/pkg/util/errorutil"
)

// TicketService covers the read and lifecycle operations around
// existing tickets: owner listings, staff listings, the unassigned
// queue, status transitions and owner deletion.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	routing    config.RoutingConfig
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Routing     config.RoutingConfig
	Logger      *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		routing:    deps.Routing,
		logger:     deps.Logger,
	}
}

// ListOwnerTickets returns the requester's tickets, newest first.
func (s *TicketService) ListOwnerTickets(ctx context.Context, ownerID string, limit, offset int) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetOwnerTicket fetches one ticket scoped to its owner. A ticket that
// exists but belongs to someone else reads as not found.
func (s *TicketService) GetOwnerTicket(ctx context.Context, ownerID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByIDForOwner(ctx, ticketID, ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// DeleteOwnerTicket removes a ticket on behalf of its owner. Owners may
// delete regardless of status; non-owners get FORBIDDEN.
func (s *TicketService) DeleteOwnerTicket(ctx context.Context, ownerID, ticketID string) error {
	if err := s.tickets.Delete(ctx, ticketID, ownerID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotOwner):
			return apperrors.NewForbidden("only the ticket owner may delete it")
		case errors.Is(err, pgx.ErrNoRows):
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		default:
			return apperrors.MapError(err)
		}
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticketID,
		Actor:    userActor(ownerID),
		Payload:  events.TicketDeletedPayload{RequesterID: ownerID},
	})
	return nil
}

// ListAssignedTickets returns tickets assigned to the staff member.
func (s *TicketService) ListAssignedTickets(ctx context.Context, staffID string, limit, offset int) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByAssignee(ctx, staffID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetAssignedTicket fetches one ticket scoped to its assignee.
func (s *TicketService) GetAssignedTicket(ctx context.Context, staffID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByIDForAssignee(ctx, ticketID, staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// TicketHistory returns the audit trail for a ticket. Callers are
// expected to have resolved the ticket through a scoped getter first.
func (s *TicketService) TicketHistory(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// ListUnassignedTickets returns the department-agnostic claim queue.
func (s *TicketService) ListUnassignedTickets(ctx context.Context, limit, offset int) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListUnassigned(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetUnassignedTicket fetches one unassigned ticket for claim preview.
func (s *TicketService) GetUnassignedTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetUnassignedByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// UpdateStatus changes a ticket's status on behalf of its assignee. The
// assignee predicate lives inside the storage update, so a non-assignee
// can never slip a write in. With forward-only transitions enabled the
// status may only advance to_do -> in_progress -> completed.
func (s *TicketService) UpdateStatus(ctx context.Context, staff *domain.StaffMember, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	if !domain.ValidStatus(newStatus) {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": newStatus})
	}

	var oldStatus domain.TicketStatus
	if s.routing.EnforceForwardTransitions {
		current, err := s.tickets.GetByIDForAssignee(ctx, ticketID, staff.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, s.statusUpdateDenied(ctx, ticketID)
			}
			return nil, apperrors.MapError(err)
		}
		if !forwardTransition(current.Status, newStatus) {
			return nil, apperrors.NewConflict("status may only move forward", map[string]any{
				"from": current.Status,
				"to":   newStatus,
			})
		}
		oldStatus = current.Status
	}

	ticket, err := s.tickets.UpdateStatus(ctx, ticketID, newStatus, staff.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotAssignee):
			return nil, apperrors.NewForbidden("ticket is not assigned to you")
		case errors.Is(err, pgx.ErrNoRows):
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		default:
			return nil, apperrors.MapError(err)
		}
	}

	s.recordStatusChange(ctx, staff.ID, ticket.ID, oldStatus, newStatus)
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    staffActor(staff.ID),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return ticket, nil
}

// statusUpdateDenied distinguishes a missing ticket from one assigned
// to a different staff member when the ownership-scoped read misses.
func (s *TicketService) statusUpdateDenied(ctx context.Context, ticketID string) error {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	return apperrors.NewForbidden("ticket is not assigned to you")
}

func forwardTransition(current, next domain.TicketStatus) bool {
	order := map[domain.TicketStatus]int{
		domain.TicketStatusToDo:       0,
		domain.TicketStatusInProgress: 1,
		domain.TicketStatusCompleted:  2,
	}
	return order[next] > order[current]
}

func (s *TicketService) recordStatusChange(ctx context.Context, staffID, ticketID string, oldStatus, newStatus domain.TicketStatus) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByType: domain.ActorTypeStaff,
		ChangedByID:   &staffID,
		ChangeType:    domain.ChangeTypeStatus,
		NewValue:      map[string]any{"status": newStatus},
	}
	if oldStatus != "" {
		entry.OldValue = map[string]any{"status": oldStatus}
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record status history", zap.Error(err))
	}
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
