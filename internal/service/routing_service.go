package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/helpdeskhq/helpdesk-service/internal/classifier"
	"github.com/helpdeskhq/helpdesk-service/internal/domain"
	"github.com/helpdeskhq/helpdesk-service/internal/events"
	"github.com/helpdeskhq/helpdesk-service/internal/observability"
	"github.com/helpdeskhq/helpdesk-service/internal/repository"
	apperrors "github.com/helpdeskhq/helpdesk-service/pkg/util/errorutil"
)

// Classifier is the slice of the classifier client the routing service
// depends on.
type Classifier interface {
	Classify(ctx context.Context, title, message string) (*classifier.Classification, error)
}

// RoutingService orchestrates ticket creation: classify, select the
// least-busy staff member in the classified department, and persist the
// ticket together with the load-counter increment. It also owns the
// claim path for tickets that routing left unassigned.
type RoutingService struct {
	tickets    repository.TicketRepository
	staff      repository.StaffRepository
	history    repository.TicketHistoryRepository
	classifier Classifier
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// RoutingDependencies bundles collaborators for the routing service.
type RoutingDependencies struct {
	TicketRepo  repository.TicketRepository
	StaffRepo   repository.StaffRepository
	HistoryRepo repository.TicketHistoryRepository
	Classifier  Classifier
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewRoutingService constructs the service.
func NewRoutingService(deps RoutingDependencies) *RoutingService {
	return &RoutingService{
		tickets:    deps.TicketRepo,
		staff:      deps.StaffRepo,
		history:    deps.HistoryRepo,
		classifier: deps.Classifier,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// RouteNewTicket creates a ticket for a requester. Classification
// failures never block creation: the ticket is persisted unclassified
// and unassigned, and shows up on the unassigned queue for manual
// claiming.
func (s *RoutingService) RouteNewTicket(ctx context.Context, ownerID, title, message string) (*domain.Ticket, error) {
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	if title == "" || message == "" {
		return nil, apperrors.NewValidationError("title and message required", nil)
	}

	ticket := &domain.Ticket{
		ExternalKey: generateTicketKey(),
		RequesterID: ownerID,
		Title:       title,
		Message:     message,
		Status:      domain.TicketStatusToDo,
	}

	var assignee *domain.StaffMember
	classification, err := s.classifier.Classify(ctx, title, message)
	switch {
	case errors.Is(err, classifier.ErrUnavailable):
		s.logger.Warn("classification unavailable, creating unclassified ticket",
			zap.String("requester_id", ownerID))
		s.metrics.RecordRoutingOutcome("none", "unclassified")
	case err != nil:
		// The classifier contract only surfaces ErrUnavailable; treat
		// anything else the same way.
		s.logger.Warn("unexpected classifier error", zap.Error(err))
		s.metrics.RecordRoutingOutcome("none", "unclassified")
	default:
		dept := classification.Department
		priority := classification.Priority
		minutes := classification.EstimatedMinutes
		ticket.Department = &dept
		ticket.Priority = &priority
		ticket.EstimatedMinutes = &minutes

		pool, err := s.staff.ListByDepartment(ctx, dept)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		assignee = SelectAssignee(dept, pool)
		if assignee != nil {
			ticket.AssigneeID = &assignee.ID
			ticket.Status = domain.TicketStatusInProgress
			s.metrics.RecordRoutingOutcome(string(dept), "assigned")
		} else {
			s.metrics.RecordRoutingOutcome(string(dept), "unassigned")
		}
	}

	// Insert plus the conditional counter increment happen in one
	// transaction inside the repository: concurrent routings to the
	// same staff member each land their own increment.
	if err := s.tickets.CreateRouted(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.recordCreation(ctx, ticket)
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    userActor(ownerID),
		Payload: events.TicketCreatedPayload{
			Title:      ticket.Title,
			Department: ticket.Department,
			Priority:   ticket.Priority,
			Assigned:   ticket.Assigned(),
		},
	})
	if assignee != nil {
		s.recordAssigneeChange(ctx, domain.ActorTypeSystem, nil, ticket.ID, nil, ticket.AssigneeID)
		s.publish(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			Actor:    events.Actor{Type: domain.SubjectTypeUser, UserID: &ownerID},
			Payload: events.TicketAssignedPayload{
				AssigneeStaffID: assignee.ID,
				Department:      assignee.Department,
				AssignedCount:   assignee.AssignedCount + 1,
			},
		})
	}
	return ticket, nil
}

// ClaimTicket atomically self-assigns an unassigned ticket. Exactly one
// of two racing claims succeeds; the loser gets a CONFLICT. Claiming is
// deliberately cross-department and does not touch the load counter:
// the counter only tracks automatic routing.
func (s *RoutingService) ClaimTicket(ctx context.Context, staff *domain.StaffMember, ticketID string) (*domain.Ticket, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}

	ticket, err := s.tickets.Claim(ctx, ticketID, staff.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyClaimed):
			return nil, apperrors.NewConflict("ticket already claimed", map[string]any{"ticket_id": ticketID})
		case errors.Is(err, pgx.ErrNoRows):
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		default:
			return nil, apperrors.MapError(err)
		}
	}

	s.recordAssigneeChange(ctx, domain.ActorTypeStaff, &staff.ID, ticket.ID, nil, ticket.AssigneeID)
	s.publish(ctx, events.Event{
		Type:     events.EventTicketClaimed,
		TicketID: ticket.ID,
		Actor:    staffActor(staff.ID),
		Payload:  events.TicketClaimedPayload{AssigneeStaffID: staff.ID},
	})
	return ticket, nil
}

func (s *RoutingService) recordCreation(ctx context.Context, ticket *domain.Ticket) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:      ticket.ID,
		ChangedByType: domain.ActorTypeUser,
		ChangedByID:   &ticket.RequesterID,
		ChangeType:    domain.ChangeTypeCreated,
		NewValue: map[string]any{
			"status":     ticket.Status,
			"department": ticket.Department,
			"priority":   ticket.Priority,
		},
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record ticket creation history", zap.Error(err))
	}
}

func (s *RoutingService) recordAssigneeChange(ctx context.Context, actorType domain.ActorType, actorID *string, ticketID string, oldAssignee, newAssignee *string) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByType: actorType,
		ChangedByID:   actorID,
		ChangeType:    domain.ChangeTypeAssignee,
		OldValue:      map[string]any{"assignee_staff_id": oldAssignee},
		NewValue:      map[string]any{"assignee_staff_id": newAssignee},
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record assignee history", zap.Error(err))
	}
}

func (s *RoutingService) publish(ctx context.Context, event events.Event) {
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

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func userActor(userID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeUser, UserID: &userID}
}

func staffActor(staffID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeStaff, StaffID: &staffID}
}
