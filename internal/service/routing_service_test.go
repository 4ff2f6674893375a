package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"

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

// memStore backs the repository fakes with a single lock so that the
// routed insert and counter bump stay atomic, mirroring the real
// transactional repository.
type memStore struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	staff   map[string]*domain.StaffMember
	history []domain.TicketHistory
}

func newMemStore() *memStore {
	return &memStore{
		tickets: make(map[string]*domain.Ticket),
		staff:   make(map[string]*domain.StaffMember),
	}
}

func (s *memStore) addStaff(member domain.StaffMember) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := member
	s.staff[member.ID] = &copied
}

func (s *memStore) staffByID(id string) domain.StaffMember {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.staff[id]
}

func (s *memStore) historyByType(changeType domain.TicketChangeType) []domain.TicketHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.TicketHistory
	for _, entry := range s.history {
		if entry.ChangeType == changeType {
			out = append(out, entry)
		}
	}
	return out
}

type memTicketRepo struct{ store *memStore }

func (r *memTicketRepo) CreateRouted(ctx context.Context, ticket *domain.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	ticket.ID = uuid.NewString()
	if ticket.AssigneeID != nil {
		member, ok := r.store.staff[*ticket.AssigneeID]
		if !ok {
			return pgx.ErrNoRows
		}
		member.AssignedCount++
	}
	copied := *ticket
	r.store.tickets[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket, ok := r.store.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *memTicketRepo) GetByIDForOwner(ctx context.Context, id, ownerID string) (*domain.Ticket, error) {
	ticket, err := r.GetByID(ctx, id)
	if err != nil || ticket.RequesterID != ownerID {
		return nil, pgx.ErrNoRows
	}
	return ticket, nil
}

func (r *memTicketRepo) GetByIDForAssignee(ctx context.Context, id, staffID string) (*domain.Ticket, error) {
	ticket, err := r.GetByID(ctx, id)
	if err != nil || ticket.AssigneeID == nil || *ticket.AssigneeID != staffID {
		return nil, pgx.ErrNoRows
	}
	return ticket, nil
}

func (r *memTicketRepo) GetUnassignedByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := r.GetByID(ctx, id)
	if err != nil || ticket.AssigneeID != nil {
		return nil, pgx.ErrNoRows
	}
	return ticket, nil
}

func (r *memTicketRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Ticket, error) {
	return r.list(func(t *domain.Ticket) bool { return t.RequesterID == ownerID })
}

func (r *memTicketRepo) ListByAssignee(ctx context.Context, staffID string, limit, offset int) ([]domain.Ticket, error) {
	return r.list(func(t *domain.Ticket) bool { return t.AssigneeID != nil && *t.AssigneeID == staffID })
}

func (r *memTicketRepo) ListUnassigned(ctx context.Context, limit, offset int) ([]domain.Ticket, error) {
	return r.list(func(t *domain.Ticket) bool { return t.AssigneeID == nil })
}

func (r *memTicketRepo) list(keep func(*domain.Ticket) bool) ([]domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.store.tickets {
		if keep(ticket) {
			out = append(out, *ticket)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTicketRepo) Claim(ctx context.Context, id, staffID string) (*domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket, ok := r.store.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if ticket.AssigneeID != nil {
		return nil, repository.ErrAlreadyClaimed
	}
	assignee := staffID
	ticket.AssigneeID = &assignee
	copied := *ticket
	return &copied, nil
}

func (r *memTicketRepo) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus, staffID string) (*domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket, ok := r.store.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if ticket.AssigneeID == nil || *ticket.AssigneeID != staffID {
		return nil, repository.ErrNotAssignee
	}
	ticket.Status = status
	copied := *ticket
	return &copied, nil
}

func (r *memTicketRepo) Delete(ctx context.Context, id, ownerID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket, ok := r.store.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if ticket.RequesterID != ownerID {
		return repository.ErrNotOwner
	}
	delete(r.store.tickets, id)
	return nil
}

type memStaffRepo struct{ store *memStore }

func (r *memStaffRepo) Create(ctx context.Context, member *domain.StaffMember) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	copied := *member
	r.store.staff[member.ID] = &copied
	return nil
}

func (r *memStaffRepo) Update(ctx context.Context, member *domain.StaffMember) error {
	return r.Create(ctx, member)
}

func (r *memStaffRepo) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	member, ok := r.store.staff[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *member
	return &copied, nil
}

func (r *memStaffRepo) GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, member := range r.store.staff {
		if member.Email == email {
			copied := *member
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memStaffRepo) ListByDepartment(ctx context.Context, dept domain.Department) ([]domain.StaffMember, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.StaffMember
	for _, member := range r.store.staff {
		if member.Department == dept && member.Active {
			out = append(out, *member)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memStaffRepo) List(ctx context.Context, limit, offset int) ([]domain.StaffMember, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.StaffMember
	for _, member := range r.store.staff {
		if member.Active {
			out = append(out, *member)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Department != out[j].Department {
			return out[i].Department < out[j].Department
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

type memHistoryRepo struct{ store *memStore }

func (r *memHistoryRepo) Create(ctx context.Context, entry *domain.TicketHistory) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	entry.ID = uuid.NewString()
	r.store.history = append(r.store.history, *entry)
	return nil
}

func (r *memHistoryRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.TicketHistory
	for _, entry := range r.store.history {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type stubClassifier func(ctx context.Context, title, message string) (*classifier.Classification, error)

func (f stubClassifier) Classify(ctx context.Context, title, message string) (*classifier.Classification, error) {
	return f(ctx, title, message)
}

func fixedClassifier(dept domain.Department, priority domain.TicketPriority, minutes int) stubClassifier {
	return func(ctx context.Context, title, message string) (*classifier.Classification, error) {
		return &classifier.Classification{Department: dept, Priority: priority, EstimatedMinutes: minutes}, nil
	}
}

func downClassifier() stubClassifier {
	return func(ctx context.Context, title, message string) (*classifier.Classification, error) {
		return nil, classifier.ErrUnavailable
	}
}

func newRoutingFixture(store *memStore, classify Classifier) *RoutingService {
	return NewRoutingService(RoutingDependencies{
		TicketRepo:  &memTicketRepo{store: store},
		StaffRepo:   &memStaffRepo{store: store},
		HistoryRepo: &memHistoryRepo{store: store},
		Classifier:  classify,
		Dispatcher:  events.NewInMemoryDispatcher(),
		Metrics:     observability.NewMetrics(),
		Logger:      zap.NewNop(),
	})
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	return domainErr.Code
}

func TestRouteNewTicketAssignsLeastLoaded(t *testing.T) {
	store := newMemStore()
	store.addStaff(staffMember("busy", domain.DepartmentHardware, 4, true))
	store.addStaff(staffMember("idle", domain.DepartmentHardware, 1, true))

	svc := newRoutingFixture(store, fixedClassifier(domain.DepartmentHardware, domain.TicketPriorityHigh, 45))

	ticket, err := svc.RouteNewTicket(context.Background(), "user-1", "Printer jam", "The office printer keeps jamming")
	if err != nil {
		t.Fatalf("RouteNewTicket: %v", err)
	}

	if ticket.AssigneeID == nil || *ticket.AssigneeID != "idle" {
		t.Fatalf("expected assignment to idle, got %v", ticket.AssigneeID)
	}
	if ticket.Status != domain.TicketStatusInProgress {
		t.Fatalf("expected in_progress after assignment, got %s", ticket.Status)
	}
	if ticket.Department == nil || *ticket.Department != domain.DepartmentHardware {
		t.Fatalf("expected hardware department, got %v", ticket.Department)
	}
	if ticket.Priority == nil || *ticket.Priority != domain.TicketPriorityHigh {
		t.Fatalf("expected high priority, got %v", ticket.Priority)
	}
	if ticket.EstimatedMinutes == nil || *ticket.EstimatedMinutes != 45 {
		t.Fatalf("expected 45 estimated minutes, got %v", ticket.EstimatedMinutes)
	}
	if got := store.staffByID("idle").AssignedCount; got != 2 {
		t.Fatalf("expected idle counter bumped to 2, got %d", got)
	}
	if got := store.staffByID("busy").AssignedCount; got != 4 {
		t.Fatalf("busy counter must be untouched, got %d", got)
	}
}

func TestRouteNewTicketClassifierDown(t *testing.T) {
	store := newMemStore()
	store.addStaff(staffMember("agent", domain.DepartmentHardware, 0, true))

	svc := newRoutingFixture(store, downClassifier())

	ticket, err := svc.RouteNewTicket(context.Background(), "user-1", "VPN broken", "Cannot connect since this morning")
	if err != nil {
		t.Fatalf("classifier outage must not fail creation: %v", err)
	}

	if ticket.Department != nil || ticket.Priority != nil || ticket.EstimatedMinutes != nil {
		t.Fatalf("expected unclassified ticket, got %+v", ticket)
	}
	if ticket.AssigneeID != nil {
		t.Fatalf("expected unassigned ticket, got assignee %v", ticket.AssigneeID)
	}
	if ticket.Status != domain.TicketStatusToDo {
		t.Fatalf("expected to_do, got %s", ticket.Status)
	}
	if got := store.staffByID("agent").AssignedCount; got != 0 {
		t.Fatalf("no counter may move without assignment, got %d", got)
	}
}

func TestRouteNewTicketNoEligibleStaff(t *testing.T) {
	store := newMemStore()
	store.addStaff(staffMember("inactive", domain.DepartmentNetwork, 0, false))

	svc := newRoutingFixture(store, fixedClassifier(domain.DepartmentNetwork, domain.TicketPriorityLow, 15))

	ticket, err := svc.RouteNewTicket(context.Background(), "user-1", "Slow wifi", "Office wifi crawls after lunch")
	if err != nil {
		t.Fatalf("RouteNewTicket: %v", err)
	}

	if ticket.AssigneeID != nil {
		t.Fatalf("expected no assignee, got %v", ticket.AssigneeID)
	}
	if ticket.Status != domain.TicketStatusToDo {
		t.Fatalf("expected to_do, got %s", ticket.Status)
	}
	if ticket.Department == nil || *ticket.Department != domain.DepartmentNetwork {
		t.Fatal("classification must be kept even without an assignee")
	}
}

func TestRouteNewTicketValidation(t *testing.T) {
	svc := newRoutingFixture(newMemStore(), downClassifier())

	_, err := svc.RouteNewTicket(context.Background(), "user-1", "   ", "body")
	if code := domainCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %s", code)
	}

	_, err = svc.RouteNewTicket(context.Background(), "user-1", "title", "")
	if code := domainCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %s", code)
	}
}

func TestRouteNewTicketConcurrentCounter(t *testing.T) {
	store := newMemStore()
	store.addStaff(staffMember("solo", domain.DepartmentSoftware, 0, true))

	svc := newRoutingFixture(store, fixedClassifier(domain.DepartmentSoftware, domain.TicketPriorityMedium, 30))

	const n = 25
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.RouteNewTicket(context.Background(), "user-"+strconv.Itoa(i), "Crash", "App crashes on save")
			errCh <- err
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Fatalf("concurrent routing failed: %v", err)
		}
	}
	if got := store.staffByID("solo").AssignedCount; got != n {
		t.Fatalf("expected counter %d after %d routings, got %d", n, n, got)
	}
}

func TestRouteNewTicketRecordsHistory(t *testing.T) {
	store := newMemStore()
	store.addStaff(staffMember("agent", domain.DepartmentAccount, 0, true))

	svc := newRoutingFixture(store, fixedClassifier(domain.DepartmentAccount, domain.TicketPriorityLow, 10))

	if _, err := svc.RouteNewTicket(context.Background(), "user-1", "Locked out", "Password expired"); err != nil {
		t.Fatalf("RouteNewTicket: %v", err)
	}

	if got := len(store.historyByType(domain.ChangeTypeCreated)); got != 1 {
		t.Fatalf("expected one CREATED entry, got %d", got)
	}
	if got := len(store.historyByType(domain.ChangeTypeAssignee)); got != 1 {
		t.Fatalf("expected one ASSIGNEE_CHANGE entry, got %d", got)
	}
}

func TestClaimTicketConcurrentSingleWinner(t *testing.T) {
	store := newMemStore()
	svc := newRoutingFixture(store, downClassifier())

	ticket, err := svc.RouteNewTicket(context.Background(), "user-1", "Mystery issue", "Something is off")
	if err != nil {
		t.Fatalf("RouteNewTicket: %v", err)
	}

	first := staffMember("staff-a", domain.DepartmentHardware, 0, true)
	second := staffMember("staff-b", domain.DepartmentNetwork, 0, true)
	store.addStaff(first)
	store.addStaff(second)

	type result struct {
		staffID string
		err     error
	}
	results := make(chan result, 2)
	var wg sync.WaitGroup
	for _, member := range []domain.StaffMember{first, second} {
		wg.Add(1)
		go func(m domain.StaffMember) {
			defer wg.Done()
			_, err := svc.ClaimTicket(context.Background(), &m, ticket.ID)
			results <- result{staffID: m.ID, err: err}
		}(member)
	}
	wg.Wait()
	close(results)

	wins, conflicts := 0, 0
	for res := range results {
		if res.err == nil {
			wins++
			continue
		}
		if code := domainCode(t, res.err); code != "CONFLICT" {
			t.Fatalf("loser must get CONFLICT, got %s", code)
		}
		conflicts++
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("expected exactly one winner and one conflict, got %d/%d", wins, conflicts)
	}
}

func TestClaimTicketCrossDepartmentAndCounter(t *testing.T) {
	store := newMemStore()
	svc := newRoutingFixture(store, downClassifier())

	ticket, err := svc.RouteNewTicket(context.Background(), "user-1", "Unclassified", "No classifier today")
	if err != nil {
		t.Fatalf("RouteNewTicket: %v", err)
	}

	claimer := staffMember("claimer", domain.DepartmentAccount, 3, true)
	store.addStaff(claimer)

	claimed, err := svc.ClaimTicket(context.Background(), &claimer, ticket.ID)
	if err != nil {
		t.Fatalf("ClaimTicket: %v", err)
	}
	if claimed.AssigneeID == nil || *claimed.AssigneeID != "claimer" {
		t.Fatalf("expected claimer as assignee, got %v", claimed.AssigneeID)
	}
	// Claiming is manual work pull; it leaves the routing load counter alone.
	if got := store.staffByID("claimer").AssignedCount; got != 3 {
		t.Fatalf("claim must not move assigned_count, got %d", got)
	}
}

func TestClaimTicketNotFound(t *testing.T) {
	store := newMemStore()
	svc := newRoutingFixture(store, downClassifier())

	member := staffMember("staff", domain.DepartmentOther, 0, true)
	_, err := svc.ClaimTicket(context.Background(), &member, uuid.NewString())
	if code := domainCode(t, err); code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %s", code)
	}
}
