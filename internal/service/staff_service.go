package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/helpdeskhq/helpdesk-service/internal/auth"
	"github.com/helpdeskhq/helpdesk-service/internal/domain"
	"github.com/helpdeskhq/helpdesk-service/internal/repository"
	apperrors "github.com/helpdeskhq/helpdesk-service/pkg/util/errorutil"
)

// StaffService manages staff accounts and the staff directory.
type StaffService struct {
	staff      repository.StaffRepository
	bcryptCost int
}

// NewStaffService builds the service.
func NewStaffService(staff repository.StaffRepository, bcryptCost int) *StaffService {
	return &StaffService{staff: staff, bcryptCost: bcryptCost}
}

// CreateStaffInput carries fields for admin staff creation.
type CreateStaffInput struct {
	Name       string
	Email      string
	Password   string
	Role       domain.StaffRole
	Department domain.Department
}

// CreateStaff registers a new staff member. Admin only; enforced by the caller.
func (s *StaffService) CreateStaff(ctx context.Context, input CreateStaffInput) (*domain.StaffMember, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("name, email and password are required", nil)
	}
	if input.Role != domain.StaffRoleAgent && input.Role != domain.StaffRoleAdmin {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": string(input.Role)})
	}
	if !domain.ValidDepartment(input.Department) {
		return nil, apperrors.NewValidationError("invalid department", map[string]any{"department": string(input.Department)})
	}

	if _, err := s.staff.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	member := &domain.StaffMember{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		Department:   input.Department,
		Active:       true,
	}
	if err := s.staff.Create(ctx, member); err != nil {
		return nil, apperrors.MapError(err)
	}
	return member, nil
}

// Directory lists active staff members ordered by department then name.
func (s *StaffService) Directory(ctx context.Context, limit, offset int) ([]domain.StaffMember, error) {
	members, err := s.staff.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return members, nil
}

// GetStaff loads a single staff member.
func (s *StaffService) GetStaff(ctx context.Context, id string) (*domain.StaffMember, error) {
	member, err := s.staff.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("staff member", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return member, nil
}

// SetActive toggles whether a staff member participates in routing.
func (s *StaffService) SetActive(ctx context.Context, id string, active bool) (*domain.StaffMember, error) {
	member, err := s.GetStaff(ctx, id)
	if err != nil {
		return nil, err
	}
	member.Active = active
	if err := s.staff.Update(ctx, member); err != nil {
		return nil, apperrors.MapError(err)
	}
	return member, nil
}
