package dto

import (
	"time"

	"github.com/helpdeskhq/helpdesk-service/internal/domain"
)

// StaffLoginRequest payload for staff login.
type StaffLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateStaffRequest payload for admin staff creation.
type CreateStaffRequest struct {
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Password   string            `json:"password"`
	Role       domain.StaffRole  `json:"role"`
	Department domain.Department `json:"department"`
}

// StaffResponse is the wire shape for a staff member. The password hash
// never leaves the server.
type StaffResponse struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	Role          domain.StaffRole  `json:"role"`
	Department    domain.Department `json:"department"`
	AssignedCount int               `json:"assigned_count"`
	Active        bool              `json:"active"`
	CreatedAt     time.Time         `json:"created_at"`
}

// StaffFromDomain maps a staff member onto the response shape.
func StaffFromDomain(m *domain.StaffMember) StaffResponse {
	return StaffResponse{
		ID:            m.ID,
		Name:          m.Name,
		Email:         m.Email,
		Role:          m.Role,
		Department:    m.Department,
		AssignedCount: m.AssignedCount,
		Active:        m.Active,
		CreatedAt:     m.CreatedAt,
	}
}

// StaffDirectoryFromDomain maps the directory listing.
func StaffDirectoryFromDomain(members []domain.StaffMember) []StaffResponse {
	out := make([]StaffResponse, 0, len(members))
	for i := range members {
		out = append(out, StaffFromDomain(&members[i]))
	}
	return out
}
