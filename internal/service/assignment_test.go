package service

import (
	"testing"

	"github.com/helpdeskhq/helpdesk-service/internal/domain"
)

func staffMember(id string, dept domain.Department, count int, active bool) domain.StaffMember {
	return domain.StaffMember{
		ID:            id,
		Name:          "staff-" + id,
		Email:         id + "@example.com",
		Role:          domain.StaffRoleAgent,
		Department:    dept,
		AssignedCount: count,
		Active:        active,
	}
}

func TestSelectAssigneePicksLeastLoaded(t *testing.T) {
	pool := []domain.StaffMember{
		staffMember("a", domain.DepartmentHardware, 5, true),
		staffMember("b", domain.DepartmentHardware, 2, true),
		staffMember("c", domain.DepartmentHardware, 9, true),
	}

	selected := SelectAssignee(domain.DepartmentHardware, pool)
	if selected == nil {
		t.Fatal("expected a selection, got nil")
	}
	if selected.ID != "b" {
		t.Fatalf("expected least-loaded staff b, got %s", selected.ID)
	}
}

func TestSelectAssigneeTieBreaksOnID(t *testing.T) {
	pool := []domain.StaffMember{
		staffMember("z", domain.DepartmentNetwork, 3, true),
		staffMember("a", domain.DepartmentNetwork, 3, true),
		staffMember("m", domain.DepartmentNetwork, 3, true),
	}

	selected := SelectAssignee(domain.DepartmentNetwork, pool)
	if selected == nil || selected.ID != "a" {
		t.Fatalf("expected tie to break on lowest id a, got %+v", selected)
	}
}

func TestSelectAssigneeDeterministicAcrossInputOrder(t *testing.T) {
	base := []domain.StaffMember{
		staffMember("a", domain.DepartmentSoftware, 1, true),
		staffMember("b", domain.DepartmentSoftware, 1, true),
		staffMember("c", domain.DepartmentSoftware, 4, true),
	}
	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 0, 2}, {1, 2, 0}}

	for _, order := range orders {
		pool := make([]domain.StaffMember, 0, len(base))
		for _, idx := range order {
			pool = append(pool, base[idx])
		}
		selected := SelectAssignee(domain.DepartmentSoftware, pool)
		if selected == nil || selected.ID != "a" {
			t.Fatalf("order %v: expected a, got %+v", order, selected)
		}
	}
}

func TestSelectAssigneeFiltersDepartmentAndActive(t *testing.T) {
	pool := []domain.StaffMember{
		staffMember("other-dept", domain.DepartmentAccount, 0, true),
		staffMember("inactive", domain.DepartmentHardware, 0, false),
		staffMember("eligible", domain.DepartmentHardware, 7, true),
	}

	selected := SelectAssignee(domain.DepartmentHardware, pool)
	if selected == nil || selected.ID != "eligible" {
		t.Fatalf("expected eligible, got %+v", selected)
	}
}

func TestSelectAssigneeEmptyPool(t *testing.T) {
	if got := SelectAssignee(domain.DepartmentOther, nil); got != nil {
		t.Fatalf("expected nil for empty pool, got %+v", got)
	}

	pool := []domain.StaffMember{
		staffMember("inactive", domain.DepartmentOther, 0, false),
	}
	if got := SelectAssignee(domain.DepartmentOther, pool); got != nil {
		t.Fatalf("expected nil when no eligible staff, got %+v", got)
	}
}

func TestSelectAssigneeReturnsCopy(t *testing.T) {
	pool := []domain.StaffMember{
		staffMember("a", domain.DepartmentNetwork, 0, true),
	}

	selected := SelectAssignee(domain.DepartmentNetwork, pool)
	selected.AssignedCount = 99
	if pool[0].AssignedCount != 0 {
		t.Fatal("selection must not alias the input slice")
	}
}
