package service

import (
	"context"
	"testing"

	"github.com/helpdeskhq/helpdesk-service/internal/domain"
)

func TestCreateStaffValidation(t *testing.T) {
	store := newMemStore()
	svc := NewStaffService(&memStaffRepo{store: store}, 4)

	cases := []struct {
		name  string
		input CreateStaffInput
	}{
		{"missing name", CreateStaffInput{Email: "a@x.com", Password: "pw", Role: domain.StaffRoleAgent, Department: domain.DepartmentOther}},
		{"missing password", CreateStaffInput{Name: "A", Email: "a@x.com", Role: domain.StaffRoleAgent, Department: domain.DepartmentOther}},
		{"bad role", CreateStaffInput{Name: "A", Email: "a@x.com", Password: "pw", Role: "MANAGER", Department: domain.DepartmentOther}},
		{"bad department", CreateStaffInput{Name: "A", Email: "a@x.com", Password: "pw", Role: domain.StaffRoleAgent, Department: "finance"}},
	}
	for _, tc := range cases {
		_, err := svc.CreateStaff(context.Background(), tc.input)
		if code := domainCode(t, err); code != "VALIDATION_FAILED" {
			t.Fatalf("%s: expected VALIDATION_FAILED, got %s", tc.name, code)
		}
	}
}

func TestCreateStaffRejectsDuplicateEmail(t *testing.T) {
	store := newMemStore()
	svc := NewStaffService(&memStaffRepo{store: store}, 4)

	input := CreateStaffInput{
		Name:       "Agent",
		Email:      "agent@example.com",
		Password:   "pw",
		Role:       domain.StaffRoleAgent,
		Department: domain.DepartmentHardware,
	}
	member, err := svc.CreateStaff(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateStaff: %v", err)
	}
	if member.PasswordHash == "pw" {
		t.Fatal("password must be hashed before storage")
	}
	if !member.Active {
		t.Fatal("new staff must be active")
	}

	_, err = svc.CreateStaff(context.Background(), input)
	if code := domainCode(t, err); code != "CONFLICT" {
		t.Fatalf("expected CONFLICT on duplicate email, got %s", code)
	}
}

func TestDirectoryOrdersByDepartmentThenName(t *testing.T) {
	store := newMemStore()
	alice := staffMember("1", domain.DepartmentSoftware, 0, true)
	alice.Name = "Alice"
	bob := staffMember("2", domain.DepartmentAccount, 0, true)
	bob.Name = "Bob"
	carol := staffMember("3", domain.DepartmentAccount, 0, true)
	carol.Name = "Carol"
	gone := staffMember("4", domain.DepartmentAccount, 0, false)
	for _, m := range []domain.StaffMember{alice, bob, carol, gone} {
		store.addStaff(m)
	}

	svc := NewStaffService(&memStaffRepo{store: store}, 4)
	members, err := svc.Directory(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}

	var names []string
	for _, m := range members {
		names = append(names, m.Name)
	}
	want := []string{"Bob", "Carol", "Alice"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}
