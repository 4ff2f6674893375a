package service

import (
	"sort"

	"github.com/helpdeskhq/helpdesk-service/internal/domain"
)

// SelectAssignee picks the least-loaded staff member in the given
// department. Ties on AssignedCount break on ascending staff id so that
// concurrent routings with equal loads converge on the same candidate
// instead of skewing on incidental slice order. Returns nil when the
// department has no eligible staff; the ticket then stays unassigned.
//
// The selection is read-only: the load counter is incremented later, in
// the same transaction that persists the ticket.
func SelectAssignee(dept domain.Department, pool []domain.StaffMember) *domain.StaffMember {
	candidates := make([]domain.StaffMember, 0, len(pool))
	for _, staff := range pool {
		if staff.Department == dept && staff.Active {
			candidates = append(candidates, staff)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].AssignedCount != candidates[j].AssignedCount {
			return candidates[i].AssignedCount < candidates[j].AssignedCount
		}
		return candidates[i].ID < candidates[j].ID
	})

	selected := candidates[0]
	return &selected
}
