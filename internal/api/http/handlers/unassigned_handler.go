package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdeskhq/helpdesk-service/internal/api/dto"
	"github.com/helpdeskhq/helpdesk-service/internal/service"
)

// UnassignedHandler exposes the claim queue for staff.
type UnassignedHandler struct {
	routing *service.RoutingService
	tickets *service.TicketService
}

// NewUnassignedHandler constructs handler.
func NewUnassignedHandler(routingService *service.RoutingService, ticketService *service.TicketService) *UnassignedHandler {
	return &UnassignedHandler{routing: routingService, tickets: ticketService}
}

// List GET /staff/unassigned.
func (h *UnassignedHandler) List(c *fiber.Ctx) error {
	if _, err := staffPrincipal(c); err != nil {
		return err
	}
	limit, offset := parsePagination(c)
	tickets, err := h.tickets.ListUnassignedTickets(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketsFromDomain(tickets)})
}

// Get GET /staff/unassigned/:id.
func (h *UnassignedHandler) Get(c *fiber.Ctx) error {
	if _, err := staffPrincipal(c); err != nil {
		return err
	}
	ticket, err := h.tickets.GetUnassignedTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// Claim POST /staff/unassigned/:id/claim. Exactly one concurrent caller
// wins; the rest receive a conflict.
func (h *UnassignedHandler) Claim(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.routing.ClaimTicket(c.UserContext(), staff, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}
