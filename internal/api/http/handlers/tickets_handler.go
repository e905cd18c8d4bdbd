package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PagerNation/escalator/internal/api/dto"
	"github.com/PagerNation/escalator/internal/service"
	util "github.com/PagerNation/escalator/pkg/util"
)

// TicketsHandler manages ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	alerts  *service.AlertService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, alertService *service.AlertService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, alerts: alertService}
}

// OpenTicket POST /tickets.
func (h *TicketsHandler) OpenTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	ticket, requests, err := h.tickets.OpenTicket(c.UserContext(), service.TicketCreateInput{
		GroupName:   req.GroupName,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.TicketFromDomain(ticket, requests)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket, nil)})
}

// AcknowledgeTicket POST /tickets/:id/ack.
func (h *TicketsHandler) AcknowledgeTicket(c *fiber.Ctx) error {
	var req dto.TicketFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.AcknowledgeTicket(c.UserContext(), c.Params("id"), req.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket, nil)})
}

// RejectTicket POST /tickets/:id/reject.
func (h *TicketsHandler) RejectTicket(c *fiber.Ctx) error {
	var req dto.TicketFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.RejectTicket(c.UserContext(), c.Params("id"), req.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket, nil)})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	var req dto.TicketFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.CloseTicket(c.UserContext(), c.Params("id"), req.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket, nil)})
}

// SendPage POST /tickets/:id/pages: queue delivery callback performing one
// page now.
func (h *TicketsHandler) SendPage(c *fiber.Ctx) error {
	var req dto.DirectSendRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.UserID == "" || req.DeviceID == "" {
		return util.NewValidationError("user_id and device_id required", nil)
	}
	if err := h.alerts.SendDirect(c.UserContext(), c.Params("id"), req.UserID, req.DeviceID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"sent": true}})
}
