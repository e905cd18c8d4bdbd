package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PagerNation/escalator/internal/api/dto"
	"github.com/PagerNation/escalator/internal/service"
	util "github.com/PagerNation/escalator/pkg/util"
)

// GroupsHandler manages group and escalation-policy endpoints.
type GroupsHandler struct {
	groups *service.GroupService
}

// NewGroupsHandler constructs handler.
func NewGroupsHandler(groupService *service.GroupService) *GroupsHandler {
	return &GroupsHandler{groups: groupService}
}

// CreateGroup POST /groups.
func (h *GroupsHandler) CreateGroup(c *fiber.Ctx) error {
	var req dto.CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.Name == "" {
		return util.NewValidationError("name required", nil)
	}

	group, err := h.groups.CreateGroup(c.UserContext(), req.Name, service.PolicyInput{
		RotationIntervalDays:  req.Policy.RotationIntervalDays,
		PagingIntervalMinutes: req.Policy.PagingIntervalMinutes,
		SubscriberUserIDs:     req.Policy.SubscriberUserIDs,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.GroupFromDomain(group)})
}

// GetGroup GET /groups/:name.
func (h *GroupsHandler) GetGroup(c *fiber.Ctx) error {
	group, err := h.groups.GetGroup(c.UserContext(), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.GroupFromDomain(group)})
}

// UpdatePolicy PUT /groups/:name/policy.
func (h *GroupsHandler) UpdatePolicy(c *fiber.Ctx) error {
	var req dto.PolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	group, err := h.groups.UpdatePolicy(c.UserContext(), c.Params("name"), service.PolicyInput{
		RotationIntervalDays:  req.RotationIntervalDays,
		PagingIntervalMinutes: req.PagingIntervalMinutes,
		SubscriberUserIDs:     req.SubscriberUserIDs,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.GroupFromDomain(group)})
}

// DeleteGroup DELETE /groups/:name.
func (h *GroupsHandler) DeleteGroup(c *fiber.Ctx) error {
	if err := h.groups.DeleteGroup(c.UserContext(), c.Params("name")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RequestDeactivation POST /groups/:name/subscribers/:userID/deactivation.
func (h *GroupsHandler) RequestDeactivation(c *fiber.Ctx) error {
	var req dto.DeactivationRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.DeactivateAt.IsZero() {
		return util.NewValidationError("deactivate_at required", nil)
	}

	effective, err := h.groups.RequestDeactivation(c.UserContext(), c.Params("name"), c.Params("userID"), req.DeactivateAt, req.ReactivateAt)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"effective_deactivate_at": effective}})
}
