package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PagerNation/escalator/internal/api/dto"
	"github.com/PagerNation/escalator/internal/service"
	util "github.com/PagerNation/escalator/pkg/util"
)

// UsersHandler manages user endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// CreateUser POST /users.
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	user, err := h.users.CreateUser(c.UserContext(), service.UserCreateInput{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Devices:       req.Devices,
		DelaysMinutes: req.DelaysMinutes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.UserFromDomain(user)})
}

// GetUser GET /users/:id.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.users.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UserFromDomain(user)})
}
