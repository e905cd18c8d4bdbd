package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/PagerNation/escalator/internal/domain"
	"github.com/PagerNation/escalator/internal/repository"
	util "github.com/PagerNation/escalator/pkg/util"
)

// UserService manages pageable users and their device priority lists.
type UserService struct {
	users repository.UserRepository
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// UserCreateInput describes user creation payload.
type UserCreateInput struct {
	Name          string
	Email         string
	Phone         string
	Devices       []domain.Device
	DelaysMinutes []int
}

// CreateUser validates device types and delay gaps before persisting.
func (s *UserService) CreateUser(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" || email == "" {
		return nil, util.NewValidationError("name and email required", nil)
	}
	for i := range input.Devices {
		if !domain.ValidDeviceType(input.Devices[i].Type) {
			return nil, util.NewValidationError("invalid device type", map[string]any{
				"type": string(input.Devices[i].Type),
			})
		}
		if input.Devices[i].ID == "" {
			input.Devices[i].ID = uuid.NewString()
		}
	}
	// At most one gap between each pair of successive devices.
	if len(input.DelaysMinutes) > 0 && len(input.DelaysMinutes) > len(input.Devices)-1 {
		return nil, util.NewValidationError("too many device delays", nil)
	}
	for _, delay := range input.DelaysMinutes {
		if delay < 0 {
			return nil, util.NewValidationError("device delays must be non-negative", nil)
		}
	}

	user := &domain.User{
		Name:          name,
		Email:         email,
		Phone:         strings.TrimSpace(input.Phone),
		Devices:       input.Devices,
		DelaysMinutes: input.DelaysMinutes,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser fetches a user by id.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}
