package dto

import (
	"time"

	"github.com/PagerNation/escalator/internal/domain"
)

// CreateUserRequest payload.
type CreateUserRequest struct {
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Devices       []domain.Device `json:"devices"`
	DelaysMinutes []int           `json:"delays_minutes"`
}

// UserResponse response.
type UserResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Devices       []domain.Device `json:"devices"`
	DelaysMinutes []int           `json:"delays_minutes"`
	CreatedAt     time.Time       `json:"created_at"`
}

// UserFromDomain maps a user to its response shape.
func UserFromDomain(user *domain.User) UserResponse {
	return UserResponse{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		Phone:         user.Phone,
		Devices:       user.Devices,
		DelaysMinutes: user.DelaysMinutes,
		CreatedAt:     user.CreatedAt,
	}
}
