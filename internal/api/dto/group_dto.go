package dto

import (
	"time"

	"github.com/PagerNation/escalator/internal/domain"
)

// CreateGroupRequest payload.
type CreateGroupRequest struct {
	Name   string        `json:"name"`
	Policy PolicyRequest `json:"policy"`
}

// PolicyRequest describes escalation policy input. Nil intervals take the
// configured defaults.
type PolicyRequest struct {
	RotationIntervalDays  *int     `json:"rotation_interval_days"`
	PagingIntervalMinutes *int     `json:"paging_interval_minutes"`
	SubscriberUserIDs     []string `json:"subscriber_user_ids"`
}

// DeactivationRequest payload.
type DeactivationRequest struct {
	DeactivateAt time.Time  `json:"deactivate_at"`
	ReactivateAt *time.Time `json:"reactivate_at,omitempty"`
}

// GroupResponse response.
type GroupResponse struct {
	Name        string          `json:"name"`
	Policy      *PolicyResponse `json:"policy,omitempty"`
	LastRotated time.Time       `json:"last_rotated"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PolicyResponse describes the live policy.
type PolicyResponse struct {
	RotationIntervalDays  int                  `json:"rotation_interval_days"`
	PagingIntervalMinutes int                  `json:"paging_interval_minutes"`
	Subscribers           []SubscriberResponse `json:"subscribers"`
}

// SubscriberResponse describes a policy member.
type SubscriberResponse struct {
	UserID       string     `json:"user_id"`
	Active       bool       `json:"active"`
	DeactivateAt *time.Time `json:"deactivate_at,omitempty"`
	ReactivateAt *time.Time `json:"reactivate_at,omitempty"`
}

// GroupFromDomain maps a group to its response shape.
func GroupFromDomain(group *domain.Group) GroupResponse {
	resp := GroupResponse{
		Name:        group.Name,
		LastRotated: group.LastRotated,
		CreatedAt:   group.CreatedAt,
		UpdatedAt:   group.UpdatedAt,
	}
	if group.Policy != nil {
		policy := PolicyResponse{
			RotationIntervalDays:  group.Policy.RotationIntervalDays,
			PagingIntervalMinutes: group.Policy.PagingIntervalMinutes,
			Subscribers:           make([]SubscriberResponse, 0, len(group.Policy.Subscribers)),
		}
		for _, sub := range group.Policy.Subscribers {
			policy.Subscribers = append(policy.Subscribers, SubscriberResponse{
				UserID:       sub.UserID,
				Active:       sub.Active,
				DeactivateAt: sub.DeactivateAt,
				ReactivateAt: sub.ReactivateAt,
			})
		}
		resp.Policy = &policy
	}
	return resp
}
