package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/PagerNation/escalator/internal/repository"
)

// BulkLoader rebuilds in-memory timers from persisted state after a process
// restart. The schedule has no durable identity of its own: lastRotated and
// each subscriber's date fields are the sole record of scheduling intent,
// and this is the only recovery mechanism.
type BulkLoader struct {
	groups       repository.GroupRepository
	rotation     *RotationService
	availability *AvailabilityService
	logger       *zap.Logger
}

// NewBulkLoader constructs the loader.
func NewBulkLoader(groups repository.GroupRepository, rotation *RotationService, availability *AvailabilityService, logger *zap.Logger) *BulkLoader {
	return &BulkLoader{
		groups:       groups,
		rotation:     rotation,
		availability: availability,
		logger:       logger,
	}
}

// Load arms a rotation for every group with a policy and a transition for
// every subscriber with a pending date field. A single group failing to load
// does not stop the rest.
func (l *BulkLoader) Load(ctx context.Context) error {
	groups, err := l.groups.List(ctx)
	if err != nil {
		return err
	}

	armed := 0
	for i := range groups {
		group := &groups[i]
		if group.Policy == nil {
			continue
		}

		if _, err := l.rotation.ScheduleRotation(ctx, group); err != nil {
			l.logger.Error("failed to arm rotation",
				zap.String("group", group.Name),
				zap.Error(err))
		} else {
			armed++
		}

		for _, sub := range group.Policy.Subscribers {
			switch {
			case sub.DeactivateAt != nil:
				if _, err := l.availability.ScheduleDeactivation(ctx, group.Name, sub.UserID, *sub.DeactivateAt, sub.ReactivateAt); err != nil {
					l.logger.Error("failed to arm deactivation",
						zap.String("group", group.Name),
						zap.String("user_id", sub.UserID),
						zap.Error(err))
				}
			case sub.ReactivateAt != nil:
				if _, err := l.availability.ScheduleReactivation(ctx, group.Name, sub.UserID); err != nil {
					l.logger.Error("failed to arm reactivation",
						zap.String("group", group.Name),
						zap.String("user_id", sub.UserID),
						zap.Error(err))
				}
			}
		}
	}

	l.logger.Info("schedule recovery complete",
		zap.Int("groups", len(groups)),
		zap.Int("rotations_armed", armed))
	return nil
}
