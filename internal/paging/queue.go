package paging

import (
	"context"

	"github.com/PagerNation/escalator/internal/domain"
)

// Queue is the external paging-queue contract. The queue owns the waiting:
// each submitted request carries an absolute-enough delay and the queue
// performs delivery when it elapses. Cancelling unknown page ids is a no-op.
type Queue interface {
	SubmitBatch(ctx context.Context, requests []domain.PageRequest) ([]domain.PageHandle, error)
	Cancel(ctx context.Context, pageIDs []string) error
}
