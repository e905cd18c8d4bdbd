package paging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/PagerNation/escalator/internal/domain"
	util "github.com/PagerNation/escalator/pkg/util"
)

// RedisQueue schedules pages in a Redis sorted set scored by absolute send
// time. A separate delivery worker drains the set; this side only enqueues
// and cancels.
type RedisQueue struct {
	client    *redis.Client
	clock     clock.Clock
	logger    *zap.Logger
	keyPrefix string
}

// NewRedisQueue constructs the queue adapter.
func NewRedisQueue(client *redis.Client, clk clock.Clock, logger *zap.Logger, keyPrefix string) *RedisQueue {
	return &RedisQueue{
		client:    client,
		clock:     clk,
		logger:    logger,
		keyPrefix: keyPrefix,
	}
}

// SubmitBatch enqueues every request in one pipeline and returns a handle
// per request, in input order.
func (q *RedisQueue) SubmitBatch(ctx context.Context, requests []domain.PageRequest) ([]domain.PageHandle, error) {
	if len(requests) == 0 {
		return []domain.PageHandle{}, nil
	}

	now := q.clock.Now()
	handles := make([]domain.PageHandle, 0, len(requests))

	pipe := q.client.TxPipeline()
	for _, req := range requests {
		pageID := uuid.NewString()
		payload, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("marshal page request: %w", err)
		}
		sendAt := now.Add(time.Duration(req.DelayMillis) * time.Millisecond)

		pipe.Set(ctx, q.payloadKey(pageID), payload, 0)
		pipe.ZAdd(ctx, q.scheduleKey(), redis.Z{
			Score:  float64(sendAt.UnixMilli()),
			Member: pageID,
		})
		handles = append(handles, domain.PageHandle{PageID: pageID, TicketID: req.TicketID})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, util.NewTransportError("paging queue submit failed", err)
	}

	q.logger.Debug("submitted page batch",
		zap.Int("count", len(handles)),
		zap.String("ticket_id", requests[0].TicketID))
	return handles, nil
}

// Cancel removes not-yet-fired pages. Already-delivered or unknown ids are
// ignored.
func (q *RedisQueue) Cancel(ctx context.Context, pageIDs []string) error {
	if len(pageIDs) == 0 {
		return nil
	}

	members := make([]interface{}, 0, len(pageIDs))
	keys := make([]string, 0, len(pageIDs))
	for _, id := range pageIDs {
		members = append(members, id)
		keys = append(keys, q.payloadKey(id))
	}

	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, q.scheduleKey(), members...)
	pipe.Del(ctx, keys...)
	if _, err := pipe.Exec(ctx); err != nil {
		return util.NewTransportError("paging queue cancel failed", err)
	}
	return nil
}

func (q *RedisQueue) scheduleKey() string {
	return q.keyPrefix + ":schedule"
}

func (q *RedisQueue) payloadKey(pageID string) string {
	return q.keyPrefix + ":page:" + pageID
}
