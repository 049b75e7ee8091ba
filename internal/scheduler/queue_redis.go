package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const resendQueueKey = "gridgate:resend"

// RedisQueue persists parked notifications in a sorted set scored by due
// time, so resends survive restarts and are shared across instances.
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) Push(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal resend entry: %w", err)
	}
	err = q.client.ZAdd(ctx, resendQueueKey, redis.Z{
		Score:  float64(entry.DueAt.UnixMilli()),
		Member: payload,
	}).Err()
	if err != nil {
		return fmt.Errorf("push resend entry: %w", err)
	}
	return nil
}

func (q *RedisQueue) PopDue(ctx context.Context, now time.Time) ([]Entry, error) {
	max := strconv.FormatInt(now.UnixMilli(), 10)
	members, err := q.client.ZRangeByScore(ctx, resendQueueKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: max,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range due resends: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	var entries []Entry
	for _, member := range members {
		// Remove first so two instances never both deliver the same entry.
		removed, err := q.client.ZRem(ctx, resendQueueKey, member).Result()
		if err != nil {
			return entries, fmt.Errorf("remove resend entry: %w", err)
		}
		if removed == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(member), &entry); err != nil {
			return entries, fmt.Errorf("unmarshal resend entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
