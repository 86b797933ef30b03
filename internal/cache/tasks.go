package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/redis/go-redis/v9"
)

const listKeyPrefix = "tasks:list:v1:"

// TasksCache caches per-user task lists in Redis. Writes for a user
// invalidate that user's entry only.
type TasksCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTasksCache(rdb *redis.Client, ttl time.Duration) *TasksCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &TasksCache{rdb: rdb, ttl: ttl}
}

func listKey(ownerID string) string {
	return listKeyPrefix + ownerID
}

// GetList returns the cached list for the owner, or nil on miss.
func (c *TasksCache) GetList(ctx context.Context, ownerID string) ([]task.Task, error) {
	b, err := c.rdb.Get(ctx, listKey(ownerID)).Bytes()

	if err == redis.Nil {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	var list []task.Task

	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}

	return list, nil
}

// SetList stores the owner's list.
func (c *TasksCache) SetList(ctx context.Context, ownerID string, list []task.Task) error {
	b, err := json.Marshal(list)

	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, listKey(ownerID), b, c.ttl).Err()
}

// Invalidate drops the owner's cached list after a write.
func (c *TasksCache) Invalidate(ctx context.Context, ownerID string) error {
	return c.rdb.Del(ctx, listKey(ownerID)).Err()
}
