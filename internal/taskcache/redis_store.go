// Package taskcache caches tasks pulled from external systems (Salesforce,
// Notion) in Redis so the search aggregator can include them without a
// round trip to the upstream APIs on every keystroke.
package taskcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Task is one cached external task.
type Task struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	WhoName   string `json:"who_name"`
	RelatedTo string `json:"related_to"`
	Status    string `json:"status"`
	DueDate   string `json:"due_date,omitempty"`
	Origin    string `json:"origin"` // "salesforce" or "notion"
	URL       string `json:"url"`
}

const (
	tasksKey    = "exttasks:all"
	syncedAtKey = "exttasks:synced_at"
)

// cacheTTL bounds how stale the snapshot may get if sync stops running.
const cacheTTL = 24 * time.Hour

// Store is the Redis-backed task cache.
type Store struct {
	client *redis.Client
}

// NewStore connects to Redis and verifies the connection.
func NewStore(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewStoreWithClient creates a store from an existing Redis client.
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Replace swaps the cached snapshot for the given task set and stamps the
// sync time. The whole set is written as one value so readers never observe
// a partially replaced snapshot.
func (s *Store) Replace(ctx context.Context, tasks []Task) error {
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, tasksKey, data, cacheTTL)
	pipe.Set(ctx, syncedAtKey, time.Now().UTC().Format(time.RFC3339), cacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("replace task cache: %w", err)
	}
	return nil
}

// ListTasks returns the cached snapshot. An empty cache is not an error; the
// external tasks source simply contributes no results.
func (s *Store) ListTasks(ctx context.Context) ([]Task, error) {
	data, err := s.client.Get(ctx, tasksKey).Result()
	if err == redis.Nil {
		return []Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read task cache: %w", err)
	}

	var tasks []Task
	if err := json.Unmarshal([]byte(data), &tasks); err != nil {
		return nil, fmt.Errorf("unmarshal task cache: %w", err)
	}
	return tasks, nil
}

// LastSyncedAt returns when the cache was last replaced, or the zero time if
// it never was.
func (s *Store) LastSyncedAt(ctx context.Context) (time.Time, error) {
	raw, err := s.client.Get(ctx, syncedAtKey).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read sync time: %w", err)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse sync time: %w", err)
	}
	return t, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
