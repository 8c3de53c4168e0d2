package thread

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisService stores discussion threads in Redis, one JSON value per
// thread.
type RedisService struct {
	client *redis.Client
	prefix string
}

type redisThread struct {
	ID        string         `json:"id"`
	Body      string         `json:"body"`
	Meta      Metadata       `json:"meta"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewRedisService connects to Redis and verifies the connection.
func NewRedisService(redisURL string) (*RedisService, error) {
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

	return &RedisService{client: client, prefix: "thread:"}, nil
}

// NewRedisServiceWithClient wraps an existing Redis client.
func NewRedisServiceWithClient(client *redis.Client) *RedisService {
	return &RedisService{client: client, prefix: "thread:"}
}

func (s *RedisService) key(threadID string) string {
	return s.prefix + threadID
}

func (s *RedisService) CreateThread(ctx context.Context, initialBody string, meta Metadata) (string, error) {
	t := redisThread{
		ID:        uuid.NewString(),
		Body:      initialBody,
		Meta:      meta,
		Fields:    map[string]any{},
		CreatedAt: time.Now(),
	}
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal thread: %w", err)
	}
	if err := s.client.Set(ctx, s.key(t.ID), data, 0).Err(); err != nil {
		return "", fmt.Errorf("save thread: %w", err)
	}
	return t.ID, nil
}

func (s *RedisService) UpdateThreadMetadata(ctx context.Context, threadID string, fields map[string]any) error {
	data, err := s.client.Get(ctx, s.key(threadID)).Result()
	if err == redis.Nil {
		return fmt.Errorf("thread %s not found", threadID)
	}
	if err != nil {
		return fmt.Errorf("load thread: %w", err)
	}

	var t redisThread
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return fmt.Errorf("unmarshal thread: %w", err)
	}
	if t.Fields == nil {
		t.Fields = map[string]any{}
	}
	for k, v := range fields {
		t.Fields[k] = v
	}

	updated, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal thread: %w", err)
	}
	if err := s.client.Set(ctx, s.key(threadID), updated, 0).Err(); err != nil {
		return fmt.Errorf("update thread: %w", err)
	}
	return nil
}

// Get loads a stored thread.
func (s *RedisService) Get(ctx context.Context, threadID string) (Thread, error) {
	data, err := s.client.Get(ctx, s.key(threadID)).Result()
	if err == redis.Nil {
		return Thread{}, fmt.Errorf("thread %s not found", threadID)
	}
	if err != nil {
		return Thread{}, fmt.Errorf("load thread: %w", err)
	}
	var t redisThread
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return Thread{}, fmt.Errorf("unmarshal thread: %w", err)
	}
	return Thread{ID: t.ID, Body: t.Body, Meta: t.Meta, Fields: t.Fields}, nil
}

// Close closes the Redis connection.
func (s *RedisService) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
