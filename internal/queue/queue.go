// Package queue provides the Redis-backed queue the notification dispatcher
// publishes lifecycle events onto. State mutations commit before anything is
// enqueued; a lost message is never re-delivered and never affects state.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Message is a single queued notification event
type Message struct {
	ID         uuid.UUID       `json:"id"`
	Event      string          `json:"event"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Attempts   int             `json:"attempts"`
}

// Queue is a Redis-backed FIFO queue
type Queue struct {
	client *redis.Client
	name   string
}

// NewQueue creates a new queue backed by the given Redis client
func NewQueue(client *redis.Client, name string) *Queue {
	return &Queue{
		client: client,
		name:   name,
	}
}

// key returns the Redis list key for this queue
func (q *Queue) key() string {
	return "queue:" + q.name
}

// Enqueue marshals the payload and pushes a message onto the queue
func (q *Queue) Enqueue(ctx context.Context, event string, payload interface{}) (string, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload for event %s: %w", event, err)
	}

	msg := Message{
		ID:         uuid.New(),
		Event:      event,
		Payload:    payloadBytes,
		EnqueuedAt: time.Now(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := q.client.LPush(ctx, q.key(), data).Err(); err != nil {
		return "", fmt.Errorf("failed to enqueue message: %w", err)
	}

	return msg.ID.String(), nil
}

// Dequeue blocks up to timeout waiting for a message. It returns nil with no
// error when the timeout elapses with the queue empty.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Message, error) {
	result, err := q.client.BRPop(ctx, timeout, q.key()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue message: %w", err)
	}

	// BRPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP result length %d", len(result))
	}

	var msg Message
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	return &msg, nil
}

// Len returns the number of pending messages
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key()).Result()
}
