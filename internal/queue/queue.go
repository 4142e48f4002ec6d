// Package queue is the task-queue seam between the request path and the
// fan-out workers. Delivery is at-least-once with no cross-task ordering;
// queue names map to independently consumed Kafka topics, so a backlog on
// one queue never starves another.
package queue

import (
	"context"
	"encoding/json"

	"github.com/anonto42/nano-feed/backend/pkg/kafka"
)

// Task is one unit of asynchronous work. Payload is task-specific JSON;
// Attempt counts deliveries for the retry/dead-letter policy.
type Task struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
	Attempt int             `json:"attempt"`
}

// TaskQueue enqueues tasks onto a named queue.
type TaskQueue interface {
	Enqueue(ctx context.Context, queueName string, task Task) error
}

// KafkaTaskQueue implements TaskQueue with one Kafka topic per queue name.
type KafkaTaskQueue struct {
	producer *kafka.Producer
}

// NewKafkaTaskQueue creates a new KafkaTaskQueue
func NewKafkaTaskQueue(producer *kafka.Producer) *KafkaTaskQueue {
	return &KafkaTaskQueue{producer: producer}
}

func (q *KafkaTaskQueue) Enqueue(ctx context.Context, queueName string, task Task) error {
	value, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.producer.Publish(ctx, queueName, []byte(task.ID), value)
}

// DecodeTask parses a task envelope off the wire.
func DecodeTask(value []byte) (Task, error) {
	var t Task
	err := json.Unmarshal(value, &t)
	return t, err
}
