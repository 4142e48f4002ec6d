package newsfeed

import (
	"context"
	"log"

	"github.com/anonto42/nano-feed/backend/internal/queue"
)

// Worker executes delivery-queue tasks with a bounded retry policy. A failed
// task is re-enqueued with its attempt count bumped; once the attempts are
// exhausted it goes to the dead-letter queue instead of being dropped.
// Re-execution is always safe because every task is idempotent.
type Worker struct {
	svc         *Service
	queue       queue.TaskQueue
	maxAttempts int
}

// NewWorker creates a new Worker
func NewWorker(svc *Service, taskQueue queue.TaskQueue, maxAttempts int) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Worker{svc: svc, queue: taskQueue, maxAttempts: maxAttempts}
}

// Handle processes one task envelope off the delivery queue.
func (w *Worker) Handle(ctx context.Context, task queue.Task) {
	err := w.svc.HandleTask(ctx, task)
	if err == nil {
		return
	}
	log.Printf("task %s (%s) attempt %d failed: %v", task.ID, task.Name, task.Attempt+1, err)

	task.Attempt++
	if task.Attempt >= w.maxAttempts {
		if dlqErr := w.queue.Enqueue(ctx, DeadLetterQueue, task); dlqErr != nil {
			log.Printf("dead-letter enqueue for task %s failed: %v", task.ID, dlqErr)
		}
		return
	}
	if reqErr := w.queue.Enqueue(ctx, FanoutQueue, task); reqErr != nil {
		log.Printf("retry enqueue for task %s failed: %v", task.ID, reqErr)
	}
}
