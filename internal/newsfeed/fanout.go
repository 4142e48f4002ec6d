package newsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anonto42/nano-feed/backend/internal/models"
	"github.com/anonto42/nano-feed/backend/internal/pagination"
	"github.com/anonto42/nano-feed/backend/internal/queue"
	"github.com/anonto42/nano-feed/backend/internal/repositories"
	"github.com/google/uuid"
)

const (
	// FanoutQueue is the dedicated delivery queue. Large fan-outs backing
	// up here cannot starve unrelated background work on other queues.
	FanoutQueue = "newsfeeds"
	// DeadLetterQueue receives tasks that exhausted their retries.
	DeadLetterQueue = "newsfeeds_dlq"

	TaskFanout      = "newsfeeds.fanout"
	TaskFanoutBatch = "newsfeeds.fanout_batch"
)

// FanoutTask expands one post's follower set into batch tasks.
type FanoutTask struct {
	PostID    string    `json:"post_id"`
	AuthorID  uint      `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FanoutBatchTask delivers one post to one bounded slice of followers.
type FanoutBatchTask struct {
	PostID    string    `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
	OwnerIDs  []uint    `json:"owner_ids"`
}

// OnPostCreated is the hook the post-creation path invokes synchronously
// after persisting a post. The author's own entry is always written inline,
// so the author sees the post immediately; follower delivery is inline below
// the sync threshold and batched onto the delivery queue above it.
func (s *Service) OnPostCreated(ctx context.Context, post *models.Post) error {
	postID := post.ID.Hex()
	if err := s.deliver(ctx, post.AuthorID, postID, post.CreatedAt); err != nil {
		return fmt.Errorf("deliver to author: %w", err)
	}

	count, err := s.edges.CountFollowers(ctx, post.AuthorID)
	if err != nil {
		return fmt.Errorf("count followers: %w", err)
	}
	if count == 0 {
		return nil
	}

	task := FanoutTask{PostID: postID, AuthorID: post.AuthorID, CreatedAt: post.CreatedAt}
	if count <= int64(s.cfg.SyncThreshold) {
		return s.fanout(ctx, task, true)
	}
	return s.enqueue(ctx, TaskFanout, task)
}

// FanoutNewsfeeds expands one fan-out task into bounded batch tasks on the
// delivery queue, so no single task ever holds an unbounded amount of work.
func (s *Service) FanoutNewsfeeds(ctx context.Context, task FanoutTask) error {
	return s.fanout(ctx, task, false)
}

// fanout walks the author's follower set in batch-size slices. Inline
// delivery writes each slice in place (the synchronous path); otherwise each
// slice becomes its own batch task.
func (s *Service) fanout(ctx context.Context, task FanoutTask, inline bool) error {
	var start *pagination.Cursor
	for {
		edges, err := s.edges.FilterEdges(ctx, repositories.EdgeQuery{
			View:   repositories.FollowerView,
			UserID: task.AuthorID,
			Start:  start,
			Limit:  s.cfg.BatchSize,
		})
		if err != nil {
			return fmt.Errorf("scan followers: %w", err)
		}
		if len(edges) == 0 {
			return nil
		}

		owners := make([]uint, len(edges))
		for i, e := range edges {
			owners[i] = e.FromUserID
		}

		if inline {
			if err := s.deliverMany(ctx, owners, task.PostID, task.CreatedAt); err != nil {
				return err
			}
		} else {
			batch := FanoutBatchTask{
				PostID:    task.PostID,
				CreatedAt: task.CreatedAt,
				OwnerIDs:  owners,
			}
			if err := s.enqueue(ctx, TaskFanoutBatch, batch); err != nil {
				return err
			}
		}

		if len(edges) < s.cfg.BatchSize {
			return nil
		}
		key := edges[len(edges)-1].PageKey()
		start = &key
	}
}

// DeliverBatch writes one post into the timelines of one follower slice.
// Replays and concurrent batches are safe: every write is an idempotent
// upsert keyed on (owner, post).
func (s *Service) DeliverBatch(ctx context.Context, task FanoutBatchTask) error {
	return s.deliverMany(ctx, task.OwnerIDs, task.PostID, task.CreatedAt)
}

// HandleTask routes a queue task to its handler. The worker and the tests
// share this entry point.
func (s *Service) HandleTask(ctx context.Context, task queue.Task) error {
	switch task.Name {
	case TaskFanout:
		var t FanoutTask
		if err := json.Unmarshal(task.Payload, &t); err != nil {
			return fmt.Errorf("decode %s: %w", task.Name, err)
		}
		return s.FanoutNewsfeeds(ctx, t)
	case TaskFanoutBatch:
		var t FanoutBatchTask
		if err := json.Unmarshal(task.Payload, &t); err != nil {
			return fmt.Errorf("decode %s: %w", task.Name, err)
		}
		return s.DeliverBatch(ctx, t)
	default:
		return fmt.Errorf("unknown task: %s", task.Name)
	}
}

func (s *Service) enqueue(ctx context.Context, name string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.queue.Enqueue(ctx, FanoutQueue, queue.Task{
		ID:      uuid.NewString(),
		Name:    name,
		Payload: raw,
	})
}
