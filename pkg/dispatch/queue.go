package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/solindex-labs/solindex/pkg/event"
	"github.com/solindex-labs/solindex/pkg/redis"
	"go.uber.org/zap"
)

// MaxAttempts is how many deliveries a task gets before it lands in the
// dead-letter stream.
const MaxAttempts = 3

// Task is one queued delivery: a raw event payload bound for a single
// subscriber job. NotBefore (unix milliseconds) is set on retry entries; a
// worker picking one up early waits out the remainder of the backoff.
type Task struct {
	Category  event.Category
	JobID     int64
	Payload   json.RawMessage
	Attempt   int
	NotBefore int64
}

// Queue is the durable per-category webhook queue, backed by Redis Streams.
// A nil *Queue means "no queue configured"; callers fall back to synchronous
// writes.
type Queue struct {
	redis  *redis.Client
	logger *zap.Logger
}

// NewQueue returns a Queue over the given Redis client, or nil when the
// client is nil.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if client == nil {
		return nil
	}
	return &Queue{redis: client, logger: logger}
}

// DeadLetterStream is the stream that holds tasks which exhausted their
// delivery attempts.
func DeadLetterStream(c event.Category) string {
	return c.Stream() + ":dead"
}

func taskValues(t Task) map[string]interface{} {
	values := map[string]interface{}{
		"category": t.Category.String(),
		"job_id":   strconv.FormatInt(t.JobID, 10),
		"payload":  string(t.Payload),
		"attempt":  strconv.Itoa(t.Attempt),
	}
	if t.NotBefore > 0 {
		values["not_before"] = strconv.FormatInt(t.NotBefore, 10)
	}
	return values
}

// Enqueue adds a delivery task to the category's stream.
func (q *Queue) Enqueue(ctx context.Context, t Task) (string, error) {
	if q == nil {
		return "", fmt.Errorf("queue not configured")
	}

	id, err := q.redis.XAdd(ctx, t.Category.Stream(), taskValues(t))
	if err != nil {
		return "", fmt.Errorf("enqueue to %s: %w", t.Category.Stream(), err)
	}
	return id, nil
}

// DeadLetter parks a task that exhausted its attempts, annotated with the
// final failure cause.
func (q *Queue) DeadLetter(ctx context.Context, t Task, cause error) error {
	if q == nil {
		return fmt.Errorf("queue not configured")
	}

	values := taskValues(t)
	if cause != nil {
		values["error"] = cause.Error()
	}
	if _, err := q.redis.XAdd(ctx, DeadLetterStream(t.Category), values); err != nil {
		return fmt.Errorf("dead-letter to %s: %w", DeadLetterStream(t.Category), err)
	}

	q.logger.Error("Task moved to dead-letter stream",
		zap.String("category", t.Category.String()),
		zap.Int64("job_id", t.JobID),
		zap.Int("attempt", t.Attempt),
		zap.Error(cause))
	return nil
}

// ParseTask decodes a stream entry's fields back into a Task.
func ParseTask(values map[string]interface{}) (Task, error) {
	var t Task

	catStr, _ := values["category"].(string)
	cat, ok := event.ParseCategory(catStr)
	if !ok {
		return t, fmt.Errorf("task has unsupported category %q", catStr)
	}
	t.Category = cat

	jobStr, _ := values["job_id"].(string)
	jobID, err := strconv.ParseInt(jobStr, 10, 64)
	if err != nil {
		return t, fmt.Errorf("task has invalid job_id %q: %w", jobStr, err)
	}
	t.JobID = jobID

	payload, _ := values["payload"].(string)
	if payload == "" {
		return t, fmt.Errorf("task has empty payload")
	}
	t.Payload = json.RawMessage(payload)

	if attemptStr, ok := values["attempt"].(string); ok {
		if attempt, err := strconv.Atoi(attemptStr); err == nil {
			t.Attempt = attempt
		}
	}

	if nbStr, ok := values["not_before"].(string); ok {
		if nb, err := strconv.ParseInt(nbStr, 10, 64); err == nil {
			t.NotBefore = nb
		}
	}
	return t, nil
}
