package redis

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Queue is the producer side of a Redis list used as a work queue.
// Producers LPUSH onto the head; workers are expected to pop from the tail.
type Queue struct {
	client redis.Cmdable
	name   string
}

func NewQueue(client redis.Cmdable, name string) *Queue {
	return &Queue{client: client, name: name}
}

func (q *Queue) Name() string {
	return q.name
}

// Push adds payload to the head of the list.
func (q *Queue) Push(ctx context.Context, payload []byte) error {
	if err := q.client.LPush(ctx, q.name, payload).Err(); err != nil {
		return errors.Wrapf(err, "lpush %s", q.name)
	}
	return nil
}

// Len reports the number of entries waiting in the list.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "llen %s", q.name)
	}
	return n, nil
}

func (q *Queue) Ping(ctx context.Context) error {
	return errors.Wrap(q.client.Ping(ctx).Err(), "ping redis")
}
