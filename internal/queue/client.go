package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/docchat/internal/config"
	"github.com/nikhilbhutani/docchat/internal/models"
)

// Client enqueues archive tasks. It satisfies metrics.Sink.
type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Task IDs are the record IDs, so a record is archived at most once even if
// it is published twice.
func (c *Client) PublishInteraction(ctx context.Context, in models.Interaction) error {
	return c.enqueue(ctx, TypeInteractionArchive, in, asynq.TaskID("interaction:"+in.ID))
}

func (c *Client) PublishError(ctx context.Context, ev models.ErrorEvent) error {
	return c.enqueue(ctx, TypeErrorArchive, ev, asynq.TaskID("error:"+ev.ID))
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	opts = append(opts,
		asynq.Queue(QueueArchive),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
		asynq.Retention(time.Hour),
	)
	if _, err := c.client.EnqueueContext(ctx, asynq.NewTask(taskType, data), opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
