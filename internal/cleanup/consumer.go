package cleanup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/dressing-intelligent/wardrobe-backend/pkg/logger"
)

type objectStore interface {
	ListPrefix(ctx context.Context, bucket, prefix string) ([]string, error)
	DeleteObject(ctx context.Context, bucket, object string) error
}

// Consumer drains purge events and deletes every stored object under the
// requested prefix. Inline deletes during profile or account removal are
// best effort; this worker is the backstop.
type Consumer struct {
	store        objectStore
	bucket       string
	subscription *gcppubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer wires the dependencies for the storage purge worker.
func NewConsumer(store objectStore, bucket string, subscription *gcppubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if subscription == nil {
		return nil, errors.New("cleanup subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		store:        store,
		bucket:       bucket,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run processes purge events until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": msg.Attributes[attrEventType],
	})

	if msg.Attributes[attrEventType] != purgeEventType {
		c.logg.Info(logCtx, "skipping non-purge event")
		return processResult{ack: true}
	}

	var event purgeEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logg.Error(logCtx, "failed to unmarshal purge event", err)
		return processResult{ack: true}
	}
	if strings.TrimSpace(event.Prefix) == "" {
		c.logg.Error(logCtx, "purge event missing prefix", fmt.Errorf("empty prefix"))
		return processResult{ack: true}
	}

	logCtx = c.logg.WithField(logCtx, "prefix", event.Prefix)

	keys, err := c.store.ListPrefix(ctx, c.bucket, event.Prefix)
	if err != nil {
		return c.handleStorageError(logCtx, err)
	}
	if len(keys) == 0 {
		c.logg.Info(logCtx, "nothing left under prefix")
		return processResult{ack: true}
	}

	for _, key := range keys {
		if err := c.store.DeleteObject(ctx, c.bucket, key); err != nil {
			return c.handleStorageError(c.logg.WithField(logCtx, "object", key), err)
		}
	}

	c.logg.Info(c.logg.WithField(logCtx, "objects_deleted", len(keys)), "purged storage prefix")
	return processResult{ack: true}
}

// handleStorageError nacks transient failures so the event is redelivered.
func (c *Consumer) handleStorageError(ctx context.Context, err error) processResult {
	c.logg.Error(ctx, "storage purge error", err)
	if isTransientError(err) {
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func isTransientError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
