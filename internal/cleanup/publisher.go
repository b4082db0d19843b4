package cleanup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/dressing-intelligent/wardrobe-backend/pkg/logger"
)

// Attribute and event names shared between the publisher and the worker.
const (
	purgeEventType    = "STORAGE_PURGE"
	attrEventType     = "eventType"
	attrPrefix        = "prefix"
	payloadFormatJSON = "JSON_V1"
	attrPayloadFormat = "payloadFormat"
)

// purgeEvent is the wire payload carried by purge messages.
type purgeEvent struct {
	Prefix      string    `json:"prefix"`
	RequestedAt time.Time `json:"requested_at"`
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// Publisher emits storage purge events so leftover objects get removed
// asynchronously even when inline deletes fail.
type Publisher struct {
	pub  publisher
	logg *logger.Logger
	now  func() time.Time
}

// NewPublisher wraps the configured cleanup topic publisher.
func NewPublisher(pub *gcppubsub.Publisher, logg *logger.Logger) (*Publisher, error) {
	if pub == nil {
		return nil, errors.New("cleanup topic publisher is required")
	}
	return &Publisher{
		pub:  newGCPPublisher(pub),
		logg: logg,
		now:  time.Now,
	}, nil
}

// PublishPurge emits a purge event for every object under the given key prefix.
func (p *Publisher) PublishPurge(ctx context.Context, prefix string) error {
	if strings.TrimSpace(prefix) == "" {
		return errors.New("purge prefix is required")
	}

	payload, err := json.Marshal(purgeEvent{Prefix: prefix, RequestedAt: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("encoding purge event: %w", err)
	}

	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			attrEventType:     purgeEventType,
			attrPrefix:        prefix,
			attrPayloadFormat: payloadFormatJSON,
		},
	}

	result := p.pub.Publish(ctx, msg)
	if result == nil {
		return errors.New("publisher returned no result")
	}
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing purge event: %w", err)
	}
	if p.logg != nil {
		p.logg.Info(p.logg.WithField(ctx, "prefix", prefix), "published storage purge event")
	}
	return nil
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}
