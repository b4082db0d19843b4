package cleanup

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "server-id", f.err
}

type fakePublisher struct {
	messages []*gcppubsub.Message
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	return fakePublishResult{err: f.err}
}

func TestPublishPurgeBuildsMessage(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	p := &Publisher{pub: pub, now: func() time.Time { return time.Unix(1700000000, 0) }}

	if err := p.PublishPurge(context.Background(), "users/u1/profiles/p1/"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.messages))
	}

	msg := pub.messages[0]
	if msg.Attributes[attrEventType] != purgeEventType {
		t.Fatalf("unexpected event type %q", msg.Attributes[attrEventType])
	}
	if msg.Attributes[attrPrefix] != "users/u1/profiles/p1/" {
		t.Fatalf("unexpected prefix attribute %q", msg.Attributes[attrPrefix])
	}

	var event purgeEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if event.Prefix != "users/u1/profiles/p1/" {
		t.Fatalf("unexpected payload prefix %q", event.Prefix)
	}
	if event.RequestedAt.Unix() != 1700000000 {
		t.Fatalf("unexpected requested_at %v", event.RequestedAt)
	}
}

func TestPublishPurgeRejectsEmptyPrefix(t *testing.T) {
	t.Parallel()

	p := &Publisher{pub: &fakePublisher{}, now: time.Now}
	if err := p.PublishPurge(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty prefix")
	}
}

func TestPublishPurgePropagatesBrokerError(t *testing.T) {
	t.Parallel()

	p := &Publisher{pub: &fakePublisher{err: errors.New("broker unavailable")}, now: time.Now}
	if err := p.PublishPurge(context.Background(), "users/u1/"); err == nil {
		t.Fatal("expected broker error to surface")
	}
}
