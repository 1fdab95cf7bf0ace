package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/propertyshodh/lead-pipeline/models"
	"github.com/propertyshodh/lead-pipeline/utils"
	"github.com/redis/go-redis/v9"
)

// Lead event types carried over the change bus
const (
	LeadEventCreated = "lead_created"
	LeadEventUpdated = "lead_updated"
	LeadEventRemoved = "lead_removed"
)

// LeadEvent is the payload published for every committed lead mutation.
// Removed events carry the full lead snapshot as it was at removal time so
// subscribers can drop the right card without a read-back.
type LeadEvent struct {
	Type       string       `json:"type"`
	Lead       *models.Lead `json:"lead"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// ChangeBus fans out committed lead mutations to interested operator
// sessions. Publications are fire-and-forget: a publish failure never
// rolls back the mutation that triggered it.
type ChangeBus interface {
	// PublishLeadChanged announces a created or updated lead on the
	// owner's channel.
	PublishLeadChanged(ctx context.Context, ownerID uint, eventType string, lead *models.Lead) error

	// PublishLeadRemoved tells the previous owner's sessions that a lead
	// left their pipeline (unassignment or reassignment away).
	PublishLeadRemoved(ctx context.Context, ownerID uint, lead *models.Lead) error

	// Subscribe delivers events addressed to the given owner until the
	// cancel function is called. Events published while no subscriber is
	// listening are lost, not queued.
	Subscribe(ctx context.Context, ownerID uint) (<-chan LeadEvent, func(), error)
}

// RedisChangeBus implements ChangeBus on Redis pub/sub
type RedisChangeBus struct {
	client *redis.Client
}

// NewRedisChangeBus creates a change bus backed by the given Redis client
func NewRedisChangeBus(client *redis.Client) ChangeBus {
	return &RedisChangeBus{client: client}
}

func leadChannel(ownerID uint) string {
	return fmt.Sprintf("pipeline:leads:%d", ownerID)
}

func removedChannel(ownerID uint) string {
	return fmt.Sprintf("pipeline:removed:%d", ownerID)
}

// PublishLeadChanged publishes a created or updated event on the owner's lead channel
func (b *RedisChangeBus) PublishLeadChanged(ctx context.Context, ownerID uint, eventType string, lead *models.Lead) error {
	if eventType != LeadEventCreated && eventType != LeadEventUpdated {
		return fmt.Errorf("unsupported lead event type: %s", eventType)
	}
	return b.publish(ctx, leadChannel(ownerID), LeadEvent{
		Type:       eventType,
		Lead:       lead,
		OccurredAt: utils.UTCNow(),
	})
}

// PublishLeadRemoved publishes a removal event on the owner's removed channel
func (b *RedisChangeBus) PublishLeadRemoved(ctx context.Context, ownerID uint, lead *models.Lead) error {
	return b.publish(ctx, removedChannel(ownerID), LeadEvent{
		Type:       LeadEventRemoved,
		Lead:       lead,
		OccurredAt: utils.UTCNow(),
	})
}

func (b *RedisChangeBus) publish(ctx context.Context, channel string, event LeadEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal lead event: %w", err)
	}
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish lead event to %s: %w", channel, err)
	}
	return nil
}

// Subscribe listens on both of the owner's channels and merges them into a
// single ordered stream. The returned cancel function closes the underlying
// subscription and, eventually, the event channel.
func (b *RedisChangeBus) Subscribe(ctx context.Context, ownerID uint) (<-chan LeadEvent, func(), error) {
	sub := b.client.Subscribe(ctx, leadChannel(ownerID), removedChannel(ownerID))

	// Force the subscription to be established before returning so callers
	// do not miss events published right after Subscribe returns.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to lead channels: %w", err)
	}

	out := make(chan LeadEvent, 32)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var event LeadEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		_ = sub.Close()
	}
	return out, cancel, nil
}
