package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeSessionOpened  Type = "shift.session_opened"
	TypeRemoteClockIn  Type = "shift.remote_clock_in"
	TypeSessionClosed  Type = "shift.session_closed"
	TypePointAwarded   Type = "loyalty.point_awarded"
	TypeRewardReady    Type = "loyalty.reward_ready"
	TypeRewardRedeemed Type = "loyalty.reward_redeemed"
	TypePlanChanged    Type = "shop.plan_changed"
)

// Event is a committed state change, published after the transaction that
// produced it.
type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	ShopID     string         `json:"shop_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

func New(eventType Type, shopID string, at time.Time, data map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		ShopID:     shopID,
		OccurredAt: at.UTC(),
		Data:       data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(ctx context.Context, event Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
