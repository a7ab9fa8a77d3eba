// Package access decides whether a fan may ask a creator questions. A fan
// gets through on an active subscription, or on a small free-question
// allowance once per creator; everyone else is told to pay.
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNoAccess is returned by stores when a fan has no subscription record
// for a creator. The gate treats it as "fall back to the free allowance",
// not as a failure.
var ErrNoAccess = errors.New("no access record")

// StatusActive is the only subscription status that grants access.
const StatusActive = "active"

// FreeQuestionLimit is how many questions a fan may ask each creator without
// a subscription. Enforced here rather than in the client so a crafted
// request cannot reset the counter.
const FreeQuestionLimit = 3

// Denial reasons reported to callers.
const (
	ReasonSubscription  = "subscription"
	ReasonFreeQuestion  = "free_question"
	ReasonPaymentNeeded = "payment_required"
)

// Subscription is a fan's paid access to one creator. A nil ExpiresAt never
// expires.
type Subscription struct {
	FanID     string
	CreatorID string
	Status    string
	ExpiresAt *time.Time
}

// ActiveAt reports whether the subscription grants access at the given
// instant. Expiry is strict: a subscription expiring exactly now is expired.
func (s Subscription) ActiveAt(now time.Time) bool {
	if s.Status != StatusActive {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}

// Decision is the gate's verdict for one question.
type Decision struct {
	Allowed       bool
	Reason        string
	FreeRemaining int
}

// Store persists subscriptions and free-question counters.
type Store interface {
	// GetSubscription returns ErrNoAccess when no record exists.
	GetSubscription(ctx context.Context, fanID, creatorID string) (Subscription, error)
	// ConsumeFreeQuestion atomically increments the fan's counter for the
	// creator and returns the new total.
	ConsumeFreeQuestion(ctx context.Context, fanID, creatorID string) (int, error)
}

// Gate checks access before each question.
type Gate struct {
	store  Store
	limit  int
	now    func() time.Time
	logger *slog.Logger
}

// NewGate creates a Gate. limit <= 0 falls back to FreeQuestionLimit.
func NewGate(store Store, limit int, logger *slog.Logger) (*Gate, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if limit <= 0 {
		limit = FreeQuestionLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{store: store, limit: limit, now: time.Now, logger: logger}, nil
}

// Check decides whether the fan may ask one question of the creator. An
// active subscription passes without touching the free counter. A fan with
// a lapsed or cancelled subscription is denied outright; only fans with no
// record at all get the free allowance, and they are denied once it is
// spent.
func (g *Gate) Check(ctx context.Context, fanID, creatorID string) (Decision, error) {
	if fanID == "" || creatorID == "" {
		return Decision{}, errors.New("fan ID and creator ID are required")
	}

	sub, err := g.store.GetSubscription(ctx, fanID, creatorID)
	switch {
	case err == nil:
		if sub.ActiveAt(g.now()) {
			return Decision{Allowed: true, Reason: ReasonSubscription}, nil
		}
		g.logger.Info("subscription lapsed",
			"fan_id", fanID,
			"creator_id", creatorID,
			"status", sub.Status,
		)
		return Decision{Allowed: false, Reason: ReasonPaymentNeeded}, nil
	case errors.Is(err, ErrNoAccess):
		// No record at all, fall through to the free allowance.
	default:
		return Decision{}, fmt.Errorf("loading subscription: %w", err)
	}

	used, err := g.store.ConsumeFreeQuestion(ctx, fanID, creatorID)
	if err != nil {
		return Decision{}, fmt.Errorf("consuming free question: %w", err)
	}
	if used > g.limit {
		g.logger.Info("free allowance exhausted",
			"fan_id", fanID,
			"creator_id", creatorID,
			"used", used,
		)
		return Decision{Allowed: false, Reason: ReasonPaymentNeeded}, nil
	}
	return Decision{Allowed: true, Reason: ReasonFreeQuestion, FreeRemaining: g.limit - used}, nil
}
