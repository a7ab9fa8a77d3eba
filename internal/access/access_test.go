package access

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	sub        Subscription
	subErr     error
	used       int
	consumeErr error
	consumed   int
}

func (f *fakeStore) GetSubscription(_ context.Context, _, _ string) (Subscription, error) {
	if f.subErr != nil {
		return Subscription{}, f.subErr
	}
	return f.sub, nil
}

func (f *fakeStore) ConsumeFreeQuestion(_ context.Context, _, _ string) (int, error) {
	if f.consumeErr != nil {
		return 0, f.consumeErr
	}
	f.used++
	f.consumed++
	return f.used, nil
}

func newTestGate(t *testing.T, store Store, at time.Time) *Gate {
	t.Helper()
	g, err := NewGate(store, 0, nil)
	if err != nil {
		t.Fatalf("NewGate() error = %v", err)
	}
	g.now = func() time.Time { return at }
	return g
}

func TestSubscriptionActiveAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		sub  Subscription
		want bool
	}{
		{name: "active, never expires", sub: Subscription{Status: StatusActive}, want: true},
		{name: "active, expires later", sub: Subscription{Status: StatusActive, ExpiresAt: &future}, want: true},
		{name: "active, already expired", sub: Subscription{Status: StatusActive, ExpiresAt: &past}, want: false},
		{name: "expiring exactly now is expired", sub: Subscription{Status: StatusActive, ExpiresAt: &now}, want: false},
		{name: "cancelled, never expires", sub: Subscription{Status: "cancelled"}, want: false},
		{name: "empty status", sub: Subscription{ExpiresAt: &future}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.ActiveAt(now); got != tt.want {
				t.Errorf("ActiveAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckSubscriberBypassesQuota(t *testing.T) {
	now := time.Now()
	store := &fakeStore{sub: Subscription{Status: StatusActive}}
	g := newTestGate(t, store, now)

	d, err := g.Check(context.Background(), "fan-1", "creator-1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !d.Allowed || d.Reason != ReasonSubscription {
		t.Errorf("decision = %+v, want allowed subscription", d)
	}
	if store.consumed != 0 {
		t.Error("subscriber check must not consume free questions")
	}
}

func TestCheckFreeAllowance(t *testing.T) {
	now := time.Now()
	store := &fakeStore{subErr: ErrNoAccess}
	g := newTestGate(t, store, now)
	ctx := context.Background()

	for i := 1; i <= FreeQuestionLimit; i++ {
		d, err := g.Check(ctx, "fan-1", "creator-1")
		if err != nil {
			t.Fatalf("Check() #%d error = %v", i, err)
		}
		if !d.Allowed || d.Reason != ReasonFreeQuestion {
			t.Fatalf("Check() #%d = %+v, want allowed free question", i, d)
		}
		if want := FreeQuestionLimit - i; d.FreeRemaining != want {
			t.Errorf("Check() #%d FreeRemaining = %d, want %d", i, d.FreeRemaining, want)
		}
	}

	d, err := g.Check(ctx, "fan-1", "creator-1")
	if err != nil {
		t.Fatalf("Check() after limit error = %v", err)
	}
	if d.Allowed || d.Reason != ReasonPaymentNeeded {
		t.Errorf("decision after limit = %+v, want payment required", d)
	}
}

func TestCheckLapsedSubscriberIsDenied(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)

	tests := []struct {
		name string
		sub  Subscription
	}{
		{name: "active but expired", sub: Subscription{Status: StatusActive, ExpiresAt: &past}},
		{name: "cancelled", sub: Subscription{Status: "cancelled"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{sub: tt.sub}
			g := newTestGate(t, store, now)

			d, err := g.Check(context.Background(), "fan-1", "creator-1")
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if d.Allowed || d.Reason != ReasonPaymentNeeded {
				t.Errorf("decision = %+v, want payment required", d)
			}
			if store.consumed != 0 {
				t.Errorf("consumed %d free questions, want 0; a lapsed subscriber gets no allowance", store.consumed)
			}
		})
	}
}

func TestCheckErrors(t *testing.T) {
	now := time.Now()
	ctx := context.Background()

	t.Run("missing IDs", func(t *testing.T) {
		g := newTestGate(t, &fakeStore{}, now)
		if _, err := g.Check(ctx, "", "creator-1"); err == nil {
			t.Error("Check() without fan ID should fail")
		}
		if _, err := g.Check(ctx, "fan-1", ""); err == nil {
			t.Error("Check() without creator ID should fail")
		}
	})

	t.Run("store failure is not a denial", func(t *testing.T) {
		g := newTestGate(t, &fakeStore{subErr: errors.New("connection refused")}, now)
		if _, err := g.Check(ctx, "fan-1", "creator-1"); err == nil {
			t.Error("Check() should surface store failure, not deny silently")
		}
	})

	t.Run("counter failure surfaces", func(t *testing.T) {
		g := newTestGate(t, &fakeStore{subErr: ErrNoAccess, consumeErr: errors.New("deadlock")}, now)
		if _, err := g.Check(ctx, "fan-1", "creator-1"); err == nil {
			t.Error("Check() should surface counter failure")
		}
	})
}

func TestNewGateValidation(t *testing.T) {
	if _, err := NewGate(nil, 3, nil); err == nil {
		t.Error("NewGate() without store should fail")
	}
	g, err := NewGate(&fakeStore{}, 0, nil)
	if err != nil {
		t.Fatalf("NewGate() error = %v", err)
	}
	if g.limit != FreeQuestionLimit {
		t.Errorf("limit = %d, want default %d", g.limit, FreeQuestionLimit)
	}
}
