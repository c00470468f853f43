package domain

import (
	"testing"
	"time"
)

func TestEventPrice(t *testing.T) {
	form := &SubscriptionForm{
		ID: "f1",
		Fields: []FormField{
			{
				ID:   "meal",
				Type: "choice",
				Choices: []FormChoice{
					{Value: "standard", PriceDelta: 0},
					{Value: "deluxe", PriceDelta: 500},
					{Value: "reduced", PriceDelta: -800},
				},
			},
			{
				ID:   "name",
				Type: "text",
			},
		},
	}

	tests := []struct {
		name  string
		event *Event
		data  map[string]string
		want  int64
	}{
		{
			name:  "free event prices to zero",
			event: &Event{},
			data:  map[string]string{"meal": "deluxe"},
			want:  0,
		},
		{
			name:  "base price without a form",
			event: &Event{Payment: &PaymentParameters{BasePrice: 1000}},
			want:  1000,
		},
		{
			name:  "choice delta is added",
			event: &Event{Payment: &PaymentParameters{BasePrice: 1000}, SubscriptionForm: form},
			data:  map[string]string{"meal": "deluxe"},
			want:  1500,
		},
		{
			name:  "unselected fields contribute nothing",
			event: &Event{Payment: &PaymentParameters{BasePrice: 1000}, SubscriptionForm: form},
			data:  map[string]string{"name": "Ada"},
			want:  1000,
		},
		{
			name:  "unknown choice value contributes nothing",
			event: &Event{Payment: &PaymentParameters{BasePrice: 1000}, SubscriptionForm: form},
			data:  map[string]string{"meal": "nonexistent"},
			want:  1000,
		},
		{
			name:  "price is clamped at zero",
			event: &Event{Payment: &PaymentParameters{BasePrice: 500}, SubscriptionForm: form},
			data:  map[string]string{"meal": "reduced"},
			want:  0,
		},
		{
			name:  "nil data",
			event: &Event{Payment: &PaymentParameters{BasePrice: 1000}, SubscriptionForm: form},
			data:  nil,
			want:  1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Price(tt.data); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestEventIsPast(t *testing.T) {
	now := time.Now()
	ev := &Event{EndTime: now.Add(-time.Minute)}
	if !ev.IsPast(now) {
		t.Fatalf("expected past event")
	}
	ev.EndTime = now.Add(time.Minute)
	if ev.IsPast(now) {
		t.Fatalf("expected upcoming event")
	}
}

func TestRSVPIsParticipating(t *testing.T) {
	tests := []struct {
		status RSVPStatus
		want   bool
	}{
		{RSVPStatusConfirmed, true},
		{RSVPStatusAwaitingPayment, true},
		{RSVPStatusCanceled, false},
	}
	for _, tt := range tests {
		rsvp := &RSVP{Status: tt.status}
		if got := rsvp.IsParticipating(); got != tt.want {
			t.Fatalf("%s: expected %v, got %v", tt.status, tt.want, got)
		}
	}
}
