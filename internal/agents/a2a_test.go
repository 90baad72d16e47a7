package agents

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRiskChannelDeliversOnce(t *testing.T) {
	ch := NewRiskChannel()
	want := &VerificationResult{NodeID: "n", RiskScore: 0.3}
	ch.Send(want)
	ch.Send(&VerificationResult{NodeID: "other", RiskScore: 0.9})

	got, err := ch.Receive(context.Background())
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got.NodeID != "n" || got.RiskScore != 0.3 {
		t.Fatalf("later send overwrote the first: %+v", got)
	}

	if _, err := ch.Receive(context.Background()); !errors.Is(err, ErrNoSignal) {
		t.Fatalf("second receive should report ErrNoSignal, got %v", err)
	}
}

func TestRiskChannelFail(t *testing.T) {
	ch := NewRiskChannel()
	ch.Fail()
	if _, err := ch.Receive(context.Background()); !errors.Is(err, ErrNoSignal) {
		t.Fatalf("expected ErrNoSignal after Fail, got %v", err)
	}
}

func TestRiskChannelContextExpiry(t *testing.T) {
	ch := NewRiskChannel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := ch.Receive(ctx); !errors.Is(err, ErrNoSignal) {
		t.Fatalf("expected ErrNoSignal on expiry, got %v", err)
	}
}
