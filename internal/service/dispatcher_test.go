package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/farzamh/sms-dispatch/internal/domain"
	"github.com/farzamh/sms-dispatch/internal/provider"
	"github.com/farzamh/sms-dispatch/internal/store"
	"go.uber.org/zap"
)

func TestDispatcherSendSuccess(t *testing.T) {
	t.Parallel()

	trackingStore := store.NewTrackingStore()
	scheduler := &fakeScheduler{}
	providerClient := &fakeProvider{
		sendFn: func(ctx context.Context, recipient, content string) (*provider.SendResult, error) {
			if recipient != "+15551234567" {
				t.Fatalf("recipient = %q", recipient)
			}
			return &provider.SendResult{MessageID: "SM900", StatusCode: 201}, nil
		},
	}

	d, err := NewDispatcher(trackingStore, providerClient, scheduler, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	receipt, err := d.Send(context.Background(), "+15551234567", "hi")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !receipt.Success {
		t.Fatalf("receipt = %+v, want success", receipt)
	}
	if receipt.ProviderMessageID != "SM900" {
		t.Fatalf("provider message id = %q, want SM900", receipt.ProviderMessageID)
	}

	msg, err := trackingStore.Get(receipt.TrackingID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if msg.Status != domain.StatusSent {
		t.Fatalf("status = %s, want SENT immediately after dispatch", msg.Status)
	}
	if msg.ProviderMessageID == nil || *msg.ProviderMessageID != "SM900" {
		t.Fatalf("stored provider message id = %v, want SM900", msg.ProviderMessageID)
	}

	scheduled := scheduler.ids()
	if len(scheduled) != 1 || scheduled[0] != receipt.TrackingID {
		t.Fatalf("scheduled polls = %v, want [%s]", scheduled, receipt.TrackingID)
	}
}

func TestDispatcherSendProviderRejection(t *testing.T) {
	t.Parallel()

	trackingStore := store.NewTrackingStore()
	scheduler := &fakeScheduler{}
	providerClient := &fakeProvider{
		sendFn: func(ctx context.Context, recipient, content string) (*provider.SendResult, error) {
			return nil, &provider.ProviderError{
				StatusCode: 400,
				Message:    "invalid number",
				Rejected:   true,
			}
		},
	}

	d, err := NewDispatcher(trackingStore, providerClient, scheduler, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	receipt, err := d.Send(context.Background(), "+15551234567", "hi")
	if err != nil {
		t.Fatalf("Send() error = %v, provider failures must not propagate", err)
	}
	if receipt.Success {
		t.Fatal("receipt should report failure")
	}
	if receipt.ErrorDetail != "invalid number" {
		t.Fatalf("errorDetail = %q, want provider message", receipt.ErrorDetail)
	}

	msg, err := trackingStore.Get(receipt.TrackingID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if msg.Status != domain.StatusFailed {
		t.Fatalf("status = %s, want FAILED", msg.Status)
	}
	if msg.ErrorDetail == nil || *msg.ErrorDetail != "invalid number" {
		t.Fatalf("stored errorDetail = %v, want invalid number", msg.ErrorDetail)
	}
	if len(scheduler.ids()) != 0 {
		t.Fatal("no poll should be scheduled for a failed send")
	}
}

func TestDispatcherSendTransportFailure(t *testing.T) {
	t.Parallel()

	trackingStore := store.NewTrackingStore()
	providerClient := &fakeProvider{
		sendFn: func(ctx context.Context, recipient, content string) (*provider.SendResult, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}

	d, err := NewDispatcher(trackingStore, providerClient, &fakeScheduler{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	receipt, err := d.Send(context.Background(), "+15551234567", "hi")
	if err != nil {
		t.Fatalf("Send() error = %v, transport failures must not propagate", err)
	}
	if receipt.Success {
		t.Fatal("receipt should report failure")
	}
	if receipt.ErrorDetail != transportFailureDetail {
		t.Fatalf("errorDetail = %q, want generic transport detail", receipt.ErrorDetail)
	}

	msg, err := trackingStore.Get(receipt.TrackingID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if msg.Status != domain.StatusFailed {
		t.Fatalf("status = %s, want FAILED", msg.Status)
	}
}

func TestDispatcherSendInvalidInputCreatesNothing(t *testing.T) {
	t.Parallel()

	trackingStore := store.NewTrackingStore()
	d, err := NewDispatcher(trackingStore, &fakeProvider{}, &fakeScheduler{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	for _, tc := range []struct{ recipient, content string }{
		{"", "hi"},
		{"+15551234567", ""},
		{"   ", "   "},
	} {
		_, err := d.Send(context.Background(), tc.recipient, tc.content)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("Send(%q,%q) error = %v, want ErrValidation", tc.recipient, tc.content, err)
		}
	}

	if trackingStore.Len() != 0 {
		t.Fatalf("store has %d records, want 0 after rejected input", trackingStore.Len())
	}
}

func TestDispatcherSendWithoutProvider(t *testing.T) {
	t.Parallel()

	trackingStore := store.NewTrackingStore()
	d, err := NewDispatcher(trackingStore, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	_, err = d.Send(context.Background(), "+15551234567", "hi")
	if !errors.Is(err, domain.ErrNoProvider) {
		t.Fatalf("Send() error = %v, want ErrNoProvider", err)
	}
	if trackingStore.Len() != 0 {
		t.Fatal("no tracking record should exist when no provider is configured")
	}
}

func TestDispatcherSendSimulatedEndToEnd(t *testing.T) {
	t.Parallel()

	trackingStore := store.NewTrackingStore()
	poller := NewPoller(trackingStore, SimulatedOutcome(func() float64 { return 0.5 }), zap.NewNop()).
		WithDelay(func() time.Duration { return 0 })

	d, err := NewDispatcher(trackingStore, provider.NewSimulated(), poller, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	receipt, err := d.Send(context.Background(), "+15551234567", "hi")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !receipt.Success || receipt.ProviderMessageID == "" {
		t.Fatalf("receipt = %+v, want synchronous success with provider id", receipt)
	}

	poller.WaitIdle()

	msg, err := trackingStore.Get(receipt.TrackingID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if msg.Status != domain.StatusDelivered {
		t.Fatalf("status = %s, want DELIVERED after the poll window", msg.Status)
	}
}
