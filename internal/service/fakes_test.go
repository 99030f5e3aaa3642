package service

import (
	"context"
	"sync"

	"github.com/farzamh/sms-dispatch/internal/domain"
	"github.com/farzamh/sms-dispatch/internal/provider"
)

type fakeProvider struct {
	name          string
	sendFn        func(ctx context.Context, recipient, content string) (*provider.SendResult, error)
	checkStatusFn func(ctx context.Context, providerMessageID string) (domain.Status, error)
}

func (f *fakeProvider) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeProvider) Send(ctx context.Context, recipient, content string) (*provider.SendResult, error) {
	if f.sendFn == nil {
		return &provider.SendResult{MessageID: "SM-fake", StatusCode: 201}, nil
	}
	return f.sendFn(ctx, recipient, content)
}

func (f *fakeProvider) CheckStatus(ctx context.Context, providerMessageID string) (domain.Status, error) {
	if f.checkStatusFn == nil {
		return domain.StatusDelivered, nil
	}
	return f.checkStatusFn(ctx, providerMessageID)
}

func (f *fakeProvider) TestConnection(ctx context.Context) error { return nil }

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []string
}

func (f *fakeScheduler) Schedule(trackingID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, trackingID)
}

func (f *fakeScheduler) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scheduled...)
}

type fakeRateLimiter struct {
	mu     sync.Mutex
	waits  []string
	waitFn func(ctx context.Context, key string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, key string) (bool, error) { return true, nil }

func (f *fakeRateLimiter) Wait(ctx context.Context, key string) error {
	f.mu.Lock()
	f.waits = append(f.waits, key)
	f.mu.Unlock()

	if f.waitFn == nil {
		return nil
	}
	return f.waitFn(ctx, key)
}

func (f *fakeRateLimiter) waitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.waits)
}
