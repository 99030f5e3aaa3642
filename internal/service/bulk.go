package service

import (
	"context"
	"sync"

	"github.com/farzamh/sms-dispatch/internal/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BulkReceipt aggregates per-recipient outcomes of one bulk send. Success is
// true iff at least one recipient succeeded: partial success is not total
// failure, since some messages did reach the provider.
type BulkReceipt struct {
	Success     bool
	TrackingIDs []string
	FailedCount int
	ErrorDetail string
}

// BulkSender fans one message body out to many recipients through the
// dispatcher. Sends run sequentially by default to keep the outbound request
// rate polite toward the provider; concurrency is a single knob that never
// changes the aggregation semantics.
type BulkSender struct {
	dispatcher  *Dispatcher
	limiter     ratelimit.RateLimiter
	logger      *zap.Logger
	concurrency int
}

func NewBulkSender(dispatcher *Dispatcher, limiter ratelimit.RateLimiter, logger *zap.Logger) *BulkSender {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BulkSender{
		dispatcher:  dispatcher,
		limiter:     limiter,
		logger:      logger,
		concurrency: 1,
	}
}

// WithConcurrency bounds parallel sends. Values below 2 keep the default
// sequential behavior.
func (b *BulkSender) WithConcurrency(n int) *BulkSender {
	if n > 1 {
		b.concurrency = n
	}
	return b
}

// SendBulk dispatches content to every recipient and folds the outcomes.
// One recipient's failure never aborts the remaining sends.
func (b *BulkSender) SendBulk(ctx context.Context, recipients []string, content string) *BulkReceipt {
	if ctx == nil {
		ctx = context.Background()
	}

	if len(recipients) == 0 {
		return &BulkReceipt{
			Success:     false,
			TrackingIDs: []string{},
			ErrorDetail: "no recipients",
		}
	}

	if b.concurrency > 1 {
		return b.sendBounded(ctx, recipients, content)
	}

	receipt := &BulkReceipt{TrackingIDs: make([]string, 0, len(recipients))}
	for _, recipient := range recipients {
		trackingID, ok := b.sendOne(ctx, recipient, content)
		if ok {
			receipt.TrackingIDs = append(receipt.TrackingIDs, trackingID)
		} else {
			receipt.FailedCount++
		}
	}

	receipt.Success = len(receipt.TrackingIDs) > 0
	return receipt
}

func (b *BulkSender) sendBounded(ctx context.Context, recipients []string, content string) *BulkReceipt {
	var mu sync.Mutex
	receipt := &BulkReceipt{TrackingIDs: make([]string, 0, len(recipients))}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for _, recipient := range recipients {
		recipient := recipient
		g.Go(func() error {
			trackingID, ok := b.sendOne(groupCtx, recipient, content)

			mu.Lock()
			defer mu.Unlock()
			if ok {
				receipt.TrackingIDs = append(receipt.TrackingIDs, trackingID)
			} else {
				receipt.FailedCount++
			}
			// Failures are folded, never propagated, so the group runs the
			// full recipient list.
			return nil
		})
	}
	_ = g.Wait()

	receipt.Success = len(receipt.TrackingIDs) > 0
	return receipt
}

func (b *BulkSender) sendOne(ctx context.Context, recipient, content string) (string, bool) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx, b.dispatcher.ProviderName()); err != nil {
			b.logger.Warn("rate limiter wait failed",
				zap.String("recipient", recipient),
				zap.Error(err),
			)
			return "", false
		}
	}

	result, err := b.dispatcher.Send(ctx, recipient, content)
	if err != nil {
		b.logger.Warn("bulk send rejected before dispatch",
			zap.String("recipient", recipient),
			zap.Error(err),
		)
		return "", false
	}
	if !result.Success {
		return "", false
	}

	return result.TrackingID, true
}
