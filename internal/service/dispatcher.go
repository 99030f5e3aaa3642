package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/farzamh/sms-dispatch/internal/domain"
	"github.com/farzamh/sms-dispatch/internal/observability"
	"github.com/farzamh/sms-dispatch/internal/provider"
	"github.com/farzamh/sms-dispatch/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const transportFailureDetail = "message could not be handed to the provider"

// Scheduler hands a tracking id to the asynchronous status poller.
type Scheduler interface {
	Schedule(trackingID string)
}

// Receipt is the synchronous outcome of one dispatch. It is available as
// soon as the provider accepts or rejects the message; delivery confirmation
// arrives later through the tracking record.
type Receipt struct {
	Success           bool
	TrackingID        string
	ProviderMessageID string
	ErrorDetail       string
}

// Dispatcher orchestrates a single send: tracking record creation, the
// provider call, the sent/failed transition, and poll scheduling.
type Dispatcher struct {
	store    *store.TrackingStore
	provider provider.Provider
	poller   Scheduler
	logger   *zap.Logger
	metrics  *observability.Metrics

	newID func() string
	now   func() time.Time
}

func NewDispatcher(
	trackingStore *store.TrackingStore,
	smsProvider provider.Provider,
	poller Scheduler,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if trackingStore == nil {
		return nil, fmt.Errorf("tracking store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		store:    trackingStore,
		provider: smsProvider,
		poller:   poller,
		logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// ProviderName exposes the configured provider identity for rate-limit keys
// and logs. Empty when no provider is configured.
func (d *Dispatcher) ProviderName() string {
	if d == nil || d.provider == nil {
		return ""
	}
	return d.provider.Name()
}

// Send dispatches one message. Caller-contract violations (empty input, no
// provider configured) return an error before any tracking record exists;
// provider-side failures are absorbed into the tracking record and reported
// through the receipt, never as an error.
func (d *Dispatcher) Send(ctx context.Context, recipient, content string) (*Receipt, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	recipient = strings.TrimSpace(recipient)
	content = strings.TrimSpace(content)
	if err := domain.ValidateSendInput(recipient, content); err != nil {
		return nil, err
	}
	if d.provider == nil {
		return nil, domain.ErrNoProvider
	}

	trackingID := d.newID()
	if _, err := d.store.Create(trackingID, recipient, content); err != nil {
		return nil, fmt.Errorf("failed to create tracking record: %w", err)
	}

	ctx = observability.WithTrackingID(ctx, trackingID)
	logger := observability.WithContextLogger(d.logger, ctx)

	providerName := d.provider.Name()
	sendStart := d.now()
	result, sendErr := d.provider.Send(ctx, recipient, content)
	d.metrics.ObserveSendDuration(providerName, d.now().Sub(sendStart))

	if sendErr != nil {
		detail := provider.Detail(sendErr)
		reason := "provider_rejected"
		if provider.IsRejection(sendErr) {
			logger.Info("provider rejected message",
				zap.String("provider", providerName),
				zap.String("detail", detail),
			)
		} else {
			// Transport faults never produced a provider verdict; log them
			// loudly even though the caller sees the same failed record.
			reason = "transport_failure"
			detail = transportFailureDetail
			logger.Error("provider call failed in transport",
				zap.String("provider", providerName),
				zap.Error(sendErr),
			)
		}

		if _, err := d.store.Update(trackingID, domain.StatusFailed, detail); err != nil {
			return nil, fmt.Errorf("failed to record send failure: %w", err)
		}
		d.metrics.IncMessageFailed(providerName, reason)

		return &Receipt{
			Success:     false,
			TrackingID:  trackingID,
			ErrorDetail: detail,
		}, nil
	}

	providerMessageID := ""
	if result != nil {
		providerMessageID = strings.TrimSpace(result.MessageID)
	}
	if providerMessageID != "" {
		if err := d.store.SetProviderMessageID(trackingID, providerMessageID); err != nil {
			return nil, fmt.Errorf("failed to set provider message id: %w", err)
		}
	}
	if _, err := d.store.Update(trackingID, domain.StatusSent, ""); err != nil {
		return nil, fmt.Errorf("failed to mark message sent: %w", err)
	}
	d.metrics.IncMessageSent(providerName)

	logger.Info("message sent",
		zap.String("provider", providerName),
		zap.String("providerMessageId", providerMessageID),
	)

	if d.poller != nil {
		d.poller.Schedule(trackingID)
	}

	return &Receipt{
		Success:           true,
		TrackingID:        trackingID,
		ProviderMessageID: providerMessageID,
	}, nil
}
