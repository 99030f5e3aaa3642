package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/farzamh/sms-dispatch/internal/domain"
	"github.com/farzamh/sms-dispatch/internal/observability"
	"github.com/farzamh/sms-dispatch/internal/provider"
	"github.com/farzamh/sms-dispatch/internal/store"
	"go.uber.org/zap"
)

const (
	defaultPollMinDelay = 2 * time.Second
	defaultPollMaxDelay = 5 * time.Second

	// simulatedDeliveredRatio is the fraction of polled sent messages that
	// confirm delivery in simulation; the remainder fail.
	simulatedDeliveredRatio = 0.9

	pollFailureDetail = "delivery failed"
)

// OutcomeFunc resolves the delivery outcome for a message currently in the
// sent state. It returns the next status and, for failures, a detail string.
type OutcomeFunc func(ctx context.Context, msg *domain.Message) (domain.Status, string, error)

// SimulatedOutcome stands in for the provider's delivery-report round trip:
// a weighted coin decides between delivered and failed.
func SimulatedOutcome(randFloat func() float64) OutcomeFunc {
	if randFloat == nil {
		randFloat = rand.Float64
	}
	return func(ctx context.Context, msg *domain.Message) (domain.Status, string, error) {
		if randFloat() < simulatedDeliveredRatio {
			return domain.StatusDelivered, "", nil
		}
		return domain.StatusFailed, pollFailureDetail, nil
	}
}

// LiveOutcome asks the provider's status endpoint for the real verdict.
// Non-terminal answers leave the record as is.
func LiveOutcome(p provider.Provider) OutcomeFunc {
	return func(ctx context.Context, msg *domain.Message) (domain.Status, string, error) {
		if msg.ProviderMessageID == nil {
			return msg.Status, "", nil
		}
		status, err := p.CheckStatus(ctx, *msg.ProviderMessageID)
		if err != nil {
			return "", "", err
		}
		if status == domain.StatusFailed {
			return status, pollFailureDetail, nil
		}
		return status, "", nil
	}
}

// Poller advances sent messages toward a terminal delivery state. Each poll
// is a fire-and-forget task: it runs once after a randomized delay, applies
// one outcome, and is never retried. A message whose poll is lost simply
// stays at sent.
type Poller struct {
	store   *store.TrackingStore
	outcome OutcomeFunc
	logger  *zap.Logger
	metrics *observability.Metrics

	delay func() time.Duration
	sleep func(ctx context.Context, d time.Duration) error

	wg sync.WaitGroup
}

func NewPoller(trackingStore *store.TrackingStore, outcome OutcomeFunc, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Poller{
		store:   trackingStore,
		outcome: outcome,
		logger:  logger,
		delay:   RandomDelay(defaultPollMinDelay, defaultPollMaxDelay),
		sleep:   sleepWithContext,
	}
}

func (p *Poller) SetMetrics(metrics *observability.Metrics) {
	if p == nil {
		return
	}
	p.metrics = metrics
}

// WithDelay replaces the poll delay source. Test hook; a zero-delay variant
// keeps unit tests free of real sleeps.
func (p *Poller) WithDelay(delay func() time.Duration) *Poller {
	if delay != nil {
		p.delay = delay
	}
	return p
}

// Schedule queues one asynchronous poll for the tracking id and returns
// immediately. Redundant scheduling is harmless: a poll that finds its
// record already terminal is a no-op.
func (p *Poller) Schedule(trackingID string) {
	p.metrics.IncPollsInFlight()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.metrics.DecPollsInFlight()

		if err := p.Poll(context.Background(), trackingID); err != nil {
			p.logger.Warn("status poll failed",
				zap.String("trackingId", trackingID),
				zap.Error(err),
			)
		}
	}()
}

// Poll resolves the delivery outcome for one message. Terminal records are
// left untouched; the store drops any transition the poll attempts against
// a record that raced into a terminal state during the delay.
func (p *Poller) Poll(ctx context.Context, trackingID string) error {
	msg, err := p.store.Get(trackingID)
	if err != nil {
		return err
	}
	if msg.Status.IsTerminal() {
		return nil
	}

	if err := p.sleep(ctx, p.delay()); err != nil {
		return err
	}

	msg, err = p.store.Get(trackingID)
	if err != nil {
		return err
	}
	if msg.Status != domain.StatusSent {
		return nil
	}

	next, detail, err := p.outcome(ctx, msg)
	if err != nil {
		return err
	}
	if next == msg.Status {
		return nil
	}

	updated, err := p.store.Update(trackingID, next, detail)
	if err != nil {
		return err
	}

	p.metrics.IncDeliveryOutcome(updated.Status.String())
	p.logger.Debug("delivery status resolved",
		zap.String("trackingId", trackingID),
		zap.String("status", updated.Status.String()),
	)

	return nil
}

// WaitIdle blocks until every scheduled poll has finished. Used by tests and
// shutdown paths.
func (p *Poller) WaitIdle() {
	p.wg.Wait()
}

// RandomDelay returns a delay source that picks a uniform duration
// in [min, max) on every call.
func RandomDelay(min, max time.Duration) func() time.Duration {
	if max <= min {
		return func() time.Duration { return min }
	}
	spread := max - min
	return func() time.Duration {
		return min + time.Duration(rand.Int63n(int64(spread)))
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
