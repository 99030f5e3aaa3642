package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/farzamh/sms-dispatch/internal/domain"
	"github.com/google/uuid"
)

// Simulated fakes the provider locally so the whole system is demoable
// without credentials or SMS spend. It performs no network I/O; every send
// is accepted with a fabricated message id unless a failure hook says
// otherwise.
type Simulated struct {
	// FailRecipient, when non-empty, deterministically rejects sends to that
	// recipient. Test hook for partial-failure scenarios.
	FailRecipient string

	newID func() string
}

func NewSimulated() *Simulated {
	return &Simulated{
		newID: func() string {
			return "SM" + strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
}

func (p *Simulated) Name() string { return "simulated" }

func (p *Simulated) Send(ctx context.Context, recipient, content string) (*SendResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.FailRecipient != "" && recipient == p.FailRecipient {
		return nil, &ProviderError{
			StatusCode: 400,
			Message:    fmt.Sprintf("simulated rejection for %s", recipient),
			Rejected:   true,
		}
	}

	return &SendResult{
		MessageID:  p.newID(),
		StatusCode: 201,
		Body:       `{"status":"queued"}`,
	}, nil
}

func (p *Simulated) CheckStatus(ctx context.Context, providerMessageID string) (domain.Status, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return domain.StatusDelivered, nil
}

func (p *Simulated) TestConnection(ctx context.Context) error {
	return ctx.Err()
}
