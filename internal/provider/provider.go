package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/farzamh/sms-dispatch/internal/domain"
)

// Provider is the outbound SMS delivery port. Exactly one implementation is
// selected at startup and injected into the dispatcher; ordinary provider
// rejections surface as *ProviderError, never as panics.
type Provider interface {
	// Name identifies the provider for logs and metrics, e.g. "twilio".
	Name() string

	// Send submits one message and returns the provider-side metadata.
	Send(ctx context.Context, recipient, content string) (*SendResult, error)

	// CheckStatus queries delivery state for a previously accepted message.
	CheckStatus(ctx context.Context, providerMessageID string) (domain.Status, error)

	// TestConnection probes the credentials without sending a message.
	TestConnection(ctx context.Context) error
}

// SendResult stores provider call metadata for tracking and audit.
type SendResult struct {
	MessageID  string
	StatusCode int
	Body       string
}

// Config carries the credential material for a live provider. The values are
// opaque to the rest of the system and consumed read-only per call.
type Config struct {
	AccountID string
	AuthToken string
	Sender    string
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.AccountID) == "" {
		return fmt.Errorf("provider account id is required")
	}
	if strings.TrimSpace(c.AuthToken) == "" {
		return fmt.Errorf("provider auth token is required")
	}
	if strings.TrimSpace(c.Sender) == "" {
		return fmt.Errorf("provider sender identity is required")
	}
	return nil
}
