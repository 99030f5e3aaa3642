package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/farzamh/sms-dispatch/internal/domain"
	"github.com/go-resty/resty/v2"
)

const (
	messageBirdBaseURL        = "https://rest.messagebird.com"
	defaultMessageBirdTimeout = 10 * time.Second
)

// MessageBird sends messages through the MessageBird REST API. Requests are
// JSON with AccessKey header auth. Only the API key and originator are used;
// the account id field of Config is ignored by this provider.
type MessageBird struct {
	client *resty.Client
	cfg    Config
}

func NewMessageBird(cfg Config) (*MessageBird, error) {
	client := resty.New()
	client.SetBaseURL(messageBirdBaseURL)
	client.SetTimeout(defaultMessageBirdTimeout)
	client.SetRetryCount(0)

	return NewMessageBirdWithClient(cfg, client)
}

func NewMessageBirdWithClient(cfg Config, client *resty.Client) (*MessageBird, error) {
	if strings.TrimSpace(cfg.AuthToken) == "" {
		return nil, fmt.Errorf("invalid messagebird config: api key is required")
	}
	if strings.TrimSpace(cfg.Sender) == "" {
		return nil, fmt.Errorf("invalid messagebird config: originator is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultMessageBirdTimeout)
	}
	client.SetRetryCount(0)
	client.SetHeader("Authorization", "AccessKey "+cfg.AuthToken)

	return &MessageBird{client: client, cfg: cfg}, nil
}

func (p *MessageBird) Name() string { return "messagebird" }

type messageBirdSendRequest struct {
	Recipients []string `json:"recipients"`
	Originator string   `json:"originator"`
	Body       string   `json:"body"`
}

type messageBirdMessageResponse struct {
	ID         string `json:"id"`
	Recipients struct {
		Items []struct {
			Status string `json:"status"`
		} `json:"items"`
	} `json:"recipients"`
}

type messageBirdErrorResponse struct {
	Errors []struct {
		Code        int    `json:"code"`
		Description string `json:"description"`
	} `json:"errors"`
}

func (p *MessageBird) Send(ctx context.Context, recipient, content string) (*SendResult, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(messageBirdSendRequest{
			Recipients: []string{recipient},
			Originator: p.cfg.Sender,
			Body:       content,
		}).
		Post("/messages")
	if err != nil {
		return nil, &ProviderError{
			Message:  "messagebird request failed",
			Rejected: false,
			Cause:    err,
		}
	}

	statusCode := response.StatusCode()
	body := strings.TrimSpace(response.String())

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &ProviderError{
			StatusCode: statusCode,
			Message:    messageBirdErrorMessage(statusCode, response.Body()),
			Rejected:   true,
		}
	}

	var parsed messageBirdMessageResponse
	if err := json.Unmarshal(response.Body(), &parsed); err != nil {
		return nil, &ProviderError{
			StatusCode: statusCode,
			Message:    "messagebird returned a malformed response",
			Rejected:   false,
			Cause:      err,
		}
	}

	return &SendResult{
		MessageID:  parsed.ID,
		StatusCode: statusCode,
		Body:       body,
	}, nil
}

func (p *MessageBird) CheckStatus(ctx context.Context, providerMessageID string) (domain.Status, error) {
	if strings.TrimSpace(providerMessageID) == "" {
		return "", fmt.Errorf("provider message id is required")
	}

	response, err := p.client.R().
		SetContext(ctx).
		Get("/messages/" + url.PathEscape(providerMessageID))
	if err != nil {
		return "", &ProviderError{Message: "messagebird status lookup failed", Cause: err}
	}
	if response.StatusCode() != http.StatusOK {
		return "", &ProviderError{
			StatusCode: response.StatusCode(),
			Message:    messageBirdErrorMessage(response.StatusCode(), response.Body()),
			Rejected:   true,
		}
	}

	var parsed messageBirdMessageResponse
	if err := json.Unmarshal(response.Body(), &parsed); err != nil {
		return "", &ProviderError{Message: "messagebird returned a malformed response", Cause: err}
	}
	if len(parsed.Recipients.Items) == 0 {
		return "", &ProviderError{Message: "messagebird response has no recipients"}
	}

	return mapMessageBirdStatus(parsed.Recipients.Items[0].Status)
}

// TestConnection probes the balance endpoint, the cheapest authenticated call.
func (p *MessageBird) TestConnection(ctx context.Context) error {
	if strings.TrimSpace(p.cfg.AuthToken) == "" {
		return fmt.Errorf("messagebird api key is required")
	}

	response, err := p.client.R().
		SetContext(ctx).
		Get("/balance")
	if err != nil {
		return &ProviderError{Message: "messagebird connection test failed", Cause: err}
	}
	if response.StatusCode() != http.StatusOK {
		return &ProviderError{
			StatusCode: response.StatusCode(),
			Message:    messageBirdErrorMessage(response.StatusCode(), response.Body()),
			Rejected:   true,
		}
	}

	return nil
}

func mapMessageBirdStatus(status string) (domain.Status, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "scheduled", "buffered":
		return domain.StatusQueued, nil
	case "sent":
		return domain.StatusSent, nil
	case "delivered":
		return domain.StatusDelivered, nil
	case "delivery_failed", "expired":
		return domain.StatusFailed, nil
	}
	return "", fmt.Errorf("unrecognized messagebird status %q", status)
}

func messageBirdErrorMessage(statusCode int, body []byte) string {
	var parsed messageBirdErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Errors) > 0 {
		if desc := strings.TrimSpace(parsed.Errors[0].Description); desc != "" {
			return desc
		}
	}
	return fmt.Sprintf("messagebird returned status %d", statusCode)
}

var _ Provider = (*MessageBird)(nil)
