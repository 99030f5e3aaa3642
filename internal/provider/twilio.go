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
	twilioBaseURL        = "https://api.twilio.com/2010-04-01"
	defaultTwilioTimeout = 10 * time.Second
)

// Twilio sends messages through the Twilio REST API. Requests are
// form-encoded with basic auth, per the Twilio contract.
type Twilio struct {
	client *resty.Client
	cfg    Config
}

func NewTwilio(cfg Config) (*Twilio, error) {
	client := resty.New()
	client.SetBaseURL(twilioBaseURL)
	client.SetTimeout(defaultTwilioTimeout)
	client.SetRetryCount(0)

	return NewTwilioWithClient(cfg, client)
}

func NewTwilioWithClient(cfg Config, client *resty.Client) (*Twilio, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid twilio config: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultTwilioTimeout)
	}
	client.SetRetryCount(0)
	client.SetBasicAuth(cfg.AccountID, cfg.AuthToken)

	return &Twilio{client: client, cfg: cfg}, nil
}

func (p *Twilio) Name() string { return "twilio" }

type twilioMessageResponse struct {
	Sid          string `json:"sid"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

type twilioErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (p *Twilio) Send(ctx context.Context, recipient, content string) (*SendResult, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   recipient,
			"From": p.cfg.Sender,
			"Body": content,
		}).
		Post(fmt.Sprintf("/Accounts/%s/Messages.json", url.PathEscape(p.cfg.AccountID)))
	if err != nil {
		return nil, &ProviderError{
			Message:  "twilio request failed",
			Rejected: false,
			Cause:    err,
		}
	}

	statusCode := response.StatusCode()
	body := strings.TrimSpace(response.String())

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &ProviderError{
			StatusCode: statusCode,
			Message:    twilioErrorMessage(statusCode, response.Body()),
			Rejected:   true,
		}
	}

	var parsed twilioMessageResponse
	if err := json.Unmarshal(response.Body(), &parsed); err != nil {
		return nil, &ProviderError{
			StatusCode: statusCode,
			Message:    "twilio returned a malformed response",
			Rejected:   false,
			Cause:      err,
		}
	}

	return &SendResult{
		MessageID:  parsed.Sid,
		StatusCode: statusCode,
		Body:       body,
	}, nil
}

func (p *Twilio) CheckStatus(ctx context.Context, providerMessageID string) (domain.Status, error) {
	if strings.TrimSpace(providerMessageID) == "" {
		return "", fmt.Errorf("provider message id is required")
	}

	response, err := p.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/Accounts/%s/Messages/%s.json",
			url.PathEscape(p.cfg.AccountID), url.PathEscape(providerMessageID)))
	if err != nil {
		return "", &ProviderError{Message: "twilio status lookup failed", Cause: err}
	}
	if response.StatusCode() != http.StatusOK {
		return "", &ProviderError{
			StatusCode: response.StatusCode(),
			Message:    twilioErrorMessage(response.StatusCode(), response.Body()),
			Rejected:   true,
		}
	}

	var parsed twilioMessageResponse
	if err := json.Unmarshal(response.Body(), &parsed); err != nil {
		return "", &ProviderError{Message: "twilio returned a malformed response", Cause: err}
	}

	return mapTwilioStatus(parsed.Status)
}

func (p *Twilio) TestConnection(ctx context.Context) error {
	if err := p.cfg.Validate(); err != nil {
		return err
	}

	response, err := p.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/Accounts/%s.json", url.PathEscape(p.cfg.AccountID)))
	if err != nil {
		return &ProviderError{Message: "twilio connection test failed", Cause: err}
	}
	if response.StatusCode() != http.StatusOK {
		return &ProviderError{
			StatusCode: response.StatusCode(),
			Message:    twilioErrorMessage(response.StatusCode(), response.Body()),
			Rejected:   true,
		}
	}

	return nil
}

// mapTwilioStatus folds Twilio's message states onto the tracking lifecycle.
func mapTwilioStatus(status string) (domain.Status, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "queued", "accepted", "scheduled":
		return domain.StatusQueued, nil
	case "sending", "sent":
		return domain.StatusSent, nil
	case "delivered", "read":
		return domain.StatusDelivered, nil
	case "undelivered", "failed", "canceled":
		return domain.StatusFailed, nil
	}
	return "", fmt.Errorf("unrecognized twilio status %q", status)
}

func twilioErrorMessage(statusCode int, body []byte) string {
	var parsed twilioErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && strings.TrimSpace(parsed.Message) != "" {
		return parsed.Message
	}
	return fmt.Sprintf("twilio returned status %d", statusCode)
}

var _ Provider = (*Twilio)(nil)
