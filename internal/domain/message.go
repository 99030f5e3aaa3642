package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the delivery lifecycle state of a tracked message.
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusSent      Status = "SENT"
	StatusDelivered Status = "DELIVERED"
	StatusFailed    Status = "FAILED"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusQueued, StatusSent, StatusDelivered, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// step. The lifecycle is monotonic: queued precedes sent, sent precedes
// delivered, and failure is reachable from either non-terminal state.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusQueued:
		return next == StatusSent || next == StatusFailed
	case StatusSent:
		return next == StatusDelivered || next == StatusFailed
	}
	return false
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// MaxContentLength is the longest message body accepted for dispatch,
// matching the concatenated-segment limit enforced by SMS providers.
const MaxContentLength = 1600

// Message is the local tracking record for one outbound SMS. Its ID is
// assigned by the tracking store, never by the provider; ProviderMessageID
// holds the provider-side identifier once transmission is accepted.
type Message struct {
	ID                string
	Recipient         string
	Content           string
	Status            Status
	ProviderMessageID *string
	ErrorDetail       *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ValidateSendInput checks a recipient/content pair before any tracking
// record is created.
func ValidateSendInput(recipient, content string) error {
	if strings.TrimSpace(recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}

	if contentLen := len([]rune(content)); contentLen > MaxContentLength {
		return fmt.Errorf("%w: content exceeds %d characters (got %d)", ErrValidation, MaxContentLength, contentLen)
	}

	return nil
}
