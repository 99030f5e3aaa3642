package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ProviderError classifies provider call failures. Rejected reports whether
// the provider itself turned the message down (bad number, auth failure,
// outage response), as opposed to a transport-level fault that never produced
// a provider verdict.
type ProviderError struct {
	StatusCode int
	Message    string
	Rejected   bool
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "provider error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Detail extracts a human-readable failure reason for the tracking record,
// preferring the provider's own message over transport noise.
func Detail(err error) string {
	if err == nil {
		return ""
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		if msg := strings.TrimSpace(providerErr.Message); msg != "" {
			return msg
		}
	}

	return err.Error()
}

// IsRejection reports whether the provider returned an explicit verdict, as
// opposed to a transport failure worth flagging separately in logs.
func IsRejection(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Rejected
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return false
	}

	return false
}
