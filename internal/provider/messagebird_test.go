package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/farzamh/sms-dispatch/internal/domain"
	"github.com/go-resty/resty/v2"
)

func newMessageBirdAgainst(t *testing.T, server *httptest.Server) *MessageBird {
	t.Helper()

	client := resty.New()
	client.SetBaseURL(server.URL)

	p, err := NewMessageBirdWithClient(Config{
		AuthToken: "live_key",
		Sender:    "Farzam",
	}, client)
	if err != nil {
		t.Fatalf("NewMessageBirdWithClient() error = %v", err)
	}
	return p
}

func TestMessageBirdSendSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "AccessKey live_key" {
			t.Errorf("authorization = %q", got)
		}

		var req messageBirdSendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Recipients) != 1 || req.Recipients[0] != "+15551234567" {
			t.Errorf("recipients = %v", req.Recipients)
		}
		if req.Originator != "Farzam" {
			t.Errorf("originator = %s", req.Originator)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"mb-41","recipients":{"items":[{"status":"sent"}]}}`))
	}))
	defer server.Close()

	p := newMessageBirdAgainst(t, server)
	result, err := p.Send(context.Background(), "+15551234567", "hello")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if result.MessageID != "mb-41" {
		t.Fatalf("message id = %s, want mb-41", result.MessageID)
	}
}

func TestMessageBirdSendRejection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":[{"code":9,"description":"no (correct) recipients found"}]}`))
	}))
	defer server.Close()

	p := newMessageBirdAgainst(t, server)
	_, err := p.Send(context.Background(), "bogus", "hello")

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("error type = %T, want *ProviderError", err)
	}
	if !providerErr.Rejected {
		t.Fatal("4xx response should be classified as a rejection")
	}
	if Detail(err) != "no (correct) recipients found" {
		t.Fatalf("Detail() = %q, want error description", Detail(err))
	}
}

func TestMessageBirdCheckStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages/mb-41" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"mb-41","recipients":{"items":[{"status":"delivered"}]}}`))
	}))
	defer server.Close()

	p := newMessageBirdAgainst(t, server)
	got, err := p.CheckStatus(context.Background(), "mb-41")
	if err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}
	if got != domain.StatusDelivered {
		t.Fatalf("CheckStatus() = %s, want DELIVERED", got)
	}
}

func TestMessageBirdTestConnectionBalanceProbe(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/balance" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"payment":"prepaid","amount":10.5}`))
	}))
	defer server.Close()

	p := newMessageBirdAgainst(t, server)
	if err := p.TestConnection(context.Background()); err != nil {
		t.Fatalf("TestConnection() error = %v", err)
	}
}

func TestMessageBirdRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewMessageBird(Config{AuthToken: "", Sender: "Farzam"})
	if err == nil {
		t.Fatal("NewMessageBird() should reject an empty api key before any network call")
	}
}
