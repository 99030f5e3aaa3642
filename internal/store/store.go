package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/farzamh/sms-dispatch/internal/domain"
)

// TrackingStore is the single source of truth for message tracking records.
// Records live for the process lifetime and are never deleted; all status
// changes go through Update, which applies the lifecycle transition check
// atomically under the store lock.
type TrackingStore struct {
	mu      sync.RWMutex
	records map[string]*domain.Message
	now     func() time.Time
}

func NewTrackingStore() *TrackingStore {
	return &TrackingStore{
		records: make(map[string]*domain.Message),
		now:     time.Now,
	}
}

// WithClock replaces the store clock. Test hook.
func (s *TrackingStore) WithClock(now func() time.Time) *TrackingStore {
	if now != nil {
		s.now = now
	}
	return s
}

// Create registers a new tracking record in the queued state. The id must be
// process-unique; a collision is rejected with ErrDuplicateID, never
// overwritten.
func (s *TrackingStore) Create(id, recipient, content string) (*domain.Message, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: tracking id is required", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[id]; exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateID, id)
	}

	now := s.now().UTC()
	msg := &domain.Message{
		ID:        id,
		Recipient: recipient,
		Content:   content,
		Status:    domain.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.records[id] = msg

	return snapshot(msg), nil
}

// Update applies a status transition. Illegal transitions (including
// re-updating a terminal record) are tolerated as idempotent no-ops that
// return the record unchanged, because direct dispatch and asynchronous
// polling can race on the same id. errorDetail is recorded only when the
// applied status is failed.
func (s *TrackingStore) Update(id string, status domain.Status, errorDetail string) (*domain.Message, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: invalid status %q", domain.ErrValidation, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg, exists := s.records[id]
	if !exists {
		return nil, fmt.Errorf("%w: message %s", domain.ErrNotFound, id)
	}

	if !msg.Status.CanTransition(status) {
		return snapshot(msg), nil
	}

	msg.Status = status
	msg.UpdatedAt = monotonicAfter(msg.UpdatedAt, s.now().UTC())
	if status == domain.StatusFailed {
		detail := errorDetail
		if strings.TrimSpace(detail) == "" {
			detail = "send failed"
		}
		msg.ErrorDetail = &detail
	} else {
		msg.ErrorDetail = nil
	}

	return snapshot(msg), nil
}

// SetProviderMessageID attaches the provider-assigned identifier to a record.
func (s *TrackingStore) SetProviderMessageID(id, providerMessageID string) error {
	providerMessageID = strings.TrimSpace(providerMessageID)
	if providerMessageID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg, exists := s.records[id]
	if !exists {
		return fmt.Errorf("%w: message %s", domain.ErrNotFound, id)
	}

	msg.ProviderMessageID = &providerMessageID
	return nil
}

func (s *TrackingStore) Get(id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, exists := s.records[id]
	if !exists {
		return nil, fmt.Errorf("%w: message %s", domain.ErrNotFound, id)
	}
	return snapshot(msg), nil
}

// ListAll returns a snapshot of every tracking record, newest CreatedAt
// first. The slice is recomputed per call and safe for the caller to retain.
func (s *TrackingStore) ListAll() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make([]domain.Message, 0, len(s.records))
	for _, msg := range s.records {
		messages = append(messages, *snapshot(msg))
	}

	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID > messages[j].ID
		}
		return messages[i].CreatedAt.After(messages[j].CreatedAt)
	})

	return messages
}

func (s *TrackingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// monotonicAfter keeps UpdatedAt strictly increasing even when the clock
// resolution is coarser than two consecutive transitions.
func monotonicAfter(prev, next time.Time) time.Time {
	if next.After(prev) {
		return next
	}
	return prev.Add(time.Nanosecond)
}

func snapshot(msg *domain.Message) *domain.Message {
	copied := *msg
	if msg.ProviderMessageID != nil {
		v := *msg.ProviderMessageID
		copied.ProviderMessageID = &v
	}
	if msg.ErrorDetail != nil {
		v := *msg.ErrorDetail
		copied.ErrorDetail = &v
	}
	return &copied
}
