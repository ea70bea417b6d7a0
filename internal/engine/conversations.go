// Package engine implements the client-side synchronization core: the
// conversation store, per-conversation timelines with optimistic send and
// reconciliation, and the process-wide unread aggregate.
package engine

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/haggle-app/syncengine/internal/backend"
	"github.com/haggle-app/syncengine/internal/logging"
	"github.com/haggle-app/syncengine/internal/models"
)

// ConversationStore holds the principal's conversation list, most recent
// activity first. Refresh is always a full refetch, never an incremental
// patch: correctness comes from re-deriving the whole list, accepted
// because list sizes in this domain are small.
type ConversationStore struct {
	messaging   backend.Messaging
	principalID string
	logger      zerolog.Logger

	mu            sync.Mutex
	conversations []models.ConversationSummary
	loaded        bool
}

// NewConversationStore creates a store for the principal.
func NewConversationStore(messaging backend.Messaging, principalID string) *ConversationStore {
	return &ConversationStore{
		messaging:   messaging,
		principalID: principalID,
		logger:      logging.Component("conversation-store"),
	}
}

// Refresh replaces the list with a full refetch. On failure the previous
// list is retained and the error returned.
func (s *ConversationStore) Refresh(ctx context.Context) error {
	summaries, err := s.messaging.ListConversations(ctx, s.principalID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conversations = summaries
	s.loaded = true
	s.mu.Unlock()

	return nil
}

// SilentRefresh refetches without surfacing failure: the error is logged
// and the previous list kept. This is the resilience fallback against
// missed push events.
func (s *ConversationStore) SilentRefresh(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("silent conversation refresh failed")
	}
}

// Conversations returns a copy of the current list.
func (s *ConversationStore) Conversations() []models.ConversationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.ConversationSummary, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// UnreadSum returns the sum of per-conversation unread counts.
func (s *ConversationStore) UnreadSum() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := 0
	for _, conv := range s.conversations {
		sum += conv.UnreadCount
	}
	return sum
}

// Loaded reports whether an initial refresh has completed.
func (s *ConversationStore) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}
