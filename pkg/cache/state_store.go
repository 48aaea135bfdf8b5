package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CompanionGuard/pkg/crisis"
)

const stateKeyPrefix = "crisis:conversation:"

// StateStore keeps conversation risk state in a Cache as JSON. Entries
// expire after ttl so abandoned conversations do not pile up.
type StateStore struct {
	cache Cache
	ttl   time.Duration
}

var _ crisis.StateStore = (*StateStore)(nil)

func NewStateStore(c Cache, ttl time.Duration) *StateStore {
	return &StateStore{cache: c, ttl: ttl}
}

func stateKey(conversationID string) string {
	return stateKeyPrefix + conversationID
}

func (s *StateStore) Load(ctx context.Context, conversationID string) (crisis.ConversationRiskState, bool, error) {
	var state crisis.ConversationRiskState
	data, ok, err := s.cache.Get(ctx, stateKey(conversationID))
	if err != nil || !ok {
		return state, false, err
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return crisis.ConversationRiskState{}, false, fmt.Errorf("decode state of %s: %w", conversationID, err)
	}
	return state, true, nil
}

func (s *StateStore) Save(ctx context.Context, conversationID string, state crisis.ConversationRiskState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state of %s: %w", conversationID, err)
	}
	return s.cache.Set(ctx, stateKey(conversationID), data, s.ttl)
}

func (s *StateStore) Delete(ctx context.Context, conversationID string) error {
	return s.cache.Delete(ctx, stateKey(conversationID))
}
