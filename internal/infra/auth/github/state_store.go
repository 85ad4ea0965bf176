package github

import (
	"context"
	"sync"
	"time"

	"warden/config"
	"warden/internal/errors"

	"github.com/redis/go-redis/v9"
)

const stateKeySegment = "oauth:github:state:"

// StateStore keeps issued OAuth states until they are consumed or expire.
type StateStore interface {
	Save(ctx context.Context, state string, ttl time.Duration) error
	// Consume deletes state and reports whether it was present and unexpired.
	Consume(ctx context.Context, state string) (bool, error)
}

// NewStateStore shares states through Redis when a client is configured.
func NewStateStore(cfg *config.Config, client *redis.Client) StateStore {
	if client == nil || cfg.Redis == nil {
		return newMemoryStateStore(time.Now)
	}

	return &redisStateStore{
		client: client,
		prefix: cfg.Redis.KeyPrefix + ":" + stateKeySegment,
	}
}

// maxPendingStates caps in-process states; beyond it the oldest are evicted.
const maxPendingStates = 10000

type pendingState struct {
	state  string
	expiry time.Time
}

// memoryStateStore keeps states in issue order. All states share one TTL, so
// the front of order is always the next to expire.
type memoryStateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	order  []pendingState
	limit  int
	now    func() time.Time
}

func newMemoryStateStore(now func() time.Time) *memoryStateStore {
	return &memoryStateStore{
		states: make(map[string]time.Time),
		limit:  maxPendingStates,
		now:    now,
	}
}

func (s *memoryStateStore) Save(_ context.Context, state string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for len(s.order) > 0 && !now.Before(s.order[0].expiry) {
		s.popOldestLocked()
	}
	for len(s.order) >= s.limit {
		s.popOldestLocked()
	}

	expiry := now.Add(ttl)
	s.states[state] = expiry
	s.order = append(s.order, pendingState{state: state, expiry: expiry})

	return nil
}

// popOldestLocked drops the front of order and its state unless that state
// was already consumed.
func (s *memoryStateStore) popOldestLocked() {
	oldest := s.order[0]
	s.order[0] = pendingState{}
	s.order = s.order[1:]
	if expiry, ok := s.states[oldest.state]; ok && expiry.Equal(oldest.expiry) {
		delete(s.states, oldest.state)
	}
}

func (s *memoryStateStore) Consume(_ context.Context, state string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, exists := s.states[state]
	if !exists {
		return false, nil
	}
	delete(s.states, state)

	return s.now().Before(expiry), nil
}

type redisStateStore struct {
	client *redis.Client
	prefix string
}

func (s *redisStateStore) Save(ctx context.Context, state string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+state, 1, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to save oauth state")
	}

	return nil
}

// Consume uses GETDEL so two callbacks racing on one state cannot both win.
func (s *redisStateStore) Consume(ctx context.Context, state string) (bool, error) {
	err := s.client.GetDel(ctx, s.prefix+state).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to consume oauth state")
	}

	return true, nil
}
