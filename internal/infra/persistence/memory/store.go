// Package memory is a process-local implementation of the repository contracts.
// It backs unit tests and local runs without PostgreSQL.
package memory

import (
	"context"
	"sync"

	"warden/internal/domain/entity"
	"warden/internal/domain/repository"

	"github.com/google/uuid"
)

// Store holds every table in maps guarded by one mutex. Transactions are
// serialized with each other. A failed transaction restores only the rows it
// wrote, so writes made outside it stay in place.
type Store struct {
	mu     sync.Mutex
	users  map[uuid.UUID]entity.User
	auths  map[authKey]entity.Authentication
	tokens map[string]entity.RefreshToken

	failures map[string]error

	txMu sync.Mutex
}

type authKey struct {
	provider       entity.ProviderType
	providerUserID string
}

// undoLog remembers the pre-transaction value of every row a transaction
// touched. A nil entry means the row did not exist. A nil *undoLog records
// nothing, which is how non-transactional repositories use it.
type undoLog struct {
	users  map[uuid.UUID]*entity.User
	auths  map[authKey]*entity.Authentication
	tokens map[string]*entity.RefreshToken
}

func newUndoLog() *undoLog {
	return &undoLog{
		users:  make(map[uuid.UUID]*entity.User),
		auths:  make(map[authKey]*entity.Authentication),
		tokens: make(map[string]*entity.RefreshToken),
	}
}

// The note methods must be called with s.mu held, before the write.
func (l *undoLog) noteUser(s *Store, id uuid.UUID) {
	if l == nil {
		return
	}
	if _, seen := l.users[id]; seen {
		return
	}
	if prev, ok := s.users[id]; ok {
		l.users[id] = &prev
	} else {
		l.users[id] = nil
	}
}

func (l *undoLog) noteAuth(s *Store, key authKey) {
	if l == nil {
		return
	}
	if _, seen := l.auths[key]; seen {
		return
	}
	if prev, ok := s.auths[key]; ok {
		l.auths[key] = &prev
	} else {
		l.auths[key] = nil
	}
}

func (l *undoLog) noteToken(s *Store, value string) {
	if l == nil {
		return
	}
	if _, seen := l.tokens[value]; seen {
		return
	}
	if prev, ok := s.tokens[value]; ok {
		l.tokens[value] = &prev
	} else {
		l.tokens[value] = nil
	}
}

// restoreLocked must be called with s.mu held.
func (l *undoLog) restoreLocked(s *Store) {
	for id, prev := range l.users {
		if prev == nil {
			delete(s.users, id)
		} else {
			s.users[id] = *prev
		}
	}
	for key, prev := range l.auths {
		if prev == nil {
			delete(s.auths, key)
		} else {
			s.auths[key] = *prev
		}
	}
	for value, prev := range l.tokens {
		if prev == nil {
			delete(s.tokens, value)
		} else {
			s.tokens[value] = *prev
		}
	}
}

// txFactory hands out repositories that journal their writes into undo.
type txFactory struct {
	store *Store
	undo  *undoLog
}

func (f *txFactory) UserRepo() repository.UserRepository {
	return &userRepository{store: f.store, undo: f.undo}
}

func (f *txFactory) AuthRepo() repository.AuthRepository {
	return &authRepository{store: f.store, undo: f.undo}
}

func (f *txFactory) RefreshTokenRepo() repository.RefreshTokenRepository {
	return &refreshTokenRepository{store: f.store, undo: f.undo}
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[uuid.UUID]entity.User),
		auths:    make(map[authKey]entity.Authentication),
		tokens:   make(map[string]entity.RefreshToken),
		failures: make(map[string]error),
	}
}

// Operation names accepted by FailOn.
const (
	OpUserCreate           = "user.create"
	OpUserFindByEmail      = "user.findByEmail"
	OpTokenCreate          = "token.create"
	OpTokenDeleteByToken   = "token.deleteByToken"
	OpTokenDeleteExpired   = "token.deleteExpired"
	OpAuthCreate           = "auth.create"
	OpTransactionExecution = "tx.execute"
)

// FailOn makes every later call of op return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.failures, op)

		return
	}
	s.failures[op] = err
}

// failure must be called with s.mu held.
func (s *Store) failure(op string) error {
	return s.failures[op]
}

func (s *Store) UserRepo() repository.UserRepository {
	return &userRepository{store: s}
}

func (s *Store) AuthRepo() repository.AuthRepository {
	return &authRepository{store: s}
}

func (s *Store) RefreshTokenRepo() repository.RefreshTokenRepository {
	return &refreshTokenRepository{store: s}
}

// Execute runs fn with a journaling repository factory.
func (s *Store) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	if err := s.failure(OpTransactionExecution); err != nil {
		s.mu.Unlock()

		return err
	}
	s.mu.Unlock()

	undo := newUndoLog()
	if err := fn(&txFactory{store: s, undo: undo}); err != nil {
		s.mu.Lock()
		undo.restoreLocked(s)
		s.mu.Unlock()

		return err
	}

	return nil
}

// RefreshTokens returns a copy of every stored refresh token record.
func (s *Store) RefreshTokens() []entity.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entity.RefreshToken, 0, len(s.tokens))
	for _, token := range s.tokens {
		out = append(out, token)
	}

	return out
}

// Users returns a copy of every stored user, soft-deleted ones included.
func (s *Store) Users() []entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entity.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}

	return out
}

// PutUser stores user as-is, bypassing uniqueness checks.
func (s *Store) PutUser(user entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.ID] = user
}

var (
	_ repository.TransactionManager = (*Store)(nil)
	_ repository.RepositoryFactory  = (*Store)(nil)
	_ repository.RepositoryFactory  = (*txFactory)(nil)
)
