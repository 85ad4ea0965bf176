package memory

import (
	"context"
	"time"

	"warden/internal/domain/entity"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type refreshTokenRepository struct {
	store *Store
	undo  *undoLog
}

func (r *refreshTokenRepository) Create(_ context.Context, token string, userID uuid.UUID, ttlDays int, now time.Time) (*entity.RefreshToken, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := r.store.failure(OpTokenCreate); err != nil {
		return nil, err
	}
	if _, ok := r.store.tokens[token]; ok {
		return nil, domainerrors.NewDatabaseExecuteError(errors.New("duplicate token value"), "refresh token already stored")
	}

	record := entity.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(time.Duration(ttlDays) * 24 * time.Hour),
		CreatedAt: now,
	}
	r.undo.noteToken(r.store, token)
	r.store.tokens[token] = record

	return &record, nil
}

func (r *refreshTokenRepository) FindByToken(_ context.Context, token string) (*entity.RefreshToken, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	record, ok := r.store.tokens[token]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}

	return &record, nil
}

func (r *refreshTokenRepository) Exists(_ context.Context, token string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, ok := r.store.tokens[token]

	return ok, nil
}

func (r *refreshTokenRepository) IsExpired(_ context.Context, token string, now time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	record, ok := r.store.tokens[token]
	if !ok {
		return true, nil
	}

	return record.IsExpired(now), nil
}

func (r *refreshTokenRepository) DeleteByToken(_ context.Context, token string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := r.store.failure(OpTokenDeleteByToken); err != nil {
		return 0, err
	}
	if _, ok := r.store.tokens[token]; !ok {
		return 0, nil
	}
	r.undo.noteToken(r.store, token)
	delete(r.store.tokens, token)

	return 1, nil
}

func (r *refreshTokenRepository) DeleteByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var n int64
	for value, record := range r.store.tokens {
		if record.UserID == userID {
			r.undo.noteToken(r.store, value)
			delete(r.store.tokens, value)
			n++
		}
	}

	return n, nil
}

func (r *refreshTokenRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := r.store.failure(OpTokenDeleteExpired); err != nil {
		return 0, err
	}

	var n int64
	for value, record := range r.store.tokens {
		if record.IsExpired(now) {
			r.undo.noteToken(r.store, value)
			delete(r.store.tokens, value)
			n++
		}
	}

	return n, nil
}
