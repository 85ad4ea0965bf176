package memory

import (
	"context"
	"time"

	"warden/internal/domain/entity"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/domain/repository"

	"github.com/google/uuid"
)

type authRepository struct {
	store *Store
	undo  *undoLog
}

func (r *authRepository) CreateAuthentication(_ context.Context, auth *entity.Authentication) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := r.store.failure(OpAuthCreate); err != nil {
		return err
	}

	key := authKey{provider: auth.Provider, providerUserID: auth.ProviderUserID}
	if _, ok := r.store.auths[key]; ok {
		return domainerrors.ErrConflict.WrapMessage("provider account already linked")
	}
	if _, ok := r.store.users[auth.UserID]; !ok {
		return domainerrors.NewDatabaseExecuteError(repository.ErrUserNotFound, "invalid user reference")
	}

	if auth.ID == uuid.Nil {
		auth.ID = uuid.New()
	}
	if auth.CreatedAt.IsZero() {
		auth.CreatedAt = time.Now().UTC()
	}
	r.undo.noteAuth(r.store, key)
	r.store.auths[key] = *auth

	return nil
}

func (r *authRepository) FindAuthentication(_ context.Context, provider entity.ProviderType, providerUserID string) (*entity.Authentication, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	auth, ok := r.store.auths[authKey{provider: provider, providerUserID: providerUserID}]
	if !ok {
		return nil, repository.ErrAuthNotFound
	}

	return &auth, nil
}
