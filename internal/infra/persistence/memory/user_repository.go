package memory

import (
	"context"
	"time"

	"warden/internal/domain/entity"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/domain/repository"

	"github.com/google/uuid"
)

type userRepository struct {
	store *Store
	undo  *undoLog
}

func (r *userRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	user, ok := r.store.users[id]
	if !ok || user.DeletedAt != nil {
		return nil, repository.ErrUserNotFound
	}

	return &user, nil
}

func (r *userRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := r.store.failure(OpUserFindByEmail); err != nil {
		return nil, err
	}

	user, ok := r.findLiveLocked(func(u entity.User) bool { return u.Email == email })
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return &user, nil
}

func (r *userRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, ok := r.findLiveLocked(func(u entity.User) bool { return u.Email == email })

	return ok, nil
}

func (r *userRepository) ExistsByName(_ context.Context, name string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, ok := r.findLiveLocked(func(u entity.User) bool { return u.Name == name })

	return ok, nil
}

func (r *userRepository) Create(_ context.Context, user *entity.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := r.store.failure(OpUserCreate); err != nil {
		return err
	}
	if _, ok := r.findLiveLocked(func(u entity.User) bool { return u.Email == user.Email }); ok {
		return domainerrors.ErrConflict.WrapMessage("email already exists")
	}
	if _, ok := r.findLiveLocked(func(u entity.User) bool { return u.Name == user.Name }); ok {
		return domainerrors.ErrConflict.WrapMessage("username already taken")
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	r.undo.noteUser(r.store, user.ID)
	r.store.users[user.ID] = *user

	return nil
}

func (r *userRepository) findLiveLocked(match func(entity.User) bool) (entity.User, bool) {
	for _, user := range r.store.users {
		if user.DeletedAt == nil && match(user) {
			return user, true
		}
	}

	return entity.User{}, false
}
