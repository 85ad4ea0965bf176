package postgres

import (
	"context"
	"time"

	"warden/internal/domain/entity"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/domain/repository"
	"warden/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const hoursPerDay = 24

// refreshTokenRepository implements the domain.RefreshTokenRepository interface.
type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository is the constructor for refreshTokenRepository.
func NewRefreshTokenRepository(db *gorm.DB) repository.RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// Create persists a new refresh token record expiring ttlDays after now.
func (repo *refreshTokenRepository) Create(ctx context.Context, token string, userID uuid.UUID, ttlDays int, now time.Time) (*entity.RefreshToken, error) {
	tokenM := &model.RefreshTokenModel{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(time.Duration(ttlDays) * hoursPerDay * time.Hour),
		CreatedAt: now,
	}

	if err := repo.db.WithContext(ctx).Create(tokenM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return nil, domainerrors.NewDatabaseExecuteError(err, "refresh token already stored")
		}
		if isForeignKeyConstraintViolation(err) {
			return nil, domainerrors.NewDatabaseExecuteError(err, "invalid user reference")
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to create refresh token")
	}

	return toRefreshTokenDomain(tokenM), nil
}

// FindByToken retrieves a refresh token record by its value.
func (repo *refreshTokenRepository) FindByToken(ctx context.Context, token string) (*entity.RefreshToken, error) {
	var tokenM model.RefreshTokenModel
	if err := repo.db.WithContext(ctx).Where("token = ?", token).First(&tokenM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRefreshTokenNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find refresh token")
	}

	return toRefreshTokenDomain(&tokenM), nil
}

func (repo *refreshTokenRepository) Exists(ctx context.Context, token string) (bool, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&model.RefreshTokenModel{}).Where("token = ?", token).Count(&count).Error
	if err != nil {
		return false, domainerrors.NewDatabaseExecuteError(err, "failed to check refresh token")
	}

	return count > 0, nil
}

// IsExpired reports true for an absent record as well as for one past its expiry.
func (repo *refreshTokenRepository) IsExpired(ctx context.Context, token string, now time.Time) (bool, error) {
	record, err := repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return true, nil
		}

		return false, err
	}

	return record.IsExpired(now), nil
}

// DeleteByToken removes the record for token and returns how many rows went away.
func (repo *refreshTokenRepository) DeleteByToken(ctx context.Context, token string) (int64, error) {
	result := repo.db.WithContext(ctx).Where("token = ?", token).Delete(&model.RefreshTokenModel{})
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete refresh token")
	}

	return result.RowsAffected, nil
}

// DeleteByUserID removes every refresh token of a user.
func (repo *refreshTokenRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := repo.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.RefreshTokenModel{})
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete user refresh tokens")
	}

	return result.RowsAffected, nil
}

// DeleteExpired removes every record whose expiry lies before now.
func (repo *refreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := repo.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&model.RefreshTokenModel{})
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete expired refresh tokens")
	}

	return result.RowsAffected, nil
}

func toRefreshTokenDomain(data *model.RefreshTokenModel) *entity.RefreshToken {
	return &entity.RefreshToken{
		ID:        data.ID,
		UserID:    data.UserID,
		Token:     data.Token,
		ExpiresAt: data.ExpiresAt,
		CreatedAt: data.CreatedAt,
	}
}
