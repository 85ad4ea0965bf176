package impl

import (
	"context"
	"log/slog"

	domainerrors "warden/internal/domain/errors"
	"warden/internal/domain/repository"
	"warden/internal/domain/service"
	"warden/internal/usecase"

	"github.com/pkg/errors"
)

// Refresh rotates a refresh token: the presented value is consumed and a new
// pair is issued. A value can win rotation at most once.
func (srv *authService) Refresh(ctx context.Context, input *usecase.RefreshInput) (*usecase.SessionOutput, error) {
	logger := srv.log(ctx)
	presented := input.RefreshToken

	if presented == "" {
		return nil, errors.Wrap(domainerrors.ErrUnauthorized, "no refresh token presented")
	}

	now := srv.now()

	claims, err := srv.tokenService.Verify(service.TokenKindRefresh, presented, now)
	if err != nil {
		if errors.Is(err, service.ErrTokenExpired) {
			logger.Info("Expired refresh token presented")
		} else {
			logger.Warn("Rejected refresh token", slog.Any("error", err))
		}

		return nil, errors.Wrap(domainerrors.ErrUnauthorized, err.Error())
	}

	record, err := srv.refreshTokenRepo.FindByToken(ctx, presented)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil, errors.Wrapf(domainerrors.ErrUnauthorized, "refresh token for %s not on record", claims.Subject)
		}

		return nil, errors.Wrap(err, "failed to find refresh token")
	}

	if record.UserID != claims.Subject {
		logger.Error("Refresh token subject mismatch",
			slog.String("record_user_id", record.UserID.String()),
			slog.String("claim_user_id", claims.Subject.String()),
		)
		srv.discardToken(ctx, presented)

		return nil, errors.Wrap(domainerrors.ErrUnauthorized, "refresh token subject mismatch")
	}

	if record.IsExpired(now) {
		logger.Info("Refresh token record expired", slog.String("user_id", record.UserID.String()))
		srv.discardToken(ctx, presented)

		return nil, errors.Wrap(domainerrors.ErrUnauthorized, "refresh token record expired")
	}

	user, err := srv.userRepo.FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			srv.discardToken(ctx, presented)

			return nil, errors.Wrap(domainerrors.ErrUnauthorized, "refresh token owner no longer exists")
		}

		return nil, errors.Wrap(err, "failed to load refresh token owner")
	}

	var session *usecase.SessionOutput
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		refreshRepo := repoFactory.RefreshTokenRepo()

		deleted, err := refreshRepo.DeleteByToken(ctx, presented)
		if err != nil {
			return errors.Wrap(err, "failed to consume refresh token")
		}
		if deleted == 0 {
			return errors.Wrap(domainerrors.ErrUnauthorized, "refresh token already rotated")
		}

		session, err = srv.issueSession(ctx, refreshRepo, user, now)

		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Session refreshed", slog.String("user_id", user.ID.String()))

	return session, nil
}

// SignOut revokes the presented refresh token. Whenever a token was presented
// the caller is told to clear credentials, even when the result is Unauthorized.
func (srv *authService) SignOut(ctx context.Context, input *usecase.SignOutInput) (*usecase.SignOutOutput, error) {
	presented := input.RefreshToken
	if presented == "" {
		return &usecase.SignOutOutput{}, errors.Wrap(domainerrors.ErrUnauthorized, "no refresh token presented")
	}

	out := &usecase.SignOutOutput{ClearCredentials: true}

	exists, err := srv.refreshTokenRepo.Exists(ctx, presented)
	if err != nil {
		return out, errors.Wrap(err, "failed to check refresh token")
	}
	if !exists {
		return out, errors.Wrap(domainerrors.ErrUnauthorized, "refresh token not on record")
	}

	srv.discardToken(ctx, presented)
	srv.log(ctx).Info("Session terminated")

	return out, nil
}

// discardToken deletes a refresh record on a best-effort basis.
func (srv *authService) discardToken(ctx context.Context, token string) {
	if _, err := srv.refreshTokenRepo.DeleteByToken(ctx, token); err != nil {
		srv.log(ctx).Error("Failed to delete refresh token", slog.Any("error", err))
	}
}
