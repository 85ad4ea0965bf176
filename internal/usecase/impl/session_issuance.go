package impl

import (
	"context"
	"log/slog"
	"time"

	"warden/internal/domain/entity"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/domain/repository"
	"warden/internal/domain/service"
	"warden/internal/usecase"

	"github.com/pkg/errors"
)

// issueSession mints an access and refresh pair for user and persists the
// refresh record with the codec's refresh lifetime, both computed from now.
func (srv *authService) issueSession(
	ctx context.Context,
	refreshRepo repository.RefreshTokenRepository,
	user *entity.User,
	now time.Time,
) (*usecase.SessionOutput, error) {
	accessToken, err := srv.tokenService.Mint(service.TokenKindAccess, user.ID, now)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrInternalServer, err.Error())
	}

	refreshToken, err := srv.tokenService.Mint(service.TokenKindRefresh, user.ID, now)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrInternalServer, err.Error())
	}

	if _, err := refreshRepo.Create(ctx, refreshToken, user.ID, srv.tokenService.RefreshTTLDays(), now); err != nil {
		return nil, errors.Wrap(err, "failed to persist refresh token")
	}

	return &usecase.SessionOutput{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Principal:    user,
		IssuedAt:     now,
	}, nil
}

// SignIn verifies credentials and issues a new session. Every credential
// failure is reported as the same Unauthorized error.
func (srv *authService) SignIn(ctx context.Context, input *usecase.SignInInput) (*usecase.SessionOutput, error) {
	logger := srv.log(ctx)

	user, err := srv.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrUnauthorized, "no principal for email")
		}

		return nil, errors.Wrap(err, "failed to find user by email")
	}

	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		return nil, errors.Wrapf(domainerrors.ErrUnauthorized, "password mismatch for user %s", user.ID)
	}

	if !user.EmailVerified {
		return nil, errors.Wrapf(domainerrors.ErrUnauthorized, "email not verified for user %s", user.ID)
	}

	if input.PresentedRefreshToken != "" {
		srv.replacePresentedToken(ctx, user, input.PresentedRefreshToken)
	}

	session, err := srv.issueSession(ctx, srv.refreshTokenRepo, user, srv.now())
	if err != nil {
		return nil, err
	}

	logger.Info("User signed in", slog.String("user_id", user.ID.String()))

	return session, nil
}

// replacePresentedToken retires the refresh token a client still held when it
// signed in again. A token owned by someone else wipes every session of the
// principal signing in. Failures are logged and never block the signin.
func (srv *authService) replacePresentedToken(ctx context.Context, user *entity.User, presented string) {
	logger := srv.log(ctx)

	record, err := srv.refreshTokenRepo.FindByToken(ctx, presented)
	if err != nil {
		if !errors.Is(err, repository.ErrRefreshTokenNotFound) {
			logger.Error("Failed to look up presented refresh token", slog.Any("error", err))
		}

		return
	}

	if record.UserID != user.ID {
		logger.Warn("Presented refresh token belongs to another principal, revoking all sessions",
			slog.String("user_id", user.ID.String()),
		)
		if _, err := srv.refreshTokenRepo.DeleteByUserID(ctx, user.ID); err != nil {
			logger.Error("Failed to revoke sessions", slog.String("user_id", user.ID.String()), slog.Any("error", err))
		}

		return
	}

	if _, err := srv.refreshTokenRepo.DeleteByToken(ctx, presented); err != nil {
		logger.Error("Failed to delete replaced refresh token", slog.Any("error", err))
	}
}
