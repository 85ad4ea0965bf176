package impl

import (
	"context"
	"fmt"
	"log/slog"

	"warden/internal/domain/constants"
	"warden/internal/domain/entity"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/domain/repository"
	"warden/internal/domain/service"
	"warden/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// GitHubAuthorizationURL returns the GitHub consent URL with a fresh state.
func (srv *authService) GitHubAuthorizationURL(ctx context.Context) (string, error) {
	authURL, err := srv.oauthService.AuthorizationURL(ctx)
	if err != nil {
		return "", errors.Wrap(domainerrors.ErrInternalServer, err.Error())
	}

	return authURL, nil
}

// GitHubCallback completes the authorization code flow and issues a session
// for the linked principal, creating one on first login.
func (srv *authService) GitHubCallback(ctx context.Context, input *usecase.GitHubCallbackInput) (*usecase.SessionOutput, error) {
	logger := srv.log(ctx)

	if err := srv.oauthService.ValidateState(ctx, input.State); err != nil {
		return nil, errors.Wrapf(domainerrors.ErrUnauthorized, "github state: %v", err)
	}
	if input.Code == "" {
		return nil, errors.Wrap(domainerrors.ErrUnauthorized, "github callback without code")
	}

	providerToken, err := srv.oauthService.ExchangeCode(ctx, input.Code)
	if err != nil {
		return nil, errors.Wrapf(domainerrors.ErrUnauthorized, "github code exchange: %v", err)
	}

	identity, err := srv.oauthService.FetchIdentity(ctx, providerToken)
	if err != nil {
		return nil, errors.Wrapf(domainerrors.ErrUnauthorized, "github identity: %v", err)
	}

	now := srv.now()
	var session *usecase.SessionOutput

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		user, err := srv.resolveOAuthUser(ctx, repoFactory, identity)
		if err != nil {
			return err
		}

		session, err = srv.issueSession(ctx, repoFactory.RefreshTokenRepo(), user, now)

		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("User signed in with GitHub",
		slog.String("user_id", session.Principal.ID.String()),
		slog.String("login", identity.Login),
	)

	return session, nil
}

// resolveOAuthUser follows the provider link, or creates a verified,
// password-less principal and links it when this account is new.
func (srv *authService) resolveOAuthUser(
	ctx context.Context,
	repoFactory repository.RepositoryFactory,
	identity *service.OAuthUser,
) (*entity.User, error) {
	userRepo := repoFactory.UserRepo()
	authRepo := repoFactory.AuthRepo()

	link, err := authRepo.FindAuthentication(ctx, identity.Provider, identity.ID)
	switch {
	case err == nil:
		user, err := userRepo.FindByID(ctx, link.UserID)
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrapf(domainerrors.ErrUnauthorized, "linked user %s no longer exists", link.UserID)
		}

		return user, errors.Wrap(err, "failed to load linked user")
	case !errors.Is(err, repository.ErrAuthNotFound):
		return nil, errors.Wrap(err, "failed to find provider link")
	}

	name, err := srv.availableName(ctx, userRepo, identity)
	if err != nil {
		return nil, err
	}
	email, err := srv.availableEmail(ctx, userRepo, identity)
	if err != nil {
		return nil, err
	}

	now := srv.now()
	user := &entity.User{
		ID:            uuid.New(),
		Name:          name,
		Email:         email,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := userRepo.Create(ctx, user); err != nil {
		return nil, errors.Wrap(err, "failed to create github user")
	}

	if err := authRepo.CreateAuthentication(ctx, &entity.Authentication{
		ID:             uuid.New(),
		UserID:         user.ID,
		Provider:       identity.Provider,
		ProviderUserID: identity.ID,
		CreatedAt:      now,
	}); err != nil {
		return nil, errors.Wrap(err, "failed to link github account")
	}

	srv.log(ctx).Info("Created user from GitHub login", slog.String("user_id", user.ID.String()))

	return user, nil
}

func (srv *authService) availableName(ctx context.Context, userRepo repository.UserRepository, identity *service.OAuthUser) (string, error) {
	taken, err := userRepo.ExistsByName(ctx, identity.Login)
	if err != nil {
		return "", errors.Wrap(err, "failed to check name uniqueness")
	}
	if !taken {
		return identity.Login, nil
	}

	return fmt.Sprintf("%s-%s", identity.Login, identity.ID), nil
}

// availableEmail never reuses an address owned by another principal; linking by
// email would hand that account to whoever controls the GitHub login.
func (srv *authService) availableEmail(ctx context.Context, userRepo repository.UserRepository, identity *service.OAuthUser) (string, error) {
	if identity.Email != "" {
		taken, err := userRepo.ExistsByEmail(ctx, identity.Email)
		if err != nil {
			return "", errors.Wrap(err, "failed to check email uniqueness")
		}
		if !taken {
			return identity.Email, nil
		}
	}

	return fmt.Sprintf("%s+%s@%s", identity.ID, identity.Login, constants.GitHubNoReplyDomain), nil
}
