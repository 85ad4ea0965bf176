// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"time"

	"warden/config"
	deliverycontext "warden/internal/delivery/context"
	"warden/internal/domain/constants"
	"warden/internal/domain/entity"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/domain/repository"
	"warden/internal/domain/service"
	"warden/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// authService implements the AuthUsecase interface.
type authService struct {
	txManager        repository.TransactionManager
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	hasher           service.PasswordHasher
	tokenService     service.TokenService
	oauthService     service.OAuthService
	publisher        service.EventPublisher
	clock            service.Clock
	logger           *slog.Logger
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager        repository.TransactionManager
	UserRepo         repository.UserRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Hasher           service.PasswordHasher
	TokenService     service.TokenService
	OAuthService     service.OAuthService
	Publisher        service.EventPublisher
	Clock            service.Clock
	Config           *config.Config
	Logger           *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return &authService{
		txManager:        params.TxManager,
		userRepo:         params.UserRepo,
		refreshTokenRepo: params.RefreshTokenRepo,
		hasher:           params.Hasher,
		tokenService:     params.TokenService,
		oauthService:     params.OAuthService,
		publisher:        params.Publisher,
		clock:            params.Clock,
		logger:           params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// now reads the clock at JWT precision, so the record expiry and the claim
// expiry of one issuance are computed from the same instant.
func (srv *authService) now() time.Time {
	return srv.clock.Now().UTC().Truncate(time.Second)
}

// SignUp registers a principal with an unverified email. No session is issued.
func (srv *authService) SignUp(ctx context.Context, input *usecase.SignUpInput) (*usecase.SignUpOutput, error) {
	srv.log(ctx).Info("Starting signup", slog.String("email", input.Email))

	now := srv.now()
	var registered *entity.User

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		emailTaken, err := userRepo.ExistsByEmail(ctx, input.Email)
		if err != nil {
			return errors.Wrap(err, "failed to check email uniqueness")
		}
		if emailTaken {
			return domainerrors.ErrConflict.WrapMessage("email already registered")
		}

		nameTaken, err := userRepo.ExistsByName(ctx, input.Name)
		if err != nil {
			return errors.Wrap(err, "failed to check name uniqueness")
		}
		if nameTaken {
			return domainerrors.ErrConflict.WrapMessage("username already taken")
		}

		hash, err := srv.hasher.Hash(input.Password)
		if err != nil {
			return errors.Wrap(domainerrors.ErrInternalServer, err.Error())
		}

		user := &entity.User{
			ID:           uuid.New(),
			Name:         input.Name,
			Email:        input.Email,
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			return errors.Wrap(err, "failed to create user")
		}
		registered = user

		return nil
	})
	if err != nil {
		return nil, err
	}

	srv.publishRegistered(ctx, registered, now)
	srv.log(ctx).Info("User registered", slog.String("user_id", registered.ID.String()))

	return &usecase.SignUpOutput{User: registered}, nil
}

// publishRegistered announces the new account. Signup has already committed,
// so a broker failure is only logged.
func (srv *authService) publishRegistered(ctx context.Context, user *entity.User, now time.Time) {
	event := &service.AccountEvent{
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		EventID:    uuid.NewString(),
		Type:       constants.EventUserRegistered,
		UserID:     user.ID.String(),
		Email:      user.Email,
		Name:       user.Name,
		OccurredAt: now,
	}

	if err := srv.publisher.PublishAccountEvent(ctx, event); err != nil {
		srv.log(ctx).Warn("Failed to publish account event",
			slog.String("event_type", event.Type),
			slog.String("user_id", event.UserID),
			slog.Any("error", err),
		)
	}
}

// Me loads the principal named by a verified access token.
func (srv *authService) Me(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrNotFound, "user not found")
		}

		return nil, errors.Wrap(err, "failed to load user")
	}

	return user, nil
}
