package impl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"warden/config"
	"warden/internal/domain/repository"
	"warden/internal/domain/service"

	"go.uber.org/fx"
)

// RefreshTokenPurger periodically deletes refresh records past their expiry.
// Expired records are already rejected on use; purging only bounds table growth.
type RefreshTokenPurger struct {
	repo     repository.RefreshTokenRepository
	clock    service.Clock
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// RefreshTokenPurgerParams holds dependencies for RefreshTokenPurger, injected by Fx.
type RefreshTokenPurgerParams struct {
	fx.In

	Lc               fx.Lifecycle
	RefreshTokenRepo repository.RefreshTokenRepository
	Clock            service.Clock
	Config           *config.Config
	Logger           *slog.Logger
}

// NewRefreshTokenPurger registers the purge loop with the fx lifecycle when
// auth.purgeInterval is positive.
func NewRefreshTokenPurger(params RefreshTokenPurgerParams) *RefreshTokenPurger {
	purger := &RefreshTokenPurger{
		repo:     params.RefreshTokenRepo,
		clock:    params.Clock,
		interval: params.Config.Auth.PurgeInterval,
		logger:   params.Logger,
	}

	if purger.interval <= 0 {
		params.Logger.Info("Refresh token purge disabled")

		return purger
	}

	params.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			purger.Start()

			return nil
		},
		OnStop: func(context.Context) error {
			purger.Stop()

			return nil
		},
	})

	return purger
}

// Start launches the purge loop.
func (p *RefreshTokenPurger) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(ctx)
	}()
}

// Stop cancels the loop and waits for an in-flight purge to finish.
func (p *RefreshTokenPurger) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *RefreshTokenPurger) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PurgeOnce(ctx)
		}
	}
}

// PurgeOnce deletes every record expired at the current clock time.
func (p *RefreshTokenPurger) PurgeOnce(ctx context.Context) int64 {
	deleted, err := p.repo.DeleteExpired(ctx, p.clock.Now())
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to purge expired refresh tokens", slog.Any("error", err))

		return 0
	}

	p.logger.DebugContext(ctx, "Purged expired refresh tokens", slog.Int64("deleted", deleted))

	return deleted
}
