package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"dopamine-dashboard/internal/app"
	"dopamine-dashboard/internal/auth"
	"dopamine-dashboard/internal/config"
	"dopamine-dashboard/internal/infra/memory"
	pginfra "dopamine-dashboard/internal/infra/postgres"
	redisinfra "dopamine-dashboard/internal/infra/redis"
	"dopamine-dashboard/internal/scoring"
)

type repositories interface {
	app.UserRepository
	app.MeetRepository
	app.AttemptRepository
	app.LeaderboardRepository
	app.StatRepository
}

// services is the wired application shared by the subcommands.
type services struct {
	cfg         config.Config
	auth        *app.AuthService
	meets       *app.MeetService
	submissions *app.SubmissionService
	runners     []func(context.Context) error
	closers     []func()
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// buildServices picks PostgreSQL or in-memory storage and Redis or in-process
// coordination depending on what cfg configures.
func buildServices(ctx context.Context, cfg config.Config) (*services, error) {
	svc := &services{cfg: cfg}

	var (
		store  repositories
		loader app.MeetLoader
	)
	if cfg.Postgres.URL != "" {
		db := pginfra.Open(cfg.Postgres.URL)
		svc.closers = append(svc.closers, func() { _ = db.Close() })
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		svc.closers = append(svc.closers, pool.Close)
		store = pginfra.NewStore(db)
		loader = pginfra.NewMeetLoader(pool)
	} else {
		log.Printf("postgres not configured, using in-memory storage")
		mem := memory.NewStore()
		store = mem
		loader = mem
	}

	meetTTL := config.TTLDuration(cfg.Meet.TTL, 10*time.Minute)
	deps := app.Deps{
		Users:        store,
		Meets:        store,
		Attempts:     store,
		Leaderboards: store,
		Stats:        store,
	}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		svc.closers = append(svc.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			svc.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		deps.Cache = redisinfra.NewMeetCache(client, loader, meetTTL)
		deps.Locker = redisinfra.NewLocker(client, config.TTLDuration(cfg.Redis.LockTTL, 5*time.Second))
		feeds := redisinfra.NewFeedStore(client)
		deps.Feeds = feeds
		svc.runners = append(svc.runners, feeds.Run)
	} else {
		deps.Cache = memory.NewMeetCache(loader, meetTTL)
		deps.Locker = memory.NewLocker()
		deps.Feeds = memory.NewFeedStore()
	}

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("auth.jwt_secret (JWT_SECRET): %w", err)
	}
	policy := scoring.Policy{
		BonusPoints:           cfg.Scoring.BonusPoints,
		BonusThresholdSeconds: cfg.Scoring.BonusThresholdSeconds,
		PenaltyPoints:         cfg.Scoring.PenaltyPoints,
	}

	svc.auth = app.NewAuthService(deps, issuer, auth.NewIDTokenVerifier(cfg.Auth.GoogleClientID))
	svc.meets = app.NewMeetService(deps)
	svc.submissions = app.NewSubmissionService(deps, policy)
	return svc, nil
}
