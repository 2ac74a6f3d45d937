package state

import (
	"context"
	"fmt"

	"habitbot/config"

	"github.com/bwmarrin/discordgo"
	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// State holds the shared clients, built once by Setup and handed to every service
type State struct {
	Config  *config.Config
	Logger  *zap.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Discord *discordgo.Session
}

func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()

	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	return cfg.Build()
}

// Setup reads the config at path and builds the clients, the discord session is not opened
func Setup(ctx context.Context, path string) (*State, error) {
	cfg, err := config.Load(path)

	if err != nil {
		return nil, err
	}

	s := &State{Config: cfg}

	s.Logger, err = NewLogger(cfg.Meta.Debug)

	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	if cfg.Meta.SentryDSN != "" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Meta.SentryDSN,
			Environment: cfg.Meta.Environment,
		})

		if err != nil {
			return nil, fmt.Errorf("sentry: %w", err)
		}
	}

	s.Pool, err = pgxpool.New(ctx, cfg.Storage.PostgresURL)

	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	rOptions, err := redis.ParseURL(cfg.Storage.RedisURL)

	if err != nil {
		s.Pool.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	s.Redis = redis.NewClient(rOptions)

	s.Discord, err = discordgo.New("Bot " + cfg.Discord.Token)

	if err != nil {
		s.Close()
		return nil, fmt.Errorf("discord: %w", err)
	}

	s.Discord.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentMessageContent

	return s, nil
}

// Close releases the clients, the discord session is closed by its owner
func (s *State) Close() {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil && s.Logger != nil {
			s.Logger.Error("Failed to close redis", zap.Error(err))
		}
	}

	if s.Pool != nil {
		s.Pool.Close()
	}

	if s.Logger != nil {
		s.Logger.Sync()
	}
}
