package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"habitbot/bot/botapi"
	"habitbot/bot/commands/session"
	"habitbot/config"
	"habitbot/engine"
	"habitbot/habitapi"
	"habitbot/mailer"
	"habitbot/migrations"
	"habitbot/notifications"
	"habitbot/progress"
	"habitbot/ratelimit"
	"habitbot/reminders"
	"habitbot/routes/ops"
	"habitbot/screens"
	"habitbot/sessions"
	"habitbot/state"
	"habitbot/validators"
	"habitbot/zapchi"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	genConfig := flag.Bool("genconfig", false, "write config.yaml.sample and exit")
	flag.Parse()

	if *genConfig {
		if err := config.GenConfig("config.yaml.sample"); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	s, err := state.Setup(ctx, configPath)

	if err != nil {
		return err
	}
	defer s.Close()
	defer sentry.Flush(2 * time.Second)

	cfg := s.Config
	logger := s.Logger

	if err := migrations.Migrate(ctx, s.Pool, logger.Named("migrations")); err != nil {
		return err
	}

	var habits habitapi.Service
	if cfg.Memory() {
		logger.Warn("Using the in-process habit service, data is lost on restart")
		habits = habitapi.NewMemory()
	} else {
		habits = habitapi.NewClient(cfg.HabitAPI.URL, cfg.HabitAPI.ServiceToken, cfg.HabitAPI.Timeout)
	}

	mail, err := mailer.New(cfg.Mail, logger.Named("mailer"))

	if err != nil {
		return err
	}

	gw := botapi.NewGateway(s.Discord)

	deps := &screens.Deps{
		Habits:     habits,
		Mailer:     mail,
		Logger:     logger.Named("screens"),
		Now:        time.Now,
		PendingTTL: cfg.Conversation.PendingTTL,
		CodeTTL:    cfg.Conversation.CodeTTL,
		DraftTTL:   cfg.Conversation.DraftTTL,
	}

	eng := engine.New(sessions.NewRedisStore(s.Redis, cfg.Storage.SessionTTL), gw, deps, logger.Named("engine"))

	sched := reminders.New(
		reminders.NewPgJobStore(s.Pool),
		notifications.NewReminder(gw, eng, habits, logger.Named("notifications")),
		logger,
		cfg.Location(),
	)
	deps.Reminders = sched

	if err := sched.Load(ctx); err != nil {
		return err
	}

	hour, minute, err := validators.ClockTime(cfg.Scheduler.ProgressRunAt)

	if err != nil {
		return fmt.Errorf("configError: scheduler.progress_run_at: %w", err)
	}

	adv := progress.New(habits, sched, logger.Named("progress"), cfg.Location())

	if err := adv.Schedule(hour, minute); err != nil {
		return err
	}

	var limiter botapi.Limiter
	if cfg.Conversation.RateLimitRequests > 0 {
		limiter = ratelimit.New(s.Redis, ratelimit.Bucket{
			Name:     ratelimit.DefaultEventBucket.Name,
			Requests: cfg.Conversation.RateLimitRequests,
			Time:     cfg.Conversation.RateLimitWindow,
		})
	}

	botapi.NewInbound(eng, limiter, logger.Named("inbound")).Start(s.Discord)

	cmds := botapi.NewCommands(logger.Named("commands"))
	session.Register(cmds, eng)
	cmds.Start(s.Discord)

	if err := s.Discord.Open(); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	defer s.Discord.Close()

	if cfg.Discord.RegisterCommands {
		if err := cmds.RegisterWithAPI(s.Discord); err != nil {
			return err
		}
	}

	sched.Start()
	adv.Start()

	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer,
		middleware.RealIP,
		middleware.CleanPath,
		middleware.RequestID,
		zapchi.Logger(logger, "ops"),
		middleware.Timeout(5*time.Minute),
	)

	ops.Router{
		Jobs:         sched,
		Progress:     adv,
		ServiceToken: cfg.HabitAPI.ServiceToken,
		Logger:       logger.Named("ops"),
		Started:      time.Now(),
	}.Routes(r)

	srv := &http.Server{Addr: cfg.Meta.Addr, Handler: r}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Ops server listening", zap.String("addr", cfg.Meta.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ops server stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to stop ops server", zap.Error(err))
	}

	// Wait for running reminders and advances
	for _, done := range []context.Context{sched.Stop(), adv.Stop()} {
		select {
		case <-done.Done():
		case <-shutdownCtx.Done():
			logger.Warn("Timed out waiting for scheduled jobs")
		}
	}

	return nil
}
