package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trivia-progression-service/internal/app"
	"trivia-progression-service/internal/config"
	"trivia-progression-service/internal/infra/memory"
	infrapg "trivia-progression-service/internal/infra/postgres"
	infraredis "trivia-progression-service/internal/infra/redis"
	"trivia-progression-service/internal/leaderboard"
	"trivia-progression-service/internal/progression"
	transport "trivia-progression-service/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the daily challenge server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func newLogger(mode string) (*zap.SugaredLogger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	switch mode {
	case "prod", "production":
		logger, err = zap.NewProduction()
	default:
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	calc := progression.NewCalculator(
		cfg.Progression.XPPerLevel,
		cfg.Progression.MaxXPAmount,
		cfg.Progression.MaxCoinAmount,
	)
	rewards := app.Rewards{XP: cfg.Progression.CompletionXP, Coins: cfg.Progression.CompletionCoins}
	if rewards.XP == 0 {
		rewards.XP = 50
	}
	if rewards.Coins == 0 {
		rewards.Coins = 10
	}

	// Postgres is the system of record when configured; otherwise Redis holds
	// the completion records, and with neither the service runs fully
	// in-memory (demo/test mode).
	var (
		completions app.CompletionStore
		profiles    app.ProgressionStore
		scores      app.ScoreRecorder
		loader      leaderboard.EntryLoader
	)
	switch {
	case pool != nil:
		completions = infrapg.NewCompletionStore(pool)
		profiles = infrapg.NewProgressionStore(pool)
		store := infrapg.NewScoreStore(pool)
		scores, loader = store, store
	default:
		memProfiles := memory.NewProgressionStore()
		memScores := memory.NewScoreStore(memProfiles)
		profiles, scores, loader = memProfiles, memScores, memScores
		if redisClient != nil {
			completions = infraredis.NewCompletionStore(redisClient)
		} else {
			completions = memory.NewCompletionStore()
		}
	}

	lbTTL := config.TTLDuration(cfg.Leaderboard.TTL, time.Minute)
	var cache leaderboard.Cache
	if redisClient != nil {
		cache = infraredis.NewLeaderboardCache(redisClient, lbTTL)
	} else {
		cache = memory.NewLeaderboardCache(lbTTL)
	}

	boards := leaderboard.NewService(loader, cache, cfg.Leaderboard.Limit)
	service := app.NewCompletionService(completions, profiles, scores, boards, calc, rewards, log)

	auth := transport.NewAuthenticator(cfg.Auth.JWTSecret)
	handler := transport.NewHandler(service, boards, auth, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Infow("starting daily challenge service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("server failed", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
