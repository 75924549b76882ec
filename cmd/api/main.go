package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	_ "github.com/redmonkez12/notes-api/docs" // Swagger docs (generated)
	"github.com/redmonkez12/notes-api/internal/auth"
	"github.com/redmonkez12/notes-api/internal/config"
	"github.com/redmonkez12/notes-api/internal/database"
	"github.com/redmonkez12/notes-api/internal/email"
	httpServer "github.com/redmonkez12/notes-api/internal/http"
	"github.com/redmonkez12/notes-api/internal/logging"
	"github.com/redmonkez12/notes-api/internal/note"
	"github.com/redmonkez12/notes-api/internal/user"
)

// @title           Notes API
// @version         1.0
// @description     Personal notes service with token authentication and e-mailed password reset codes.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	rootCmd := &cobra.Command{
		Use:           "notes-api",
		Short:         "Notes REST API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Apply pending migrations and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	migrateCmd := &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Run database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{database.MigrateUp, database.MigrateDown, database.MigrateStatus},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), args[0])
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd)

	// Running without a subcommand serves
	rootCmd.RunE = serveCmd.RunE

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

func runMigrate(ctx context.Context, direction string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sqlDB, err := database.Open(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer sqlDB.Close()

	return database.Migrate(ctx, sqlDB, direction)
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"token_strategy", cfg.Auth.TokenStrategy,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connection
	sqlDB, err := database.Open(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer sqlDB.Close()

	if err := database.Migrate(ctx, sqlDB, database.MigrateUp); err != nil {
		return err
	}
	db := database.NewBunDB(sqlDB)

	// Initialize Redis connection
	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Initialize repositories
	userRepo := user.NewRepository(db)
	noteRepo := note.NewRepository(db)

	tokenService, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	// Mail delivery with a Redis-backed retry outbox
	emailService := email.NewService(cfg.Email)
	outbox := email.NewOutbox(redisClient)
	retryWorker := email.NewRetryWorker(outbox, emailService, logger, cfg.Email.RetryInterval, cfg.Email.MaxAttempts, cfg.Email.SendTimeout)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		retryWorker.Run(workerCtx)
	}()
	defer func() {
		cancelWorker()
		<-workerDone
	}()

	// Initialize services
	authService := auth.NewService(
		userRepo,
		auth.NewBcryptHasher(auth.DefaultBcryptCost),
		tokenService,
		emailService,
		outbox,
		logger,
		cfg.Auth.TokenDuration,
		cfg.Auth.OTPTTL,
		cfg.Email.SendTimeout,
	)
	noteService := note.NewService(noteRepo)

	// Initialize HTTP handlers
	authHandler := auth.NewHandler(authService)
	noteHandler := note.NewHandler(noteService)
	authMiddleware := auth.NewMiddleware(tokenService)

	router := httpServer.NewRouter(cfg, authHandler, noteHandler, authMiddleware, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
