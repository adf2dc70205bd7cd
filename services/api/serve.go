package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/yogastudio/internal/auth"
	"github.com/yogastudio/internal/email"
	"github.com/yogastudio/internal/handler"
	"github.com/yogastudio/internal/logger"
	"github.com/yogastudio/internal/repository"
	"github.com/yogastudio/internal/service"
	"github.com/yogastudio/internal/startup"
	"github.com/yogastudio/internal/storage"
	"github.com/yogastudio/internal/storage/memory"
	"github.com/yogastudio/internal/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Applies pending migrations, seeds the admin account when ADMIN_EMAIL/ADMIN_PASSWORD are set and serves HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, _ := cmd.Flags().GetBool("dev")
		return serve(dev)
	},
}

func init() {
	serveCmd.Flags().Bool("dev", false, "start with embedded PostgreSQL (no external DB required)")
}

func serve(dev bool) error {
	logger.Info("starting API service")

	if dev {
		embeddedDB, err := startEmbeddedPostgres()
		if err != nil {
			return fmt.Errorf("embedded postgres: %w", err)
		}
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := embeddedDB.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
	}

	if err := startup.RunMigrations(cfg.DatabaseURL()); err != nil {
		return err
	}

	pool, err := connectPool()
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("database connected, migrations applied")

	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	teacherRepo := repository.NewTeacherRepository(pool)

	var throttle storage.LoginThrottle
	if cfg.Redis.URL != "" {
		throttle = startup.ConnectRedisWithRetry(cfg.Redis.URL, cfg.Login.MaxAttempts, cfg.Login.Window, 60*time.Second)
		logger.Info("login throttle: redis")
	} else {
		throttle = memory.New(cfg.Login.MaxAttempts, cfg.Login.Window)
		logger.Info("login throttle: in-memory")
	}
	defer func() {
		if err := throttle.Close(); err != nil {
			logger.Errorf("login throttle close: %v", err)
		}
	}()

	var mailer service.WelcomeMailer
	if cfg.SMTP.Enabled() {
		mailer = email.NewSender(&cfg.SMTP)
	}

	tokens := auth.NewTokenCodec([]byte(cfg.JWT.Secret), cfg.JWT.Expiration)
	principals := auth.NewPrincipalStore(userRepo)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	hub := ws.NewHub(cfg.MaxWSConnections)
	var hubWg sync.WaitGroup
	hubWg.Add(1)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()

	authSvc := service.NewAuthService(userRepo, tokens, throttle, mailer)
	if err := seedAdmin(authSvc); err != nil {
		hubCancel()
		return err
	}

	router := handler.NewRouter(handler.Deps{
		Tokens:             tokens,
		Principals:         principals,
		Auth:               authSvc,
		Sessions:           service.NewSessionService(sessionRepo, teacherRepo, hub),
		Participation:      service.NewParticipationService(sessionRepo, userRepo, hub),
		Teachers:           service.NewTeacherService(teacherRepo),
		Users:              service.NewUserService(userRepo),
		Hub:                hub,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerIP:     cfg.RateLimit.PerIP,
		RateLimitPerUser:   cfg.RateLimit.PerUser,
		AccessLog:          true,
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	hubCancel()
	hubWg.Wait()
	logger.Info("hub stopped")
	srvWg.Wait()
	return runErr
}

func connectPool() (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConnections())
	poolCfg.MinConns = 2
	return startup.ConnectDBWithRetry(poolCfg, 60*time.Second), nil
}

// seedAdmin creates the configured administrator on first start.
func seedAdmin(svc *service.AuthService) error {
	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := svc.BootstrapAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, "Admin", "Admin"); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}

func startEmbeddedPostgres() (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "yoga"
		password = "yoga_secret"
		database = "yoga"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	cfg.Database.URL = fmt.Sprintf("postgres://%s:%s@localhost:%d/%s?sslmode=disable", user, password, port, database)
	logger.Infof("embedded PostgreSQL running on port %d", port)
	return db, nil
}
