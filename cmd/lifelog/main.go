package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/terraincognita07/lifelog/internal/agent"
	"github.com/terraincognita07/lifelog/internal/api"
	"github.com/terraincognita07/lifelog/internal/cli"
	"github.com/terraincognita07/lifelog/internal/config"
	"github.com/terraincognita07/lifelog/internal/db"
	"github.com/terraincognita07/lifelog/internal/i18n"
	"github.com/terraincognita07/lifelog/internal/logger"
	"github.com/terraincognita07/lifelog/internal/mailer"
	"github.com/terraincognita07/lifelog/internal/metrics"
	"github.com/terraincognita07/lifelog/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	serviceName     = "lifelog"
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	command := "serve"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "serve":
		return serve()
	case "issue-code", "token":
		if len(args) != 2 {
			return fmt.Errorf("usage: %s %s <email>", serviceName, command)
		}
		return runAuthCommand(command, args[1])
	default:
		return fmt.Errorf("unknown command %q (expected serve, issue-code or token)", command)
	}
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := validatePort(cfg.Port); err != nil {
		return err
	}
	time.Local = cfg.Location

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, ServiceName: serviceName})
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()
	log.Info("starting", cfg.Fields()...)

	database, err := db.Open(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	defer closeDatabase(database, log)

	i18nManager, err := i18n.NewEmbeddedManager(cfg.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("i18n init failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sender, err := mailer.New(ctx, cfg.Mail, i18nManager, log)
	if err != nil {
		return fmt.Errorf("mailer init failed: %w", err)
	}

	var chatClient agent.ChatClient
	if client := agent.NewOpenAIClient(cfg.AI); client != nil {
		chatClient = client
	} else {
		log.Warn("OPENAI_API_KEY is not set, chat is disabled")
	}

	handler, err := api.NewHandler(database, api.Options{
		SecretKey:      cfg.Auth.SecretKey,
		AccessTokenTTL: cfg.Auth.AccessTokenTTL,
		CodeTTL:        cfg.Auth.CodeTTL,
		EchoCode:       cfg.Auth.EchoCode,
		Location:       cfg.Location,
		ChatModel:      cfg.AI.Model,
	}, i18nManager, sender, chatClient)
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}

	app := newApp(handler, log, cfg.AllowOrigins)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("listening", zap.String("addr", "0.0.0.0:"+cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}

func newApp(handler *api.Handler, log *zap.Logger, allowOrigins string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Lifelog",
		DisableStartupMessage: true,
		ErrorHandler:          api.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.Middleware(log))
	app.Use(metrics.Middleware())
	app.Use(compress.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Accept-Language, Authorization",
	}))

	app.Get("/metrics", metrics.Handler())
	api.RegisterRoutes(app, handler)
	app.Use(handler.NotFound)
	return app
}

func runAuthCommand(command string, email string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{Level: "warn", Environment: cfg.Env, ServiceName: serviceName})
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	database, err := db.Open(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	defer closeDatabase(database, log)

	ctx := context.Background()
	store := db.NewRepositories(database)
	if command == "issue-code" {
		return cli.RunIssueCodeCommand(ctx, services.NewAuthService(store, nil, cfg.Auth.CodeTTL), email, os.Stdout)
	}

	i18nManager, err := i18n.NewEmbeddedManager(cfg.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("i18n init failed: %w", err)
	}
	sender, err := mailer.New(ctx, cfg.Mail, i18nManager, log)
	if err != nil {
		return fmt.Errorf("mailer init failed: %w", err)
	}
	readCode := func() (string, error) {
		return cli.PromptSecret(os.Stdin, os.Stderr, "Login code: ")
	}
	return cli.RunTokenCommand(ctx, services.NewAuthService(store, sender, cfg.Auth.CodeTTL), email, cfg.Auth.SecretKey, cfg.Auth.AccessTokenTTL, readCode, os.Stdout)
}

func validatePort(raw string) error {
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return errors.New("PORT must be a number between 1 and 65535")
	}
	return nil
}

func closeDatabase(database *gorm.DB, log *zap.Logger) {
	sqlDB, err := database.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("database close failed", zap.Error(err))
	}
}
