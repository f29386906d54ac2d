package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"contactsss/internal/auth"
	"contactsss/internal/config"
	"contactsss/internal/contacts"
	"contactsss/internal/mail"
	"contactsss/internal/password"
	"contactsss/internal/rate"
	"contactsss/internal/server"
	"contactsss/internal/store"
	"contactsss/internal/token"
	"contactsss/internal/usercache"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.RunMigrations(ctx, cfg.Database.DSN); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	pool, err := store.NewPool(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	hasher, err := password.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("invalid bcrypt configuration", zap.Error(err))
	}

	tokens, err := token.NewService(token.Config{
		SigningKey:       []byte(cfg.Auth.SecretKey),
		AccessTTL:        cfg.Auth.AccessTTL,
		RefreshTTL:       cfg.Auth.RefreshTTL,
		EmailConfirmTTL:  cfg.Auth.EmailConfirmTTL,
		PasswordResetTTL: cfg.Auth.PasswordResetTTL,
	})
	if err != nil {
		logger.Fatal("invalid token configuration", zap.Error(err))
	}

	sender := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		SSL:      cfg.SMTP.SSL,
		Timeout:  cfg.SMTP.Timeout,
	}, logger)

	userStore := store.NewPostgresUserStore(pool)
	contactStore := store.NewPostgresContactStore(pool)
	cache := usercache.New(redisClient, cfg.Cache.TTL, logger)
	limiter := rate.NewLimiter(redisClient, cfg.Policies())

	authService := auth.NewService(userStore, hasher, tokens, cache, sender, logger)
	contactService := contacts.NewService(contactStore)

	srv := server.New(authService, contactService, limiter, logger)
	if err := srv.Run(ctx, cfg.HTTP.Addr); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
