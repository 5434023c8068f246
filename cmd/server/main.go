package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"bookassist/internal/app"
	"bookassist/internal/config"
	"bookassist/internal/ratelimit"
	"bookassist/internal/server"
	"bookassist/internal/util"
	"bookassist/pkg/ai"
	"bookassist/pkg/auth"
	"bookassist/pkg/mail"
	"bookassist/pkg/store"
	"bookassist/pkg/tokens"
	"bookassist/pkg/vectorindex"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	dataStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init postgres store: %v", err)
	}

	sessions, err := auth.NewSessionManager(dataStore, cfg.SessionSecret, 0)
	if err != nil {
		log.Fatalf("failed to init session manager: %v", err)
	}
	tokenMgr, err := tokens.NewManager(dataStore)
	if err != nil {
		log.Fatalf("failed to init token manager: %v", err)
	}

	mailer := mail.NewSMTPMailer(mail.Config{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		User:        cfg.SMTPUser,
		Password:    cfg.SMTPPassword,
		From:        cfg.FromEmail,
		FrontendURL: cfg.FrontendURL,
	}, logger)

	openai := ai.NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey)
	embedder, err := ai.NewOpenAIEmbedder(openai, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	if err != nil {
		log.Fatalf("failed to init embedder: %v", err)
	}
	streamer, err := ai.NewOpenAIChatStreamer(openai, cfg.ChatModel)
	if err != nil {
		log.Fatalf("failed to init chat streamer: %v", err)
	}

	index, err := vectorindex.NewQdrantGateway(vectorindex.QdrantConfig{
		Host:   cfg.QdrantHost,
		Port:   cfg.QdrantPort,
		APIKey: cfg.QdrantAPIKey,
		UseTLS: cfg.QdrantUseTLS,
	})
	if err != nil {
		log.Fatalf("failed to init vector index: %v", err)
	}

	appCore, err := app.New(app.Config{
		Store:      dataStore,
		Sessions:   sessions,
		Tokens:     tokenMgr,
		Mailer:     mailer,
		Embedder:   embedder,
		Streamer:   streamer,
		Index:      index,
		Collection: cfg.Collection,
		TopK:       cfg.TopK,
		Logger:     logger,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	limits := server.Limiters{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		limits = server.Limiters{
			Register:           mustLimiter(redisClient, "register", 5, time.Hour),
			Login:              mustLimiter(redisClient, "login", 10, time.Minute),
			ForgotPassword:     mustLimiter(redisClient, "forgot_password", 3, time.Hour),
			ResendVerification: mustLimiter(redisClient, "resend_verification", 3, time.Hour),
		}
	} else {
		slog.Warn("redis not configured, auth rate limiting disabled")
	}

	httpServer := server.New(server.Config{
		App:    appCore,
		Limits: limits,
	})

	handler := util.WithRequestID(
		util.WithSecurityHeaders(
			util.WithCORS(cfg.AllowedOrigins,
				util.WithRequestLog("bookassist", httpServer.Router()))))

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Long enough for a full streamed answer.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		slog.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
}

func mustLimiter(client *redis.Client, name string, limit int, window time.Duration) *ratelimit.FixedWindowLimiter {
	limiter, err := ratelimit.NewFixedWindowLimiter(client, name, limit, window)
	if err != nil {
		log.Fatalf("failed to init %s rate limiter: %v", name, err)
	}
	return limiter
}
