package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/z-chat/backend/internal/config"
	"github.com/zhouzirui/z-chat/backend/internal/handler"
	"github.com/zhouzirui/z-chat/backend/internal/handler/settings"
	"github.com/zhouzirui/z-chat/backend/internal/model/catalog"
	"github.com/zhouzirui/z-chat/backend/internal/service/ai"
	"github.com/zhouzirui/z-chat/backend/internal/service/chat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	models := catalog.NewMemoryStore(catalog.Seed())
	chatService := chat.NewService(cfg.Chat.SystemPrompt)
	go chatService.RunJanitor(ctx, cfg.Chat.SessionTTL, janitorInterval(cfg.Chat.SessionTTL))

	if !cfg.OpenRouter.Enabled() {
		log.Printf("warning: %s not configured; chat requests will fail until it is set", config.APIKeyName)
	}

	client := ai.NewClient(cfg.OpenRouter)
	chatModel := ai.NewChatModel(client, models.Default().ID, cfg.Chat.DefaultTemperature)
	aiService := ai.NewService(chatModel, models, chatService, cfg.Chat.DefaultTemperature)
	log.Printf("AI service initialized (endpoint=%s, timeout=%s)", cfg.OpenRouter.Endpoint, cfg.OpenRouter.Timeout)

	router := handler.NewRouter(models, chatService, aiService, settings.Options{
		Title:              cfg.Chat.AppTitle,
		Banner:             cfg.Chat.Banner,
		DefaultTemperature: cfg.Chat.DefaultTemperature,
		AIAvailable:        cfg.OpenRouter.Enabled(),
	})

	startServer(ctx, cfg.Server, router)
}

func janitorInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("chat backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
