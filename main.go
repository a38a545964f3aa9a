package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"fb_token_checker/internal/config"
	"fb_token_checker/internal/graphapi"
	"fb_token_checker/internal/handler"
	"fb_token_checker/internal/logger"
	"fb_token_checker/internal/messaging"
	"fb_token_checker/internal/metrics"
	"fb_token_checker/internal/service"
)

func newPublisher(url string, log *zap.Logger) messaging.Publisher {
	if url == "" {
		log.Info("NATS_URL is not set, verification summaries will not be published")
		return messaging.NewNoopPublisher()
	}

	publisher, err := messaging.NewNATSClient(url, log)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	return publisher
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting token checker")

	m, err := metrics.New()
	if err != nil {
		log.Fatal("Failed to register metrics", zap.Error(err))
	}

	publisher := newPublisher(cfg.NATS.URL, log)
	defer publisher.Close()

	client := graphapi.NewClient(cfg.GraphAPI, nil, m, log)
	verificationService := service.NewVerificationService(client, publisher, m, log)

	h, err := handler.NewHandler(verificationService, cfg.Upload, log)
	if err != nil {
		log.Fatal("Failed to create handler", zap.Error(err))
	}

	// Таймауты сервера учитывают пакетную проверку: до нескольких сотен запросов к API подряд
	server := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           handler.NewRouter(h, m, log),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		log.Info("Starting server", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
