package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rowbook/config"
	handler "rowbook/internal/document"
	"rowbook/internal/document/repository"
	"rowbook/internal/document/service"
	"rowbook/pkg/logger"
	"rowbook/router"
	"rowbook/socket"
	"rowbook/web"
)

const documentCacheBytes = 64 << 20

func main() {
	// Config warnings need a logger before DEBUG is known.
	logger.Init(false)
	cfg, envErr := config.Load()
	if cfg.Debug {
		logger.Init(true)
	}
	defer logger.Sync()
	if envErr != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := socket.NewHub()
	go hub.Run(ctx)

	store, watching := repository.Open(ctx, cfg.DocumentPath(), cfg.WatchDocument, documentCacheBytes, func() {
		hub.DocumentChanged(socket.SourceDisk)
	})
	logger.Sugar.Debugf("Document store ready (cached and watched: %v)", watching)

	docService := service.NewDocumentService(store, hub, cfg.MissingPolicy, web.FallbackDocument)
	docHandler := handler.NewDocumentHandler(docService, cfg.PagePath(), cfg.MaxBodyBytes)

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: router.Setup(docHandler, hub, router.Options{
			StaticDir:  cfg.StaticDir,
			CORSOrigin: cfg.CORSOrigin,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Sugar.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Sugar.Errorf("Server shutdown: %v", err)
		}
	}()

	logger.Sugar.Infow("Server listening",
		"addr", cfg.Addr(),
		"document", cfg.DocumentPath(),
		"missing_policy", cfg.MissingPolicy,
		"debug", cfg.Debug,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Sugar.Fatalf("Server failed: %v", err)
	}
	logger.Sugar.Info("Server stopped")
}
