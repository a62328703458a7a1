// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/greenlit-app/greenlit/internal/api"
	"github.com/greenlit-app/greenlit/internal/auth"
	"github.com/greenlit-app/greenlit/internal/config"
	"github.com/greenlit-app/greenlit/internal/services"
	"github.com/greenlit-app/greenlit/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := utils.InitLogger(filepath.Join(cfg.LogDir, "greenlit.log")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	logger := utils.GetLogger()
	if cfg.DebugMode {
		logger.SetLogLevel(utils.DEBUG)
	}

	container, err := services.InitServices(cfg)
	if err != nil {
		logger.Fatal("service initialization failed", map[string]interface{}{"error": err.Error()})
	}

	tokens := container.Get("tokens").(*auth.TokenConfig)
	handlers := api.NewHandlers(
		container.Get("storybibles").(*services.StoryBibleService),
		container.Get("preproduction").(*services.PreProductionService),
		container.Get("stages").(*services.StageService),
		container.Get("pipeline").(*services.PipelineService),
		container.Get("progress").(*services.ProgressService),
		container.Get("sharelinks").(*services.ShareLinkService),
		tokens,
	)

	router := api.NewRouter(handlers, tokens, cfg.DebugMode)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", map[string]interface{}{"error": err.Error()})
	}
	logger.Info("server stopped", nil)
}
