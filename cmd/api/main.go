package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/coverifica/consultas-co-api/internal/api"
	"github.com/coverifica/consultas-co-api/internal/captcha"
	"github.com/coverifica/consultas-co-api/internal/config"
	"github.com/coverifica/consultas-co-api/internal/dian"
	"github.com/coverifica/consultas-co-api/internal/logger"
	"github.com/coverifica/consultas-co-api/internal/proxy"
	"github.com/coverifica/consultas-co-api/internal/rues"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration load failed")
	}

	appLogger := logger.New(cfg.Log.Level, cfg.Log.Format)
	appLogger.Info().Str("environment", cfg.Server.Environment).Msg("starting consultas-co api")

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	proxies := proxy.NewPool(cfg.Proxy.Entries)
	if proxies.Size() > 0 {
		appLogger.Info().Int("proxies", proxies.Size()).Msg("proxy pool loaded")
	}

	solver := captcha.NewChain(appLogger,
		captcha.NewCapSolver(cfg.Captcha.PrimaryAPIKey, cfg.Captcha.PrimaryBaseURL),
		captcha.NewTwoCaptcha(cfg.Captcha.FallbackAPIKey, cfg.Captcha.FallbackBaseURL, appLogger),
	)

	ruesService := rues.NewService(cfg.Browser, cfg.Rues, proxies, appLogger)
	dianService := dian.NewService(cfg.Browser, cfg.Dian, solver, proxies, appLogger)

	router := api.NewRouter(appLogger, ruesService, dianService)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		appLogger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		appLogger.Error().Err(err).Msg("forced shutdown")
	}

	appLogger.Info().Msg("server exited")
}
