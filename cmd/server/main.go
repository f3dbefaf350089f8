// @title           accessgate API
// @version         1.0
// @description     Invite-gated registration, HWID-bound login and account administration.
// @BasePath        /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Admin JWT as "Bearer <token>".
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/safedev/accessgate/internal/bootstrap"
	"github.com/safedev/accessgate/internal/infrastructure/config"
	"github.com/safedev/accessgate/pkg/logger"
)

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{Service: "accessgate"})
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "accessgate",
	})

	app, err := bootstrap.NewApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialise application")
	}
	defer app.Shutdown(context.Background())

	log.Info().Str("env", cfg.Env).Str("store", cfg.Store.Driver).Msg("starting accessgate")
	if err := app.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
	}
}
