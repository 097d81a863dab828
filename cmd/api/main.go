package main

import (
	"os"

	"github.com/supersix/academy/internal/bootstrap"
	"github.com/supersix/academy/internal/config"
	"github.com/supersix/academy/internal/pkg/logger" // Still needed for initial error logging
	"github.com/supersix/academy/internal/server"
)

// @title Super Six Academy API
// @version 1.0
// @description Student signup and per-branch student ID allocation

// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	configPath := config.GetEnv(config.EnvPrefix+"CONFIG_PATH", bootstrap.DefaultConfigPath)

	srv, err := server.NewServer(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// Run blocks until a shutdown signal
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
