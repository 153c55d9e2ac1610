package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"fluidmeter-api-server/cmd/api-server/app"
	"fluidmeter-api-server/cmd/api-server/app/options"
	log "fluidmeter-api-server/internal/logger"
)

func main() {
	option, err := options.NewOptions()
	if err != nil {
		fmt.Print(option.Usage(err))
		os.Exit(1)
	}

	// a missing dotenv file is fine, the environment may already be set
	if err := godotenv.Load(*option.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *option.EnvFile, err)
		os.Exit(1)
	}

	logger, err := log.SetupLogger(*option.LogFile, *option.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := app.Run(option, logger); err != nil {
		logger.Error("api-server stopped", zap.Error(err))
		os.Exit(1)
	}
}
