package main

import (
	"context"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/lefinal/arena-server/app"
	"github.com/lefinal/arena-server/errors"
	"os"
	"os/signal"
	"syscall"
)

// configEnv is the environment variable naming the config file.
const configEnv = "ARENA_CONFIG"

// defaultConfigFile is used if configEnv is not set.
const defaultConfigFile = "config.json"

func main() {
	// A missing .env file is fine as everything may be set in the environment.
	_ = godotenv.Load()
	configFile := os.Getenv(configEnv)
	if configFile == "" {
		configFile = defaultConfigFile
	}
	config, err := app.ReadConfig(configFile)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, errors.Prettify(err))
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = app.NewApp(config).Boot(ctx)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, errors.Prettify(err))
		stop()
		os.Exit(1)
	}
}
