package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"go.lorenzomilicia.dev/report-collage/internal/config"
)

var rootCmd = &cobra.Command{
	Use:          "collage",
	Short:        "Photo report collage generator",
	Long:         `Compose uploaded photos and a short header into a single downloadable report image.`,
	SilenceUsage: true,
}

var (
	envFile    string
	configFile string
	debug      bool

	cfg config.Config
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "Path to .env file to load before running commands")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	// Load .env, then the configuration, before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		setupLogging(debug)

		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("failed to load env file '%s': %w", envFile, err)
			}
		}
		if configFile == "" {
			configFile = os.Getenv("COLLAGE_CONFIG")
		}

		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
		log.Debug().Str("config", configFile).Msg("Configuration loaded")
		return nil
	}
}

func setupLogging(debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
