package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"print-studio/internal/config"
	"print-studio/internal/download"
	"print-studio/internal/logger"
)

var (
	flagConfig   string
	flagLogLevel string

	// cfg and log are resolved once in setup and shared by the subcommands.
	cfg config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "studio",
	Short: "Listing renders and metrology for 3D print models",
	Long: `studio converts a 3D-printable model file (STL or 3MF, optionally inside
a plain zip) into the assets a product listing needs: a fixed set of
studio-lit renders and the model's canonical print dimensions and weight.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultPath,
		"pipeline config file (a missing file uses the defaults)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "",
		"override the configured log level (debug, info, warn, error)")
}

// setup loads the config file, applies global flag overrides, and builds the
// process logger. It runs before every subcommand.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err = logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	return err
}

// resolveInput reads a local file or fetches a URL. The returned filename
// carries the extension hint the container loader classifies by.
func resolveInput(input string) (data []byte, filename string, err error) {
	if download.IsURL(input) {
		return download.Fetch(input)
	}
	data, err = os.ReadFile(input)
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Base(input), nil
}
