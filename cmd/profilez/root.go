package main

import (
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"github.com/zoobzio/profilez/internal/config"
	"github.com/zoobzio/profilez/internal/logging"
	"go.uber.org/zap"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "profilez",
	Short: "Record, receive and inspect trace-viewer profiles.",
	Long: `profilez records profiling sessions into the trace event format, ` +
		`runs a receiver that stores uploaded traces, and summarizes trace files.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "profilez.toml", "path to the TOML config file")
	rootCmd.AddCommand(serveCmd, recordCmd, inspectCmd)
}

// setup loads configuration and builds the logger every command uses.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, errors.Trace(err)
	}
	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return config.Config{}, nil, errors.Trace(err)
	}
	return cfg, logger, nil
}
