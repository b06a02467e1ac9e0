package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/placemap/internal/config"
)

var (
	cfg      *config.Config
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "placemap",
	Short: "Competitive location intelligence map service",
	Long:  "Serves the map dashboard API for My Place and its nearby competitors.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := setup(logLevel)
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// setup loads the configuration and installs the global logger. A non-empty
// level overrides the configured log level.
func setup(level string) (*config.Config, error) {
	c, err := config.Load()
	if err != nil {
		return nil, eris.Wrap(err, "load config")
	}
	if level != "" {
		c.Log.Level = level
	}
	if err := config.InitLogger(c.Log); err != nil {
		return nil, eris.Wrap(err, "init logger")
	}
	return c, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
