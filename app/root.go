// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/nita-portal/nita/internal/config"
	"github.com/nita-portal/nita/internal/logger"
)

var (
	configPath string // directory holding main.toml and .env

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "nita",
	Short: "NITA is the internal tools portal",
	Long: `NITA is the internal tools portal. It lets staff discover and launch internal
services, gated by roles, with users from local accounts, OpenLDAP or FreeIPA.`,
	Args:          cobra.OnlyValidArgs,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "directory of main.toml")
}

// loadConfig reads the configuration and initializes logging.
func loadConfig() error {
	var err error

	if cfg, err = config.ReadConfig(configPath); err != nil {
		return err
	}

	return logger.Init(cfg.Log)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
