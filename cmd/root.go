package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Shivanand-hulikatti/runclub/internal/config"
	"github.com/Shivanand-hulikatti/runclub/internal/log"
)

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:          "runclub",
	Short:        "Sign-ups for scheduled group runs",
	Long:         `runclub serves an HTTP API for listing group runs and signing up for them without ever exceeding a run's capacity.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (YAML); environment variables use the RUNCLUB_ prefix")
	rootCmd.PersistentFlags().String("driver", "", `storage backend: "postgres" or "sqlite"`)
	rootCmd.PersistentFlags().String("db-path", "", "database file for the sqlite driver")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error")

	_ = viper.BindPFlag("database.driver", rootCmd.PersistentFlags().Lookup("driver"))
	_ = viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db-path"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func loadConfig() error {
	loaded, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return err
	}
	if err := log.Init(os.Stderr, loaded.Log.Level, loaded.Log.Format); err != nil {
		return err
	}
	cfg = loaded
	log.Debug(log.CatConfig, "Configuration loaded", "driver", cfg.Database.Driver, "login_scheme", cfg.Auth.LoginScheme)
	return nil
}
