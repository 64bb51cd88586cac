// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the farabi CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/farabi/internal/logging"
	"github.com/pdiddy/farabi/internal/secrets"
	"github.com/pdiddy/farabi/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets secrets.Secrets

	// cfg is the validated configuration for the running command.
	cfg types.Config

	// logger is built from cfg.Log once the configuration is loaded.
	logger = zap.NewNop()
)

// rootCmd is the base command for the farabi CLI.
var rootCmd = &cobra.Command{
	Use:   "farabi",
	Short: "Turn a research conversation into a cited article draft",
	Long: `farabi runs deep research on a topic. An interview narrows a broad topic
into final keywords; the research pipeline then decomposes the keywords into
sub-queries, searches Semantic Scholar, retrieves full text, extracts key
insights, writes a research report, and drafts a cited narrative.

The serve command runs the backend the other commands talk to.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/", nil)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}

		c, err := loadConfig(s)
		if err != nil {
			return err
		}
		cfg = c

		l, err := logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./farabi.yaml or ~/.config/farabi/farabi.yaml)")
	rootCmd.PersistentFlags().String("backend", "", "backend base URL (overrides gateway.base_url)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	_ = viper.BindPFlag("gateway.base_url", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// A missing .env is normal outside development.
	_ = godotenv.Load(".env")

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("farabi")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "farabi"))
		}
	}

	setDefaults(viper.GetViper())

	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
