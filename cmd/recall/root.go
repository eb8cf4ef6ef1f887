package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/victoriahouse/recall/internal/pathutil"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Unified memory store for the desktop assistant",
	Long: "recall keeps structured memory items and curated data banks in a local\n" +
		"SQLite file and answers retrieval queries by blending lexical full-text\n" +
		"ranking with optional vector similarity.",
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.recall/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(pathutil.ExpandHomePath(cfgFile))
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(pathutil.ExpandHomePath("~/.recall"))
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("RECALL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Missing config file is fine: defaults and env cover everything.
	_ = viper.ReadInConfig()

	setupLogging()
}

func setupLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(viper.GetString("log.level"))) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
