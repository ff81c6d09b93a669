package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/wayfarer"
	"github.com/aretw0/wayfarer/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "wayfarer",
	Short: "Wayfarer is a conversational travel planner",
	Long: `Wayfarer plans trips through a conversation: it asks what it needs to know,
researches the destination on the web and writes a day-by-day guide you can refine.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (default: ./wayfarer.yaml when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the log level (debug, info, warn, error)")
}

// loadConfig reads configuration and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.App.LogLevel = level
	}
	return cfg, nil
}

func newApp(cmd *cobra.Command, opts ...wayfarer.Option) (*wayfarer.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return wayfarer.New(cfg, opts...)
}
