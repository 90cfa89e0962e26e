package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vibebros/config"
	"vibebros/logging"
)

var cfgFile string
var appConfig config.Config
var logs *logging.Provider

var rootCmd = &cobra.Command{
	Use:   "vibebros",
	Short: "VibeBros community site and blog",
	Long: `vibebros serves the VibeBros landing page and blog from a directory
of Markdown posts with YAML front matter.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("content-dir", "", "directory holding the blog posts (overrides config)")
}

func initializeConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if dir, _ := cmd.Flags().GetString("content-dir"); dir != "" {
		cfg.ContentDir = dir
	}

	provider, err := logging.NewProvider(cfg.Log)
	if err != nil {
		return err
	}

	appConfig = cfg
	logs = provider
	return nil
}
