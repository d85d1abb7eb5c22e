// Package commands implements the CLI commands for vetprice.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/vetprice/internal/config"
	"github.com/jmylchreest/vetprice/internal/logger"
	"github.com/jmylchreest/vetprice/pkg/catalog"
)

var rootCmd = &cobra.Command{
	Use:   "vetprice",
	Short: "Veterinary medication price collector",
	Long: `Vetprice collects prices of veterinary medications from Brazilian pet
stores (Cobasi, Petlove, Petz).

Every catalog term is searched on every store. Pages are fetched with a
plain HTTP client first and rendered in a headless browser only when the
HTTP path is blocked. One record is written per product size.

Examples:
  # Scan every store
  vetprice scan

  # Quick check against a single store
  vetprice scan --site petz --test-mode

  # Write JSON into ./out using the rod engine
  vetprice scan --format json --output-dir out --engine rod`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// cfg is loaded once per invocation by setup.
var cfg *config.Config

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.vetprice.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs to this file")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".vetprice")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(viper.GetViper())
	if err != nil {
		logError("%v", err)
		return err
	}
	cfg = loaded

	if err := logger.Init(logger.Options{
		Debug: cfg.Debug,
		Quiet: cfg.Quiet,
		File:  cfg.LogFile,
	}); err != nil {
		logError("%v", err)
		return err
	}
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("config loaded", "file", used)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logger.Close() }()
	return rootCmd.Execute()
}

// loadCatalog returns the configured catalog or the built-in one.
func loadCatalog() (*catalog.Catalog, error) {
	if cfg == nil || cfg.Catalog == "" {
		return catalog.Default(), nil
	}
	c, err := catalog.Load(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return c, nil
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
