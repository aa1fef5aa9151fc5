package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docpanel-ai/docpanel/internal/config"
	"github.com/docpanel-ai/docpanel/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger *logging.Logger

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "docpanel",
	Short: "Windowed document analysis with parallel expert evaluation",
	Long: `docpanel answers a configured set of questions against large documents.
It slices the document into overlapping page windows sized to the evaluator's
context budget, fans each window out to parallel experts, and accumulates
their answers into a deduplicated, page-cited report.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initConfig()
	},
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// SetVersion injects build-time version information.
func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .docpanel.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"log format (auto, text, json)")
}

func initConfig() error {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader = loader.WithConfigFile(cfgFile)
	}

	loaded, err := loader.Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	if logFormat != "" {
		loaded.Log.Format = logFormat
	}
	if err := config.Validate(loaded); err != nil {
		return err
	}

	cfg = loaded
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Format = cfg.Log.Format
	logCfg.Output = os.Stderr
	logger = logging.New(logCfg)
	return nil
}
