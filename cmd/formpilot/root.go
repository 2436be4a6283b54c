package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/platinummonkey/formpilot/internal/config"
	"github.com/platinummonkey/formpilot/internal/logger"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "formpilot",
	Short: "Detect, map and fill PDF form fields from a profile",
	Long: `formpilot reads a PDF form, finds its fields and fills them from a
family profile.

Features:
  - Extract text from the embedded text layer or by OCR
  - Detect labeled fields with configurable rules
  - Map AcroForm fields to profile values by fuzzy matching
  - Translate German field names into English labels
  - Serve the pipeline over HTTP`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.formpilot.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	flags.String("log-file", "", "also append logs to this file")
	flags.String("ocr-engine", "tesseract", "text recognizer (tesseract, vision, none)")
	flags.String("rules-file", "", "YAML detection rules (default is the built-in set)")
	flags.Bool("translate", false, "translate labels with the configured LLM provider")

	_ = viper.BindPFlag("log-level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log-format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("log-file", flags.Lookup("log-file"))
	_ = viper.BindPFlag("ocr-engine", flags.Lookup("ocr-engine"))
	_ = viper.BindPFlag("rules-file", flags.Lookup("rules-file"))
	_ = viper.BindPFlag("translation-enabled", flags.Lookup("translate"))
}

// setup loads the configuration and initializes the global logger
func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadWithViper(viper.GetViper(), cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg := &logger.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: cfg.LogFile,
	}
	if err := logger.Init(logCfg); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, logger.Get(), nil
}
