// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the research-agent CLI. It collects
// bibliographic records for a topic from several scholarly sources,
// deduplicates and scores them, and writes per-paper JSON files, an index
// and citation exports.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-agent/internal/observability"
	"github.com/pdiddy/research-agent/internal/secrets"
	"github.com/pdiddy/research-agent/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built from the logging config before any subcommand runs.
var logger = zerolog.Nop()

// credentials resolves API keys from the environment, .env and .secrets/.
var credentials *secrets.Resolver

// rootCmd is the base command for the research-agent CLI.
var rootCmd = &cobra.Command{
	Use:   "research-agent",
	Short: "Collect, deduplicate and score papers from scholarly sources",
	Long: `research-agent queries OpenAlex, arXiv, PubMed, HAL, DBLP and optionally
DOAJ, CORE, Scopus, IEEE Xplore and Crossref for a topic. Results are merged,
deduplicated by identifier, scored for relevance and written as one JSON file
per paper plus an index, BibTeX and CSL exports.

Credentials (SCOPUS_API_KEY, IEEE_API_KEY, CORE_API_KEY, OPENALEX_MAILTO,
PUBMED_EMAIL) are read from the environment, a .env file, or .secrets/.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		logger = observability.NewLogger(loggingConfig(verbose))

		r, err := secrets.NewResolver(secrets.DefaultDotEnv, secrets.DefaultDir, logger)
		if err != nil {
			return err
		}
		credentials = r
		if len(r.Files) > 0 || len(r.DotEnv) > 0 {
			logger.Debug().Int("files", len(r.Files)).Int("dotenv", len(r.DotEnv)).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./research-agent.yaml or ~/.config/research-agent/research-agent.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log progress at debug level")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("research-agent")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "research-agent"))
		}
	}

	viper.SetEnvPrefix("RESEARCH_AGENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loggingConfig reads the log section, with --verbose forcing debug.
func loggingConfig(verbose bool) types.LoggingConfig {
	cfg := observability.DefaultLoggingConfig()
	if v := viper.GetString("log.level"); v != "" {
		cfg.Level = v
	}
	if v := viper.GetString("log.format"); v != "" {
		cfg.Format = v
	}
	if v := viper.GetString("log.output"); v != "" {
		cfg.Output = v
	}
	if verbose {
		cfg.Level = "debug"
	}
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
