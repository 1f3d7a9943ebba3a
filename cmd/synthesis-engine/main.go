// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the synthesis-engine CLI.
// Implements: prd005-orchestration, prd006-corpus, prd007-archive,
//             prd008-reporting (CLI surface).
// See docs/ARCHITECTURE § Engine Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/synthesis-engine/internal/secrets"
	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, otherwise the secret value for
// key from the environment or the loaded secrets.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return secrets.Value(loadedSecrets, key)
}

// rootCmd is the base command for the synthesis-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "synthesis-engine",
	Short: "Progressive literature synthesis over a bounded corpus",
	Long: `synthesis-engine runs progressive literature synthesis: it feeds a corpus of
literature items to a synthesis oracle in adaptively sized batches, skips items
whose content deviates too far from the accumulated knowledge, and stops when
the information gain converges.

Each concern is a subcommand: run executes one synthesis, score previews
reliability annotation, and history manages the archive of finished runs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
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
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./synthesis-engine.yaml or ~/.config/synthesis-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("synthesis-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "synthesis-engine"))
		}
	}

	viper.SetEnvPrefix("SYNTHESIS_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("archive.path", "output/synthesis/runs.db")
	viper.SetDefault("logging.path", "output/logs/synthesis-engine.log")
	viper.SetDefault("report.output_dir", "output/reports")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadSynthesisConfig assembles the tool configuration: house engine
// defaults, the viper-managed scalar settings, then the config file's
// overrides on top.
func loadSynthesisConfig() (types.SynthesisConfig, error) {
	cfg := types.SynthesisConfig{
		Engine: types.DefaultEngineConfig(),
		Archive: types.ArchiveConfig{
			Path: viper.GetString("archive.path"),
		},
		Logging: types.LoggingConfig{
			Path:  viper.GetString("logging.path"),
			Debug: viper.GetBool("logging.debug"),
		},
		Report: types.ReportConfig{
			OutputDir: viper.GetString("report.output_dir"),
		},
	}

	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
