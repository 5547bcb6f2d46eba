/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/btreefs/pkg/config"
)

var cfgPath string

// rootCmd is the btreefsctl admin tool of SPEC_FULL.md §2 — an "admin
// tool" in spec §2's sense, exposing updates_to_text/nr_pending and a
// synthetic split driver, grounded on the teacher's
// cmd/freyja/cmd/root.go (PersistentPreRunE opens the store; here it
// loads the engine config instead).
var rootCmd = &cobra.Command{
	Use:   "btreefsctl",
	Short: "Admin tool for the btreefs interior-node topology engine",
	Long: `btreefsctl drives and inspects the interior-node topology-update
engine: driving splits against a demo tree, and reporting the
engine's live Update state (updates_to_text, nr_pending).`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML config file (defaults to built-in defaults)")
}

func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
