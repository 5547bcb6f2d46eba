package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/btreefs/pkg/config"
)

var initOutPath string

// initCmd writes a default config file, grounded on the teacher's
// cmd/freyja/cmd/init.go (write a starter file to disk before serving).
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default btreefs config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Default()
		if err := config.Save(cfg, initOutPath); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Printf("wrote default config to %s\n", initOutPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initOutPath, "out", "./btreefs.yaml", "output path for the config file")
}
