package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// statusCmd prints the two upward entry points spec §6 names for
// operator visibility: nr_pending and updates_to_text, grounded on the
// teacher's cmd/freyja/cmd/get.go (open the store, run one query, print,
// close).
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report nr_pending and the live updates_to_text dump",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		e, err := bootstrap(cfg)
		if err != nil {
			return err
		}
		defer e.Close()

		fmt.Printf("nr_pending: %d\n", e.fs.NrPending())
		for _, line := range e.fs.UpdatesToText() {
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
