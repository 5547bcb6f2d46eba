package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/btreefs/pkg/bkey"
)

var (
	demoBtreeID uint32
	demoNrKeys  int
)

// demoCmd drives a synthetic workload against an in-memory demo tree —
// the synthetic driver of SPEC_FULL.md §2. It only inserts keys, so it
// exercises splits; it drives no merges. Grounded on the teacher's put.go
// (one command, one store call, print the result).
var demoCmd = &cobra.Command{
	Use:   "demo-split",
	Short: "Root-alloc a btree and insert synthetic keys to exercise splits",
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

		ctx := context.Background()

		root, ok := e.fs.RootForRead(demoBtreeID)
		if !ok {
			root, err = e.fs.RootAllocFor(ctx, demoBtreeID, 0)
			if err != nil {
				return fmt.Errorf("root_alloc: %w", err)
			}
			fmt.Printf("allocated root for btree_id=%d\n", demoBtreeID)
		}

		keys := make([]bkey.BKey, 0, demoNrKeys)
		for i := 0; i < demoNrKeys; i++ {
			keys = append(keys, bkey.BKey{
				Pos: bkey.Key{Inode: uint64(i), Offset: 0, Snapshot: 0},
				Pointer: bkey.Pointer{
					Version: bkey.PointerV1,
					Ptrs:    []bkey.DevicePtr{{Device: 0, Bucket: uint64(i), Gen: 0}},
				},
			})
		}

		if err := e.fs.InsertNode(ctx, root, keys, 0); err != nil {
			return fmt.Errorf("insert_node: %w", err)
		}

		processed := e.fs.ProcessPendingSync(ctx)
		fmt.Printf("inserted %d synthetic keys, published %d updates\n", demoNrKeys, processed)
		fmt.Printf("nr_pending: %d\n", e.fs.NrPending())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().Uint32Var(&demoBtreeID, "btree-id", 1, "btree id to operate on")
	demoCmd.Flags().IntVar(&demoNrKeys, "keys", 64, "number of synthetic keys to insert")
}
