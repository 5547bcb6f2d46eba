package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/ssargent/btreefs/pkg/debugsrv"
)

var servePort int

// serveCmd starts the debug/observability HTTP surface of SPEC_FULL.md
// §2, grounded on the teacher's cmd/freyja/cmd/serve.go (load the store,
// build the chi router, listen). Unlike the teacher's REST API, this
// surface carries no data-plane routes (SPEC_FULL.md Non-goals) — just
// /metrics, /debug/updates and /debug/pending.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the debug/metrics HTTP server",
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

		srv := debugsrv.New(e.fs, e.registry)
		addr := fmt.Sprintf(":%d", servePort)
		fmt.Printf("btreefsctl debug server listening on %s\n", addr)
		log.Fatal(http.ListenAndServe(addr, srv))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8090, "port to listen on")
}
