// =============================================================================
// ISA Atributo - Serve Command
// =============================================================================
//
// This file defines the 'serve' command, which starts the HTTP API.
//
// COMMAND USAGE:
//   isa serve [--addr :8080]
//
// ENDPOINTS:
//   POST /api/cte/consultar     {"chave": "<44 digits>"} -> raw CT-e XML
//   POST /api/cte/audit         raw CT-e XML body        -> audit record (JSON)
//   GET  /api/cte/:chave/audit  fetch + audit            -> audit record (JSON)
//   GET  /health
//
// =============================================================================

package cmd

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/cte"
	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/lookup"
	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/server"
)

// serveAddr overrides server.addr when set.
var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig.Server
		cfg.Version = Version
		if serveAddr != "" {
			cfg.Addr = serveAddr
		}
		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		client := lookup.NewClient(appConfig.Lookup.BaseURL, appConfig.Lookup.APIKey(), appConfig.Lookup.Timeout, logger)
		if client.APIKey == "" {
			logger.Warn().Str("env", appConfig.Lookup.APIKeyEnv).Msg("Lookup API key not set; /api/cte/consultar will fail")
		}
		srv := server.NewServer(logger, cfg, client, cte.NewExtractor(logger))

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-cmd.Context().Done():
			return srv.Stop(context.Background())
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr)")
}
