// =============================================================================
// ISA Atributo - Lookup Command
// =============================================================================
//
// This file defines the 'lookup' command, which fetches one CT-e from the
// Meu Danfe API by its 44-digit access key and audits it.
//
// COMMAND USAGE:
//   isa lookup <chave> [flags]
//
// FLAGS:
//   --save   : Write the raw XML to this path
//   --export : Write a one-row spreadsheet report to this path
//
// The API key is read from the environment variable named by
// lookup.api_key_env (MEU_DANFE_API_KEY by default).
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/cte"
	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/export"
	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/lookup"
	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/view"
)

var (
	// savePath receives the raw XML when set.
	savePath string

	// exportPath receives a one-row report when set.
	exportPath string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <chave>",
	Short: "Fetch a CT-e by access key and audit it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := lookup.ValidateKey(args[0])
		if err != nil {
			return err
		}

		client := lookup.NewClient(appConfig.Lookup.BaseURL, appConfig.Lookup.APIKey(), appConfig.Lookup.Timeout, logger)
		body, err := client.FetchXML(cmd.Context(), key)
		if err != nil {
			if errors.Is(err, lookup.ErrMissingAPIKey) {
				return fmt.Errorf("%w: set %s", err, appConfig.Lookup.APIKeyEnv)
			}
			return err
		}

		if savePath != "" {
			if err := os.WriteFile(savePath, body, 0644); err != nil {
				return fmt.Errorf("failed to save xml: %w", err)
			}
			logger.Info().Str("path", savePath).Msg("XML saved")
		}

		rec, err := cte.NewExtractor(logger).Extract(key+".xml", body)
		if err != nil {
			return err
		}
		fmt.Println(view.Detail(rec))

		if exportPath != "" {
			if err := export.SaveFile(exportPath, []*cte.AuditRecord{rec}); err != nil {
				return err
			}
			fmt.Printf("Report: %s\n", exportPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().StringVar(&savePath, "save", "", "Write the raw XML to this path")
	lookupCmd.Flags().StringVar(&exportPath, "export", "", "Write a one-row .xlsx report to this path")
}
