// =============================================================================
// ISA Atributo - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (isa)
//   ├── auditCmd   (isa audit)
//   ├── lookupCmd  (isa lookup)
//   ├── serveCmd   (isa serve)
//   └── versionCmd (isa version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the configuration file before any subcommand runs
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/config"
	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// appConfig is loaded by the root command before any subcommand runs.
var appConfig *config.MainConfig

// logger is configured from appConfig.
var logger = zerolog.Nop()

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "isa",
	Short: "ISA Atributo - CT-e freight audit",
	Long: `ISA Atributo reads CT-e (Conhecimento de Transporte Eletrônico) XML files,
extracts the audit fields of each document and checks that the declared
freight total matches the sum of its cost components.

Key Features:
  - Namespace-agnostic extraction of CT-e 3.00/4.00 documents
  - Reconciliation of freight, toll, GRIS and ICMS components
  - .xml files and .zip lots, processed concurrently
  - Spreadsheet report for the audit team
  - Document lookup by access key (Meu Danfe API)

Example Usage:
  isa audit                         # Audit every file in the input directory
  isa audit lote.zip --output r.xlsx
  isa lookup 3524...1234            # Fetch and audit one document
  isa serve                         # Start the HTTP API`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing config.yaml is fine; an explicitly named file must exist.
		optional := !cmd.Flags().Changed("config")
		cfg, err := config.LoadMainConfig(cfgFile, optional)
		if err != nil {
			return fmt.Errorf("failed to load main config: %w", err)
		}
		appConfig = cfg

		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger = logging.New(os.Stderr, level, cfg.LogFormat)
		return nil
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. Interrupts cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}
