// =============================================================================
// ISA Atributo - Main Entry Point
// =============================================================================
//
// This is the main entry point for the ISA Atributo CLI application.
// It initializes the Cobra CLI framework and delegates command execution to
// the cmd package.
//
// USAGE:
//   isa audit [paths...]    - Audit CT-e files and write the report
//   isa lookup <chave>      - Fetch one CT-e by access key and audit it
//   isa serve               - Start the HTTP API
//   isa version             - Display the application version
//
// ARCHITECTURE:
//   This application follows a modular design where:
//   - cmd/           : Contains all CLI command definitions (Cobra)
//   - internal/      : Contains core business logic (not for external import)
//   - pkg/           : Contains shared utilities
//
// =============================================================================

package main

import (
	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/cmd"
)

// main is the entry point of the application.
// It simply calls the Execute function from the cmd package, which
// initializes and runs the Cobra CLI.
func main() {
	cmd.Execute()
}
