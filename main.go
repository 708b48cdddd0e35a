// =============================================================================
// ICD Codebook Mapper - Main Entry Point
// =============================================================================
//
// This is the main entry point for the icdmap CLI application. It sets up
// signal handling and delegates command execution to the cmd package.
//
// USAGE:
//   icdmap process      - Build every configured codebook table
//   icdmap parse        - Build one table from flags
//   icdmap equivalence  - Link ICD-9 codes to ICD-10 subcategories
//   icdmap validate     - Validate configuration and inputs
//   icdmap version      - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Parsing, matching and output logic
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ginjaninja78/icd-codebook-mapper/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cmd.Execute(ctx)
	stop()
	os.Exit(code)
}
