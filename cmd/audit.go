// =============================================================================
// ISA Atributo - Audit Command
// =============================================================================
//
// This file defines the 'audit' command, the main command of the tool. It
// orchestrates the whole audit of a batch of CT-e documents.
//
// COMMAND USAGE:
//   isa audit [paths...] [flags]
//
//   Paths may be .xml files, .zip lots or directories. With no paths, every
//   .xml and .zip under input_dir is audited.
//
// FLAGS:
//   --output      : Report path (default: output_dir + report_name_format)
//   --dry-run     : Audit and print results without writing any file
//   --concurrency : Worker pool size (default: max_concurrency)
//   --filter      : Only report records matching this text
//   --show        : Print the detail card of every record
//
// PROCESSING PIPELINE:
//   1. Discover input files
//   2. Load documents (unpacking .zip lots)
//   3. Extract and reconcile every document concurrently
//   4. Validate the extracted records
//   5. Print the batch table
//   6. Write the spreadsheet report
//   7. Write the error log and processing summary
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/audit"
	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/cte"
	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/export"
	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/validation"
	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/view"
	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	// auditOutput overrides the report path.
	auditOutput string

	// dryRun audits without writing output files.
	dryRun bool

	// concurrency overrides max_concurrency when positive.
	concurrency int

	// filterQuery restricts the reported records.
	filterQuery string

	// showDetail prints one card per record.
	showDetail bool
)

// =============================================================================
// AUDIT COMMAND DEFINITION
// =============================================================================

var auditCmd = &cobra.Command{
	Use:   "audit [paths...]",
	Short: "Audit CT-e XML files and write the reconciliation report",
	Long: `The audit command extracts every CT-e it is given, reconciles the declared
freight total against the sum of its components and writes a spreadsheet
report to the output directory.

Each document is processed independently: a malformed or unrelated file is
logged and skipped, the rest of the batch is still audited.

Outputs:
  - ISA_Relatorio_Auditoria_<date>.xlsx with one row per CT-e
  - error_log_<timestamp>.txt when documents were rejected
  - processing_summary_<timestamp>.txt (write_summary_log)`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runAudit(cmd.Context(), args)
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVarP(&auditOutput, "output", "o", "", "Report path (default: output_dir/report_name_format)")
	auditCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Audit without writing any output file")
	auditCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Worker pool size (default: max_concurrency)")
	auditCmd.Flags().StringVar(&filterQuery, "filter", "", "Only report records whose number, cities, key or parties contain this text")
	auditCmd.Flags().BoolVar(&showDetail, "show", false, "Print the detail card of every record")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runAudit orchestrates the audit pipeline.
func runAudit(ctx context.Context, paths []string) error {
	startTime := time.Now()
	fm := utils.NewFileManager(appConfig.InputDir, appConfig.OutputDir)

	// =========================================================================
	// STEP 1: DISCOVER INPUT FILES
	// =========================================================================

	inputFiles, err := resolveInputs(fm, paths)
	if err != nil {
		return err
	}
	if len(inputFiles) == 0 {
		fmt.Println("No .xml or .zip files found.")
		return nil
	}
	logger.Info().Int("files", len(inputFiles)).Msg("Input files discovered")

	// =========================================================================
	// STEP 2: LOAD DOCUMENTS
	// =========================================================================

	var docs []audit.Document
	var fileFailures []audit.Failure
	for _, path := range inputFiles {
		loaded, err := audit.LoadFile(path)
		if err != nil {
			logger.Warn().Str("source", path).Err(err).Msg("File skipped")
			fileFailures = append(fileFailures, audit.Failure{Label: path, Err: err})
			continue
		}
		docs = append(docs, loaded...)
	}

	// =========================================================================
	// STEP 3: EXTRACT AND RECONCILE
	// =========================================================================

	workers := appConfig.MaxConcurrency
	if concurrency > 0 {
		workers = concurrency
	}
	runner := audit.NewRunner(cte.NewExtractor(logger), audit.Options{
		Concurrency: workers,
		Deduplicate: appConfig.Deduplicate,
	}, logger)

	report, runErr := runner.Run(ctx, docs)
	failures := append(fileFailures, report.Failures...)

	// =========================================================================
	// STEP 4: VALIDATE RECORDS
	// =========================================================================

	validationResult := validation.NewValidator().ValidateAll(report.Records)
	for _, finding := range validationResult.Errors {
		logger.Warn().
			Str("source", finding.SourceFilename).
			Str("rule", finding.Rule).
			Str("value", finding.Value).
			Msg(finding.Message)
	}

	// =========================================================================
	// STEP 5: PRINT RESULTS
	// =========================================================================

	records := audit.Filter(report.Records, filterQuery)
	if len(records) > 0 {
		fmt.Println(view.Table(records))
	}
	if showDetail {
		for _, rec := range records {
			fmt.Println(view.Detail(rec))
		}
	}
	for _, f := range failures {
		fmt.Printf("  ✗ %s: %v\n", f.Label, f.Err)
	}

	fmt.Println("\n=== Audit Complete ===")
	fmt.Printf("Files:           %d\n", len(inputFiles))
	fmt.Printf("Documents:       %d\n", report.Stats.Documents)
	fmt.Printf("Records:         %d\n", len(report.Records))
	fmt.Printf("Reconciled:      %d\n", report.Stats.Reconciled)
	fmt.Printf("Mismatched:      %d\n", report.Stats.Mismatched)
	fmt.Printf("Rejected:        %d\n", len(failures))
	if n := len(validationResult.Errors); n > 0 {
		fmt.Printf("Findings:        %d (%d errors, %d warnings)\n", n, validationResult.ErrorCount, validationResult.WarningCount)
	}
	if report.Stats.Duplicates > 0 {
		fmt.Printf("Duplicates:      %d\n", report.Stats.Duplicates)
	}
	fmt.Printf("Time elapsed:    %s\n", time.Since(startTime))

	if dryRun {
		fmt.Println("\nDry run: no files written.")
		return runErr
	}

	// =========================================================================
	// STEP 6: WRITE REPORT
	// =========================================================================

	if err := fm.EnsureDirectories(); err != nil {
		return err
	}

	reportPath := ""
	if len(records) > 0 {
		reportPath = auditOutput
		if reportPath == "" {
			reportPath = filepath.Join(appConfig.OutputDir, utils.GenerateOutputFileName(appConfig.ReportNameFormat, nil))
		}
		if err := export.SaveFile(reportPath, records); err != nil {
			return err
		}
		fmt.Printf("\nReport: %s\n", reportPath)
		logger.Info().Str("path", reportPath).Int("records", len(records)).Msg("Report written")
	}

	// =========================================================================
	// STEP 7: WRITE LOGS
	// =========================================================================

	if logPath, err := utils.WriteErrorLog(errorLogEntries(failures, validationResult.Errors), appConfig.OutputDir); err != nil {
		logger.Error().Err(err).Msg("Failed to write error log")
	} else if logPath != "" {
		fmt.Printf("Errors have been logged to %s\n", logPath)
	}

	if appConfig.SummaryLogEnabled() {
		summary := buildSummary(startTime, len(inputFiles), report, failures, reportPath)
		if _, err := utils.WriteSummaryLog(summary, appConfig.OutputDir); err != nil {
			logger.Error().Err(err).Msg("Failed to write processing summary")
		}
	}

	return runErr
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// resolveInputs expands the command arguments into input files. Directories
// are walked; with no arguments the configured input directory is used.
func resolveInputs(fm *utils.FileManager, paths []string) ([]string, error) {
	if len(paths) == 0 {
		files, err := fm.DiscoverInputFiles(".xml", ".zip")
		if err != nil {
			return nil, fmt.Errorf("failed to discover input files: %w", err)
		}
		return files, nil
	}

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to access %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := utils.NewFileManager(p, "").DiscoverInputFiles(".xml", ".zip")
		if err != nil {
			return nil, fmt.Errorf("failed to discover input files: %w", err)
		}
		files = append(files, found...)
	}
	return files, nil
}

// errorType names the failure category written to the error log.
func errorType(err error) string {
	switch {
	case errors.Is(err, cte.ErrMalformedXML):
		return "malformed_xml"
	case errors.Is(err, cte.ErrMissingRoot):
		return "not_a_cte"
	case errors.Is(err, audit.ErrUnsupportedFile):
		return "unsupported_file"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "read_error"
	}
}

// errorLogEntries lists rejected documents first, then validation findings.
func errorLogEntries(failures []audit.Failure, findings []*validation.ValidationError) []utils.ErrorLogEntry {
	entries := make([]utils.ErrorLogEntry, 0, len(failures)+len(findings))
	now := time.Now()
	for _, f := range failures {
		entries = append(entries, utils.ErrorLogEntry{
			Timestamp:    now,
			FileName:     f.Label,
			ErrorType:    errorType(f.Err),
			ErrorMessage: f.Err.Error(),
		})
	}
	for _, f := range findings {
		entries = append(entries, utils.ErrorLogEntry{
			Timestamp:    now,
			FileName:     f.SourceFilename,
			ErrorType:    "validation_" + f.Rule,
			ErrorMessage: f.Error(),
		})
	}
	return entries
}

func buildSummary(start time.Time, files int, report *audit.Report, failures []audit.Failure, reportPath string) utils.ProcessingSummary {
	summary := utils.ProcessingSummary{
		Version:    Version,
		StartTime:  start,
		EndTime:    time.Now(),
		TotalFiles: files,
		Documents:  report.Stats.Documents,
		Records:    len(report.Records),
		Rejected:   len(failures),
		Duplicates: report.Stats.Duplicates,
		Reconciled: report.Stats.Reconciled,
		Mismatched: report.Stats.Mismatched,
		ReportFile: reportPath,
	}
	for _, rec := range report.Records {
		if rec.Status() == cte.StatusReconciled {
			continue
		}
		summary.Mismatches = append(summary.Mismatches, utils.MismatchInfo{
			SourceFile:     rec.SourceFilename,
			DocumentNumber: rec.DocumentNumber,
			Declared:       cte.FormatAmount(rec.DeclaredTotal),
			Audited:        cte.FormatAmount(rec.ReconciledSum()),
		})
	}
	for _, f := range failures {
		summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
			InputFile:    f.Label,
			ErrorMessage: f.Err.Error(),
		})
	}
	return summary
}
