// =============================================================================
// ISA Atributo - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the audit, including:
//   - Input discovery (CT-e .xml files and .zip lots)
//   - Report file naming
//   - Error log generation
//   - Processing summary generation
//   - Directory management
//
// OUTPUT LAYOUT:
//   - The spreadsheet report is written to the output directory
//   - error_log_<timestamp>.txt lists every rejected document
//   - processing_summary_<timestamp>.txt records the run statistics
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the audit.
type FileManager struct {
	// InputDir is where CT-e files and archives are picked up.
	InputDir string

	// OutputDir receives reports and logs.
	OutputDir string
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir string) *FileManager {
	return &FileManager{
		InputDir:  inputDir,
		OutputDir: outputDir,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all required directories if they don't exist.
//
// RETURNS:
//   - An error if any directory cannot be created.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.InputDir, fm.OutputDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles walks the input directory recursively and returns every
// file whose extension is one of extensions (case-insensitive), sorted by
// path so runs are reproducible.
//
// PARAMETERS:
//   - extensions: Extensions to match, with the dot (e.g., ".xml", ".zip").
//                 If none are given, every file matches.
//
// RETURNS:
//   - A slice of file paths.
//   - An error if the directory cannot be read.
func (fm *FileManager) DiscoverInputFiles(extensions ...string) ([]string, error) {
	wanted := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		wanted[strings.ToLower(ext)] = true
	}

	var files []string
	err := filepath.Walk(fm.InputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		if len(wanted) == 0 || wanted[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk input directory: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a report file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYY-MM-DD)
//               {time}      - Current time (HHMMSS)
//   - params: Extra placeholder values, e.g. {"key": "<access key>"}.
//
// RETURNS:
//   - The generated file name, always ending in .xlsx.
//
// EXAMPLE:
//   format: "ISA_Relatorio_Auditoria_{date}.xlsx"
//   output: "ISA_Relatorio_Auditoria_2024-01-15.xlsx"
func GenerateOutputFileName(format string, params map[string]string) string {
	return generateOutputFileName(format, params, time.Now())
}

func generateOutputFileName(format string, params map[string]string, now time.Time) string {
	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("2006-01-02"),
		"{time}":      now.Format("150405"),
	}

	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if !strings.HasSuffix(strings.ToLower(result), ".xlsx") {
		result += ".xlsx"
	}

	return result
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents one rejected document.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	ErrorType    string
	ErrorMessage string
}

// WriteErrorLog writes error entries to a log file.
//
// PARAMETERS:
//   - entries: The error entries to write.
//   - outputDir: The directory to write the log file.
//
// RETURNS:
//   - The path to the error log file, or "" when there was nothing to write.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	timestamp := time.Now().Format("20060102_150405")
	logPath := filepath.Join(outputDir, fmt.Sprintf("error_log_%s.txt", timestamp))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	header := fmt.Sprintf("ISA Atributo - Error Log\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries))
	writer.WriteString(header)

	for i, entry := range entries {
		writer.WriteString(fmt.Sprintf("Error #%d\n"+
			"  Timestamp:      %s\n"+
			"  File:           %s\n"+
			"  Error Type:     %s\n"+
			"  Message:        %s\n\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.FileName,
			entry.ErrorType,
			entry.ErrorMessage))
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about an audit run.
type ProcessingSummary struct {
	Version    string
	StartTime  time.Time
	EndTime    time.Time
	TotalFiles int
	Documents  int
	Records    int
	Rejected   int
	Duplicates int
	Reconciled int
	Mismatched int
	ReportFile string

	// Mismatches lists the documents whose components do not add up.
	Mismatches []MismatchInfo

	FailedFilesList []FailedFileInfo
}

// MismatchInfo identifies a document that failed reconciliation.
type MismatchInfo struct {
	SourceFile     string
	DocumentNumber string
	Declared       string
	Audited        string
}

// FailedFileInfo contains information about a rejected document or file.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// WriteSummaryLog writes a processing summary to a log file.
//
// PARAMETERS:
//   - summary: The processing summary.
//   - outputDir: The directory to write the summary file.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	timestamp := time.Now().Format("20060102_150405")
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("processing_summary_%s.txt", timestamp))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	duration := summary.EndTime.Sub(summary.StartTime)
	header := fmt.Sprintf("ISA Atributo - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Version:        %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Report:         %s\n\n"+
		"Statistics:\n"+
		"  Input Files:        %d\n"+
		"  Documents:          %d\n"+
		"  Records:            %d\n"+
		"  Rejected:           %d\n"+
		"  Duplicates Skipped: %d\n"+
		"  Reconciled:         %d\n"+
		"  Mismatched:         %d\n\n",
		summary.Version,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.ReportFile,
		summary.TotalFiles,
		summary.Documents,
		summary.Records,
		summary.Rejected,
		summary.Duplicates,
		summary.Reconciled,
		summary.Mismatched)
	writer.WriteString(header)

	if len(summary.Mismatches) > 0 {
		writer.WriteString("Reconciliation Errors:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, m := range summary.Mismatches {
			writer.WriteString(fmt.Sprintf("  File:     %s\n", m.SourceFile))
			writer.WriteString(fmt.Sprintf("  CT-e:     %s\n", m.DocumentNumber))
			writer.WriteString(fmt.Sprintf("  Declared: %s\n", m.Declared))
			writer.WriteString(fmt.Sprintf("  Audited:  %s\n\n", m.Audited))
		}
	}

	if len(summary.FailedFilesList) > 0 {
		writer.WriteString("Failed Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, ff := range summary.FailedFilesList {
			writer.WriteString(fmt.Sprintf("  File:  %s\n", ff.InputFile))
			writer.WriteString(fmt.Sprintf("  Error: %s\n\n", ff.ErrorMessage))
		}
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
