// =============================================================================
// ICD Codebook Mapper - File Management Utilities
// =============================================================================
//
// This module provides utility functions for file operations:
//   - Output directory setup
//   - Output file naming ({name}, {uuid}, {timestamp} placeholders)
//   - Diagnostics log generation (the end-of-run flag reports)
//   - Processing summary generation
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

// FileManager owns the output directory of one run.
type FileManager struct {
	// OutputDir receives tables and run logs.
	OutputDir string

	// RunID tags the logs of this run.
	RunID string
}

// NewFileManager creates a FileManager with a fresh run id.
func NewFileManager(outputDir string) *FileManager {
	return &FileManager{
		OutputDir: outputDir,
		RunID:     uuid.New().String(),
	}
}

// EnsureDirectories creates the output directory and any extra directories
// (for example the parent of the SQLite database).
func (fm *FileManager) EnsureDirectories(extra ...string) error {
	dirs := append([]string{fm.OutputDir}, extra...)
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// OutputPath returns the full path of a table file in the output directory.
func (fm *FileManager) OutputPath(nameFormat, name, extension string) string {
	return filepath.Join(fm.OutputDir, GenerateOutputFileName(nameFormat, extension, map[string]string{"name": name}))
}

// =============================================================================
// FILE NAMING
// =============================================================================

// GenerateOutputFileName generates an output file name based on a format string.
//
// PARAMETERS:
//   - format: The format string with placeholders.
//   - extension: The extension to ensure, with the dot (".csv").
//   - params: Additional parameters to replace in the format string.
//
// PLACEHOLDERS:
//   - {uuid}: A random UUID
//   - {timestamp}: Current timestamp (YYYYMMDD_HHMMSS)
//   - {date}: Current date (YYYYMMDD)
//   - {time}: Current time (HHMMSS)
//   - {key}: Any key from the params map
//
// RETURNS:
//   - The generated file name.
func GenerateOutputFileName(format, extension string, params map[string]string) string {
	now := time.Now()

	replacements := []string{
		"{uuid}", uuid.New().String(),
		"{timestamp}", now.Format("20060102_150405"),
		"{date}", now.Format("20060102"),
		"{time}", now.Format("150405"),
	}
	for key, value := range params {
		replacements = append(replacements, "{"+key+"}", value)
	}

	result := strings.NewReplacer(replacements...).Replace(format)

	if extension != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(extension)) {
		result += extension
	}
	return result
}

// =============================================================================
// DIAGNOSTICS LOG
// =============================================================================

// DiagnosticEntry is one advisory finding of a run.
type DiagnosticEntry struct {
	Codebook string
	Kind     string
	Line     int
	Text     string
	Detail   string
}

// WriteDiagnosticsLog writes every diagnostic grouped by kind. Kinds are
// listed in the order they first appear. It writes nothing and returns an
// empty path when there are no entries.
//
// RETURNS:
//   - The path to the log file.
//   - An error if the file cannot be written.
func WriteDiagnosticsLog(entries []DiagnosticEntry, outputDir, runID string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	logPath := filepath.Join(outputDir, fmt.Sprintf("diagnostics_%s.txt", time.Now().Format("20060102_150405")))
	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create diagnostics log: %w", err)
	}
	defer file.Close()

	var kinds []string
	byKind := make(map[string][]DiagnosticEntry)
	for _, e := range entries {
		if _, seen := byKind[e.Kind]; !seen {
			kinds = append(kinds, e.Kind)
		}
		byKind[e.Kind] = append(byKind[e.Kind], e)
	}

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "ICD Codebook Mapper - Diagnostics\n"+
		"Run ID: %s\n"+
		"Generated: %s\n"+
		"Total Diagnostics: %d\n"+
		"================================================================================\n\n",
		runID, time.Now().Format("2006-01-02 15:04:05"), len(entries))

	for _, kind := range kinds {
		group := byKind[kind]
		fmt.Fprintf(writer, "%s (%d)\n", kind, len(group))
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, e := range group {
			fmt.Fprintf(writer, "  [%s] line %d: %s", e.Codebook, e.Line, e.Text)
			if e.Detail != "" {
				fmt.Fprintf(writer, " (%s)", e.Detail)
			}
			writer.WriteString("\n")
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Diagnostics\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush diagnostics log: %w", err)
	}
	return logPath, nil
}

// =============================================================================
// SUMMARY LOG
// =============================================================================

// ProcessingSummary contains the summary of a processing run.
type ProcessingSummary struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time

	TotalCodebooks   int
	Successful       int
	Failed           int
	TotalRecords     int
	TotalDiagnostics int
	ValidationErrors int

	ProcessedCodebooks []ProcessedCodebookInfo
	FailedCodebooks    []FailedCodebookInfo

	// Equivalence is nil when the equivalence step did not run.
	Equivalence *EquivalenceInfo
}

// ProcessedCodebookInfo contains information about a successfully built table.
type ProcessedCodebookInfo struct {
	Name        string
	InputFile   string
	Output      string
	Records     int
	Diagnostics int
	ProcessTime time.Duration
}

// FailedCodebookInfo contains information about a failed job.
type FailedCodebookInfo struct {
	Name         string
	InputFile    string
	ErrorMessage string
}

// EquivalenceInfo contains the equivalence counts.
type EquivalenceInfo struct {
	Output    string
	Total     int
	Matched   int
	Unmatched int
	ByStage   map[string]int
}

// WriteSummaryLog writes a processing summary to a file.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if the file cannot be written.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("processing_summary_%s.txt", time.Now().Format("20060102_150405")))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	writer.WriteString(FormatSummary(summary))

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}
	return summaryPath, nil
}

// FormatSummary renders the summary as text.
func FormatSummary(summary ProcessingSummary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "ICD Codebook Mapper - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Total Codebooks:    %d\n"+
		"  Successful:         %d\n"+
		"  Failed:             %d\n"+
		"  Total Records:      %d\n"+
		"  Diagnostics:        %d\n"+
		"  Validation Errors:  %d\n\n",
		summary.RunID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.TotalCodebooks,
		summary.Successful,
		summary.Failed,
		summary.TotalRecords,
		summary.TotalDiagnostics,
		summary.ValidationErrors)

	if len(summary.ProcessedCodebooks) > 0 {
		sb.WriteString("Successful Codebooks:\n")
		sb.WriteString("--------------------------------------------------------------------------------\n")
		for _, pc := range summary.ProcessedCodebooks {
			fmt.Fprintf(&sb, "  Name:         %s\n", pc.Name)
			fmt.Fprintf(&sb, "  Input:        %s\n", pc.InputFile)
			fmt.Fprintf(&sb, "  Output:       %s\n", pc.Output)
			fmt.Fprintf(&sb, "  Records:      %d\n", pc.Records)
			fmt.Fprintf(&sb, "  Diagnostics:  %d\n", pc.Diagnostics)
			fmt.Fprintf(&sb, "  Process Time: %s\n\n", pc.ProcessTime.String())
		}
	}

	if len(summary.FailedCodebooks) > 0 {
		sb.WriteString("Failed Codebooks:\n")
		sb.WriteString("--------------------------------------------------------------------------------\n")
		for _, fc := range summary.FailedCodebooks {
			fmt.Fprintf(&sb, "  Name:  %s\n", fc.Name)
			fmt.Fprintf(&sb, "  Input: %s\n", fc.InputFile)
			fmt.Fprintf(&sb, "  Error: %s\n\n", fc.ErrorMessage)
		}
	}

	if eq := summary.Equivalence; eq != nil {
		sb.WriteString("Equivalence:\n")
		sb.WriteString("--------------------------------------------------------------------------------\n")
		fmt.Fprintf(&sb, "  Output:       %s\n", eq.Output)
		fmt.Fprintf(&sb, "  Total codes:  %d\n", eq.Total)
		fmt.Fprintf(&sb, "  Matched:      %d\n", eq.Matched)
		fmt.Fprintf(&sb, "  Not matched:  %d\n", eq.Unmatched)

		stages := make([]string, 0, len(eq.ByStage))
		for stage := range eq.ByStage {
			stages = append(stages, stage)
		}
		sort.Strings(stages)
		for _, stage := range stages {
			fmt.Fprintf(&sb, "    %-20s %d\n", stage+":", eq.ByStage[stage])
		}
		sb.WriteString("\n")
	}

	sb.WriteString("================================================================================\n" +
		"End of Summary\n")
	return sb.String()
}

// =============================================================================
// FILE CHECKS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// CheckInputFile returns an error unless path is an existing regular file.
func CheckInputFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("input %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("input %s is a directory", path)
	}
	return nil
}
