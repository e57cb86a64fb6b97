package convert

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// DirSummary reports the outcome of a directory conversion.
type DirSummary struct {
	// Processed is the number of files successfully converted.
	Processed int

	// Skipped counts files with no valid records, unreadable files,
	// and non-file directory entries.
	Skipped int
}

// ConvertFile converts a single line protocol file and writes the CSV
// next to the given output path. Returns ErrNoData (unwrapped semantics
// preserved via errors.Is) when the input held no valid records, in
// which case no output file is written.
func ConvertFile(inputPath, outputPath string) (*Result, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	result, err := Convert(string(data))
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(outputPath, []byte(result.CSV), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	return result, nil
}

// ConvertDirectory converts every regular file in inputDir and writes a
// <basename>.csv per file into outputDir, creating outputDir if needed.
//
// Per-file problems (unreadable input, no valid records) are logged and
// counted in the summary; they never abort the walk. Only a missing or
// unlistable input directory is a hard error.
func ConvertDirectory(inputDir, outputDir string) (*DirSummary, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list input directory %s: %w", inputDir, err)
	}

	summary := &DirSummary{}
	for _, entry := range entries {
		if entry.IsDir() {
			log.Printf("Skipping non-file entry: %s", entry.Name())
			summary.Skipped++
			continue
		}

		inputPath := filepath.Join(inputDir, entry.Name())
		outputName := csvName(entry.Name())
		outputPath := filepath.Join(outputDir, outputName)

		result, err := ConvertFile(inputPath, outputPath)
		switch {
		case errors.Is(err, ErrNoData):
			log.Printf("Skipping %s: no valid line protocol data found", entry.Name())
			summary.Skipped++
		case err != nil:
			log.Printf("Error processing %s: %v", entry.Name(), err)
			summary.Skipped++
		default:
			log.Printf("Converted %s -> %s (%d records, %d lines skipped)",
				entry.Name(), outputName, result.Points, result.Skipped)
			summary.Processed++
		}
	}

	return summary, nil
}

// csvName replaces the file extension with .csv.
func csvName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return base + ".csv"
}
