package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BenjaminSRussell/vidgrab/internal/parser"
	"github.com/BenjaminSRussell/vidgrab/internal/types"
)

// Format selects how a link list is rendered
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat maps a flag value to a Format
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON, FormatCSV:
		return Format(s), nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or csv)", s)
}

// Write renders the links of result to w
func Write(w io.Writer, format Format, result types.ScanResult) error {
	switch format {
	case FormatText, "":
		return writeText(w, result)
	case FormatJSON:
		return writeJSON(w, result)
	case FormatCSV:
		return writeCSV(w, result)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteFile renders result into outputFile, creating parent directories
func WriteFile(outputFile string, format Format, result types.ScanResult) error {
	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := Write(file, format, result); err != nil {
		file.Close()
		return err
	}

	return file.Close()
}

func writeText(w io.Writer, result types.ScanResult) error {
	if len(result.Links) == 0 {
		_, err := fmt.Fprintf(w, "No video links found on %s\n", result.URL)
		return err
	}

	if _, err := fmt.Fprintf(w, "Found %d video links on %s:\n", len(result.Links), result.URL); err != nil {
		return err
	}

	for i, link := range result.Links {
		if _, err := fmt.Fprintf(w, "%3d. %s\n", i+1, link); err != nil {
			return err
		}
	}

	return nil
}

func writeJSON(w io.Writer, result types.ScanResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}

	return nil
}

func writeCSV(w io.Writer, result types.ScanResult) error {
	writer := csv.NewWriter(w)

	headers := []string{"Index", "URL", "Media", "Page"}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, link := range result.Links {
		record := []string{
			strconv.Itoa(i + 1),
			link,
			strconv.FormatBool(parser.IsRecognizedMediaLink(link)),
			result.URL,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
