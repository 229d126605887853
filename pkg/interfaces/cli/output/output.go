package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vsinha/blendplan/pkg/application/dto"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
}

// File names written under Config.OutputDir
const (
	TextFile = "plan.txt"
	JSONFile = "plan.json"
	CSVFile  = "plan.csv"
)

// Generate writes result in the configured format to w, or to a file in
// OutputDir when one is set. It returns the path of the written file, if
// any.
func Generate(w io.Writer, result *dto.PlanResult, config Config) (string, error) {
	var (
		name  string
		write func(io.Writer, *dto.PlanResult) error
	)
	switch config.Format {
	case "", "text":
		name, write = TextFile, writeText
	case "json":
		name, write = JSONFile, writeJSON
	case "csv":
		name, write = CSVFile, writeCSV
	default:
		return "", fmt.Errorf("unsupported output format: %s", config.Format)
	}

	if config.OutputDir == "" {
		return "", write(w, result)
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(config.OutputDir, name)
	f, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filename, err)
	}
	if err := write(f, result); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return filename, nil
}

// writeText creates human-readable text output
func writeText(w io.Writer, result *dto.PlanResult) error {
	ew := &errWriter{w: w}

	ew.printf("Blending Plan Summary\n")
	ew.printf("=====================\n\n")
	ew.printf("Run:        %s\n", result.RunID)
	ew.printf("Status:     %s\n", result.Status)
	if result.Objective != nil {
		ew.printf("Objective:  %s\n", strconv.FormatFloat(*result.Objective, 'f', 2, 64))
	}
	ew.printf("Solve Time: %v\n", result.SolveTime)
	ew.printf("Model:      %d variables (%d binary), %d constraints\n\n",
		result.Stats.Variables, result.Stats.Binaries, result.Stats.Constraints)

	if b := result.Breakdown; b != nil {
		ew.printf("Revenue:       %12s\n", b.Revenue.StringFixed(2))
		ew.printf("Purchase Cost: %12s\n", b.PurchaseCost.StringFixed(2))
		ew.printf("Storage Cost:  %12s\n", b.StorageCost.StringFixed(2))
		ew.printf("Profit:        %12s\n\n", b.Profit.StringFixed(2))
	}

	if len(result.Rows) > 0 {
		ew.printf("%-8s %-12s %-10s %10s %10s %10s %-7s\n",
			"Period", "Material", "Category", "Purchase", "Refine", "Stock", "Refined")
		ew.printf("%-8s %-12s %-10s %10s %10s %10s %-7s\n",
			"--------", "------------", "----------", "----------", "----------", "----------", "-------")
		for _, row := range result.Rows {
			ew.printf("%-8s %-12s %-10s %10s %10s %10s %-7t\n",
				row.Period,
				row.Material,
				row.Category,
				row.Purchase.StringFixed(2),
				row.Refine.StringFixed(2),
				row.Stock.StringFixed(2),
				row.Refined)
		}
		ew.printf("\n")
	}

	for _, warning := range result.Warnings {
		ew.printf("Warning: %s\n", warning)
	}
	for _, violation := range result.Violations {
		ew.printf("Violation: %s\n", violation)
	}
	return ew.err
}

func writeJSON(w io.Writer, result *dto.PlanResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

// writeCSV writes one row per period and material. A run without a plan
// yields the header only.
func writeCSV(w io.Writer, result *dto.PlanResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"period", "material", "category", "purchase", "refine", "stock", "refined"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range result.Rows {
		record := []string{
			row.Period,
			row.Material,
			row.Category,
			row.Purchase.String(),
			row.Refine.String(),
			row.Stock.String(),
			strconv.FormatBool(row.Refined),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// errWriter keeps the first write error so a report can be printed
// without checking every line
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
