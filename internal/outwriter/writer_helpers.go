package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		_, _ = fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	if err := writeRows(csvWriter); err != nil {
		return err
	}

	return nil
}

// createFormatters creates the common formatter closures used across multiple output types.
func createFormatters(precision int) (fmtFloat func(float64) string, intFmt string) {
	numFmt := "%.*f"
	intFmt = "%d"
	fmtFloat = func(v float64) string {
		return fmt.Sprintf(numFmt, precision, v)
	}
	return fmtFloat, intFmt
}

// view is the tabular form of a result, shared by the CSV and text writers.
// Cells of the text table may carry colour codes; csvRows, when set,
// replaces rows for CSV so machine output stays plain.
type view struct {
	headers []string
	rows    [][]string
	csvRows [][]string
	footer  []string
}

// csvHeader turns a table header into a snake_case CSV column name.
func csvHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

// render writes data as JSON, or its view as CSV or a text table.
func render(w io.Writer, mode schema.OutputMode, data any, v view) error {
	switch mode {
	case schema.JSONOut:
		return writeJSON(w, data)

	case schema.CSVOut:
		header := make([]string, len(v.headers))
		for i, h := range v.headers {
			header[i] = csvHeader(h)
		}
		rows := v.rows
		if v.csvRows != nil {
			rows = v.csvRows
		}
		return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
			return cw.WriteAll(rows)
		})

	case schema.TextOut:
		table := tablewriter.NewWriter(w)
		table.Header(v.headers)
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignRight
		})
		if err := table.Bulk(v.rows); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
		for _, line := range v.footer {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("output mode %s is not supported for this result", mode)
	}
}
