package export

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
)

// CSVWriter writes rows as CSV with a header line.
type CSVWriter struct {
	path          string
	file          *os.File
	writer        *csv.Writer
	headerWritten bool
	count         int
	logger        *slog.Logger
}

// NewCSVWriter creates the output file.
func NewCSVWriter(path string, logger *slog.Logger) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return &CSVWriter{
		path:   path,
		file:   f,
		writer: csv.NewWriter(f),
		logger: logger.With("component", "csv_export"),
	}, nil
}

func (w *CSVWriter) Name() string { return "csv" }

func (w *CSVWriter) Write(rows []Row) error {
	if !w.headerWritten {
		if err := w.writer.Write(Headers); err != nil {
			return fmt.Errorf("write CSV header: %w", err)
		}
		w.headerWritten = true
	}
	for _, r := range rows {
		if err := w.writer.Write(r.cells()); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
		w.count++
	}
	w.writer.Flush()
	return w.writer.Error()
}

func (w *CSVWriter) Close() error {
	w.logger.Info("CSV written", "path", w.path, "rows", w.count)
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
