package export

import (
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Prices"

// XLSXWriter builds a workbook in memory and saves it on Close.
type XLSXWriter struct {
	path   string
	file   *excelize.File
	next   int
	logger *slog.Logger
}

// NewXLSXWriter creates a workbook with a single "Prices" sheet.
func NewXLSXWriter(path string, logger *slog.Logger) *XLSXWriter {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheetName)
	return &XLSXWriter{
		path:   path,
		file:   f,
		next:   1,
		logger: logger.With("component", "xlsx_export"),
	}
}

func (w *XLSXWriter) Name() string { return "xlsx" }

func (w *XLSXWriter) Write(rows []Row) error {
	if w.next == 1 {
		if err := w.writeRow(toAny(Headers)); err != nil {
			return err
		}
		w.file.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}
	for _, r := range rows {
		cells := []any{r.HelmetID, r.Name, r.Player, r.Team, r.HelmetType, r.DesignType, r.Source}
		if r.Source != "" {
			cells = append(cells, r.MedianPrice, r.MinPrice, r.MaxPrice, r.TotalResults, r.ScrapedAt.UTC())
		}
		if err := w.writeRow(cells); err != nil {
			return err
		}
	}
	return nil
}

func (w *XLSXWriter) writeRow(cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, w.next)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(sheetName, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", w.next, err)
	}
	w.next++
	return nil
}

func (w *XLSXWriter) Close() error {
	defer w.file.Close()
	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	w.logger.Info("workbook written", "path", w.path, "rows", w.next-2)
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
