package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var errNoSheet = errors.New("no active sheet")

// Writer writes tabular data to a spreadsheet.
type Writer interface {
	AddSheet(name string) error
	WriteHeader(columns []string) error
	WriteRow(row []any) error
	Save(w io.Writer) error
	SaveToFile(path string) error
	Close() error
}

// ExcelizeWriter is a Writer backed by an in-memory excelize workbook.
type ExcelizeWriter struct {
	file        *excelize.File
	sheet       string
	row         int
	headerStyle int
}

func NewExcelizeWriter() *ExcelizeWriter {
	return &ExcelizeWriter{file: excelize.NewFile(), headerStyle: -1}
}

// AddSheet switches output to a new sheet. The workbook's default sheet is
// reused for the first one.
func (w *ExcelizeWriter) AddSheet(name string) error {
	name = sheetName(name)

	if w.sheet == "" {
		if err := w.file.SetSheetName(w.file.GetSheetName(0), name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.sheet = name
	w.row = 1
	return nil
}

// WriteHeader writes a bold header row and sizes the columns to fit it.
func (w *ExcelizeWriter) WriteHeader(columns []string) error {
	values := make([]any, len(columns))
	for i, c := range columns {
		values[i] = c
	}
	first := w.row
	if err := w.WriteRow(values); err != nil {
		return err
	}

	style, err := w.boldStyle()
	if err != nil {
		return err
	}
	from, _ := excelize.CoordinatesToCellName(1, first)
	to, _ := excelize.CoordinatesToCellName(max(len(columns), 1), first)
	if err := w.file.SetCellStyle(w.sheet, from, to, style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, c := range columns {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := w.file.SetColWidth(w.sheet, col, col, float64(max(len(c), 10)+4)); err != nil {
			return fmt.Errorf("column width: %w", err)
		}
	}
	return nil
}

// WriteRow appends one row to the current sheet.
func (w *ExcelizeWriter) WriteRow(row []any) error {
	if w.sheet == "" {
		return errNoSheet
	}
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.sheet, cell, &row); err != nil {
		return fmt.Errorf("write row %d: %w", w.row, err)
	}
	w.row++
	return nil
}

func (w *ExcelizeWriter) boldStyle() (int, error) {
	if w.headerStyle >= 0 {
		return w.headerStyle, nil
	}
	id, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, fmt.Errorf("header style: %w", err)
	}
	w.headerStyle = id
	return id, nil
}

func (w *ExcelizeWriter) Save(out io.Writer) error {
	return w.file.Write(out)
}

func (w *ExcelizeWriter) SaveToFile(path string) error {
	return w.file.SaveAs(path)
}

func (w *ExcelizeWriter) Close() error {
	return w.file.Close()
}

// sheetName replaces characters Excel rejects in sheet names and keeps the
// first 31 runes.
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		return "Sheet"
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}
