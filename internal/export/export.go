// Package export renders the checkpoint table as a spreadsheet.
package export

import (
	"fmt"
	"io"

	"github.com/tealeg/xlsx/v2"

	"github.com/JakeFAU/mbfc-scraper/internal/checkpoint"
	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

// SheetName is the worksheet the table is written to.
const SheetName = "checkpoint"

// Build lays rows out in the same column order as the CSV checkpoint.
func Build(rows []scrape.Row, codec checkpoint.Codec) (*xlsx.File, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return nil, fmt.Errorf("xlsx: add sheet: %w", err)
	}

	header := codec.Header(rows)
	addRow(sheet, header)

	fields := scrape.Fields()
	metaCols := header[1 : len(header)-len(fields)]
	for _, row := range rows {
		cells := make([]string, 0, len(header))
		cells = append(cells, row.URL)
		for _, col := range metaCols {
			v, _ := row.MetaValue(col)
			cells = append(cells, v)
		}
		for _, field := range fields {
			v, _ := row.Record.Value(field)
			cells = append(cells, v)
		}
		addRow(sheet, cells)
	}
	return f, nil
}

// Save writes the workbook to path.
func Save(path string, rows []scrape.Row, codec checkpoint.Codec) error {
	f, err := Build(rows, codec)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("xlsx: save %s: %w", path, err)
	}
	return nil
}

// Write streams the workbook to w.
func Write(w io.Writer, rows []scrape.Row, codec checkpoint.Codec) error {
	f, err := Build(rows, codec)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
