package render

import (
	"fmt"
	"io"
	"strconv"

	"countrydash/internal/engine"

	"github.com/olekukonko/tablewriter"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Top countries"

// Row is one ranked line of the table.
type Row struct {
	Rank    int
	Country string
	Value   float64
	Display string
}

// Table is the ranking ready for display. Display values always carry two decimals.
type Table struct {
	Title    string
	Category string
	Rows     []Row
}

// FormatValue renders v rounded to exactly two decimals.
func FormatValue(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// RenderTable builds the table view of a ranking.
func RenderTable(ranking []engine.Entry, category string) Table {
	t := Table{
		Title:    fmt.Sprintf("Top %d countries by %s", len(ranking), category),
		Category: category,
		Rows:     make([]Row, len(ranking)),
	}
	for i, e := range ranking {
		t.Rows[i] = Row{Rank: i + 1, Country: e.Country, Value: e.Value, Display: FormatValue(e.Value)}
	}
	return t
}

// Header returns the column titles.
func (t Table) Header() []string {
	return []string{engine.IdentifierColumn, t.Category}
}

// WriteText prints the table for a terminal.
func (t Table) WriteText(w io.Writer) {
	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeader(append([]string{"#"}, t.Header()...))
	tw.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	for _, r := range t.Rows {
		tw.Append([]string{strconv.Itoa(r.Rank), r.Country, r.Display})
	}
	tw.Render()
}

// WriteXLSX exports the table as a workbook. Values stay numeric with a 0.00 format.
func (t Table) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	header := []interface{}{"Rank", engine.IdentifierColumn, t.Category}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return err
	}

	for i, r := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{r.Rank, r.Country, r.Value}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}

	if len(t.Rows) > 0 {
		// NumFmt 2 is the built-in "0.00"
		style, err := f.NewStyle(&excelize.Style{NumFmt: 2})
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(exportSheet, "C2", fmt.Sprintf("C%d", len(t.Rows)+1), style); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(exportSheet, "B", "C", 18); err != nil {
		return err
	}

	_, err := f.WriteTo(w)
	return err
}
