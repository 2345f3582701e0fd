package engine

import "slices"

// IdentifierColumn is the header that must hold the country labels.
const IdentifierColumn = "Country"

// Dataset holds an uploaded table in Struct-of-Arrays format
type Dataset struct {
	// Header names in file order (identifier included)
	Columns []string

	// Identifier column, one label per row. Empty when the header has no Country column.
	Countries []string

	// Category columns (name -> per-row value). Unparseable cells hold 0 and are listed in Invalid.
	Values map[string][]float64

	// Parse failures per category column
	Invalid map[string]error

	rows int
}

// NumRows returns the number of data rows (header excluded).
func (d *Dataset) NumRows() int {
	return d.rows
}

// HasColumn reports whether the header contains name exactly.
func (d *Dataset) HasColumn(name string) bool {
	return slices.Contains(d.Columns, name)
}

// Categories returns every column except the identifier, in file order.
func (d *Dataset) Categories() []string {
	cats := make([]string, 0, len(d.Columns))
	for _, c := range d.Columns {
		if c != IdentifierColumn {
			cats = append(cats, c)
		}
	}
	return cats
}
