package engine

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"
)

var (
	ErrEmptyFile       = errors.New("file has no header row")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// maxCellErrors caps how many bad cells are kept per column.
const maxCellErrors = 5

// --- 1. CELL PARSERS ---

// parseCell parses " 0.123 " -> 0.123. Empty, NaN and infinite cells are rejected.
func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty cell")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return f, nil
}

// normalizeHeader strips a leading BOM, names blank headers "Unnamed: N" and
// suffixes duplicates with ".1", ".2", ... Other names are kept byte for byte.
func normalizeHeader(raw []string) []string {
	out := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, h := range raw {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// --- 2. MAIN LOADER ---

// LoadFile reads a dataset from disk, picking the format from the extension.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(filepath.Base(path), f)
}

// Load parses an uploaded file. ".xlsx" goes through excelize, ".tsv" is tab
// separated, everything else is read as comma separated text.
func Load(name string, r io.Reader) (*Dataset, error) {
	start := time.Now()

	var (
		ds  *Dataset
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx", ".xlsm":
		ds, err = LoadXLSX(r)
	case ".tsv":
		ds, err = LoadDelimited(r, '\t')
	case ".csv", ".txt", "":
		ds, err = LoadDelimited(r, ',')
	default:
		return nil, fmt.Errorf("%s: %w %q", name, ErrUnsupportedType, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	log.Info().
		Str("file", name).
		Int("rows", ds.NumRows()).
		Int("columns", len(ds.Columns)).
		Dur("took", time.Since(start)).
		Msg("dataset loaded")
	return ds, nil
}

// LoadDelimited reads delimited text with a header row.
// Rows with a different field count than the header fail the whole load.
func LoadDelimited(r io.Reader, comma rune) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return fromRecords(records)
}

// LoadXLSX reads the first sheet of a workbook; the first row is the header.
func LoadXLSX(r io.Reader) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	// Raw values, so number formats like 0.00 or 0% do not change what gets ranked
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	// GetRows trims trailing empty cells; pad back to header width
	if len(rows) > 0 {
		width := len(rows[0])
		for i, row := range rows[1:] {
			if len(row) > width {
				return nil, fmt.Errorf("row %d: %d cells, header has %d", i+2, len(row), width)
			}
			for len(row) < width {
				row = append(row, "")
			}
			rows[i+1] = row
		}
	}
	return fromRecords(rows)
}

// fromRecords turns header + rows into a Dataset. Category cells that fail to
// parse are collected per column rather than failing the load.
func fromRecords(records [][]string) (*Dataset, error) {
	if len(records) == 0 || isBlank(records[0]) {
		return nil, ErrEmptyFile
	}

	header := normalizeHeader(records[0])
	body := records[1:]

	// Skip fully blank trailing lines
	for len(body) > 0 && isBlank(body[len(body)-1]) {
		body = body[:len(body)-1]
	}

	ds := &Dataset{
		Columns: header,
		Values:  make(map[string][]float64, len(header)),
		Invalid: make(map[string]error),
		rows:    len(body),
	}

	bad := make(map[string]int)
	for col, name := range header {
		if name == IdentifierColumn {
			ds.Countries = make([]string, len(body))
			for i, row := range body {
				ds.Countries[i] = row[col]
			}
			continue
		}

		vals := make([]float64, len(body))
		for i, row := range body {
			v, err := parseCell(row[col])
			if err != nil {
				bad[name]++
				if bad[name] <= maxCellErrors {
					ds.Invalid[name] = multierr.Append(ds.Invalid[name], fmt.Errorf("row %d: %w", i+1, err))
				}
				continue
			}
			vals[i] = v
		}
		ds.Values[name] = vals
	}

	for name, n := range bad {
		if n > maxCellErrors {
			ds.Invalid[name] = multierr.Append(ds.Invalid[name], fmt.Errorf("%d more rows", n-maxCellErrors))
		}
	}
	return ds, nil
}

func isBlank(row []string) bool {
	return strings.TrimSpace(strings.Join(row, "")) == ""
}
