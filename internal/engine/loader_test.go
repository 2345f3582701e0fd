package engine

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestLoadFile(t *testing.T) {
	csvContent := []byte(`Country,INFJ,ISFJ,INTP
Albania,0.0321,0.0561,0.0471
Algeria,0.0345,0.0602,0.0419
Argentina,0.0388,0.0412,0.0502
`)

	tmpFile, err := os.CreateTemp("", "test_data_*.csv")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(csvContent); err != nil {
		t.Fatal(err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatal(err)
	}

	ds, err := LoadFile(tmpFile.Name())
	if err != nil {
		t.Fatal(err)
	}

	// Expect 3 rows
	if ds.NumRows() != 3 {
		t.Fatalf("Expected 3 rows, got %d", ds.NumRows())
	}

	// Row 0 Check
	if ds.Countries[0] != "Albania" {
		t.Errorf("Row 0 Country: Expected Albania, got %s", ds.Countries[0])
	}
	if ds.Values["ISFJ"][0] != 0.0561 {
		t.Errorf("Row 0 ISFJ: Expected 0.0561, got %f", ds.Values["ISFJ"][0])
	}

	// Header order kept
	if got := strings.Join(ds.Columns, ","); got != "Country,INFJ,ISFJ,INTP" {
		t.Errorf("Columns: got %s", got)
	}
	if len(ds.Invalid) != 0 {
		t.Errorf("Expected no invalid columns, got %v", ds.Invalid)
	}
}

func TestLoadRecordsBadCells(t *testing.T) {
	in := "Country,A,B\nX,0.5,abc\nY,,0.2\nZ,0.1,0.3\n"
	ds, err := Load("bad.csv", strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}

	if ds.Invalid["A"] == nil || ds.Invalid["B"] == nil {
		t.Fatalf("Expected A and B to be flagged, got %v", ds.Invalid)
	}
	if !strings.Contains(ds.Invalid["A"].Error(), "row 2: empty cell") {
		t.Errorf("A error: %v", ds.Invalid["A"])
	}
	if !strings.Contains(ds.Invalid["B"].Error(), `row 1: "abc" is not a number`) {
		t.Errorf("B error: %v", ds.Invalid["B"])
	}
}

func TestLoadManyBadCellsIsCapped(t *testing.T) {
	var b strings.Builder
	b.WriteString("Country,A\n")
	for i := 0; i < 8; i++ {
		b.WriteString("X,n/a\n")
	}
	ds, err := Load("many.csv", strings.NewReader(b.String()))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ds.Invalid["A"].Error(), "3 more rows") {
		t.Errorf("Expected overflow note, got %v", ds.Invalid["A"])
	}
}

func TestLoadMalformed(t *testing.T) {
	// Ragged row
	if _, err := Load("ragged.csv", strings.NewReader("Country,A\nX,0.1,0.2\n")); err == nil {
		t.Error("Expected error for ragged row")
	}

	// Header only is fine, no header is not
	if _, err := Load("empty.csv", strings.NewReader("")); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("Expected ErrEmptyFile, got %v", err)
	}

	if _, err := Load("data.json", strings.NewReader("{}")); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Expected ErrUnsupportedType, got %v", err)
	}
}

func TestLoadTSV(t *testing.T) {
	ds, err := Load("data.tsv", strings.NewReader("Country\tENFP\nKorea\t0.12\n"))
	if err != nil {
		t.Fatal(err)
	}
	if ds.Values["ENFP"][0] != 0.12 {
		t.Errorf("Expected 0.12, got %f", ds.Values["ENFP"][0])
	}
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	_ = f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Country", "ESTJ", "ESFP"})
	_ = f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Brazil", 0.11, 0.07})
	_ = f.SetSheetRow("Sheet1", "A3", &[]interface{}{"Chile", 0.09})
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	ds, err := Load("upload.xlsx", buf)
	if err != nil {
		t.Fatal(err)
	}
	if ds.NumRows() != 2 {
		t.Fatalf("Expected 2 rows, got %d", ds.NumRows())
	}
	if ds.Values["ESTJ"][1] != 0.09 {
		t.Errorf("Chile ESTJ: got %f", ds.Values["ESTJ"][1])
	}
	// Short row is padded, so the missing ESFP cell is flagged
	if ds.Invalid["ESFP"] == nil {
		t.Error("Expected ESFP to be flagged")
	}
}

func TestLoadXLSXIgnoresNumberFormats(t *testing.T) {
	f := excelize.NewFile()
	_ = f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Country", "P"})
	_ = f.SetSheetRow("Sheet1", "A2", &[]interface{}{"A", 0.121})
	_ = f.SetSheetRow("Sheet1", "A3", &[]interface{}{"B", 0.124})
	_ = f.SetSheetRow("Sheet1", "A4", &[]interface{}{"C", 0.5})

	twoDecimals, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		t.Fatal(err)
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 9})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellStyle("Sheet1", "B2", "B3", twoDecimals); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellStyle("Sheet1", "B4", "B4", percent); err != nil {
		t.Fatal(err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	ds, err := Load("formatted.xlsx", buf)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Invalid["P"] != nil {
		t.Fatalf("Expected P to be valid, got %v", ds.Invalid["P"])
	}
	want := []float64{0.121, 0.124, 0.5}
	for i, v := range want {
		if ds.Values["P"][i] != v {
			t.Errorf("row %d: expected %v, got %v", i+1, v, ds.Values["P"][i])
		}
	}

	ranking, err := ds.Rank("P", DefaultLimit)
	if err != nil {
		t.Fatal(err)
	}
	order := make([]string, len(ranking))
	for i, e := range ranking {
		order[i] = e.Country
	}
	if got := strings.Join(order, ","); got != "C,B,A" {
		t.Errorf("Expected order C,B,A, got %s", got)
	}
}

func TestLoadKeepsNamesAsIs(t *testing.T) {
	ds, err := Load("padded.csv", strings.NewReader(" Country ,A\n Peru ,0.1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if ds.HasColumn(IdentifierColumn) {
		t.Error("Expected padded header not to match Country")
	}

	ds, err = Load("labels.csv", strings.NewReader("Country,A\n Peru ,0.1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if ds.Countries[0] != " Peru " {
		t.Errorf("Expected country label as-is, got %q", ds.Countries[0])
	}
}

func TestNormalizeHeader(t *testing.T) {
	got := normalizeHeader([]string{"\ufeffCountry", " A ", "  ", "A", "A", " Country"})
	want := []string{"Country", " A ", "Unnamed: 2", "A", "A.1", " Country"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("header %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestParseCell(t *testing.T) {
	f, err := parseCell(" 123.45 ")
	if err != nil || f != 123.45 {
		t.Errorf("parseCell failed: %v %v", f, err)
	}

	for _, s := range []string{"", "NaN", "Inf", "12%"} {
		if _, err := parseCell(s); err == nil {
			t.Errorf("parseCell(%q): expected error", s)
		}
	}
}
