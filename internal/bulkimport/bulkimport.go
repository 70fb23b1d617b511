// Package bulkimport parses XLSX rosters for batch student creation.
package bulkimport

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/r-alnz/Docurate-sub000/internal/credentials"
)

// Row is one parsed account from the roster sheet. Line is 1-based and
// counts the header row.
type Row struct {
	Line      int
	Email     string
	FirstName string
	LastName  string
	StudentID string
	Password  string
}

// Skip records a roster row that failed validation.
type Skip struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// expected column order on the first sheet, header row included
var expectedHeaders = []string{"email", "firstname", "lastname", "studentid", "password"}

// Parse reads the first sheet of an XLSX roster. Rows that fail validation
// are reported as skips; a malformed file is an error.
func Parse(r io.Reader) ([]Row, []Skip, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	if err := checkHeaders(rows[0]); err != nil {
		return nil, nil, err
	}

	var (
		parsed []Row
		skips  []Skip
	)
	for i, cells := range rows[1:] {
		line := i + 2 // 1-based, after the header row
		row, reason := parseRow(cells)
		if reason != "" {
			skips = append(skips, Skip{Line: line, Reason: reason})
			continue
		}
		row.Line = line
		parsed = append(parsed, row)
	}
	return parsed, skips, nil
}

func checkHeaders(cells []string) error {
	if len(cells) < len(expectedHeaders) {
		return fmt.Errorf("header row has %d columns, want %d", len(cells), len(expectedHeaders))
	}
	for i, want := range expectedHeaders {
		got := strings.ToLower(strings.TrimSpace(cells[i]))
		if got != want {
			return fmt.Errorf("column %d header is %q, want %q", i+1, cells[i], want)
		}
	}
	return nil
}

func parseRow(cells []string) (Row, string) {
	get := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}

	row := Row{
		Email:     get(0),
		FirstName: get(1),
		LastName:  get(2),
		StudentID: get(3),
		Password:  get(4),
	}

	switch {
	case row.Email == "":
		return Row{}, "missing email"
	case !strings.Contains(row.Email, "@"):
		return Row{}, "invalid email"
	case row.FirstName == "":
		return Row{}, "missing first name"
	case row.LastName == "":
		return Row{}, "missing last name"
	case row.StudentID == "":
		return Row{}, "missing student id"
	}
	if err := credentials.ValidatePassword(row.Password); err != nil {
		return Row{}, err.Error()
	}
	return row, ""
}
