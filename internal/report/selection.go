package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/nhle/mailsweep/internal/model"
)

// InvalidSelectionError reports a malformed selection file. It is
// fatal for the executor run and names the offending line.
type InvalidSelectionError struct {
	Line   int
	Reason string
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid selection file at line %d: %s", e.Line, e.Reason)
}

// Column indexes within SelectionHeader.
const (
	colDomain          = 0
	colUnsubscribeURL  = 5
	colToken           = 6
	colDelete          = 8
	colListUnsubscribe = 9
)

// ReadSelection parses a user-edited selection file. The header must
// match SelectionHeader exactly; every data row must carry the full
// column set and a non-empty domain.
func ReadSelection(r io.Reader) ([]model.SelectionRow, error) {
	records, err := readSelectionRecords(r)
	if err != nil {
		return nil, err
	}
	return ParseSelection(records)
}

// readSelectionRecords reads raw CSV records, enforcing the column
// count.
func readSelectionRecords(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(SelectionHeader)

	var records [][]string
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &InvalidSelectionError{Line: line, Reason: err.Error()}
		}
		records = append(records, record)
	}
	return records, nil
}

// ReadSelectionRecords reads the raw records of a selection file so
// callers can rewrite it without losing columns. The records are
// validated the same way ReadSelection validates them.
func ReadSelectionRecords(r io.Reader) ([][]string, error) {
	records, err := readSelectionRecords(r)
	if err != nil {
		return nil, err
	}
	if _, err := ParseSelection(records); err != nil {
		return nil, err
	}
	return records, nil
}

// ParseSelection validates raw selection records and extracts the
// fields the executor consumes.
func ParseSelection(records [][]string) ([]model.SelectionRow, error) {
	if len(records) == 0 {
		return nil, &InvalidSelectionError{Line: 1, Reason: "empty file"}
	}

	for i, name := range SelectionHeader {
		if strings.TrimSpace(records[0][i]) != name {
			return nil, &InvalidSelectionError{
				Line:   1,
				Reason: fmt.Sprintf("column %d is %q, want %q", i+1, records[0][i], name),
			}
		}
	}

	var rows []model.SelectionRow
	for i, record := range records[1:] {
		domain := strings.TrimSpace(record[colDomain])
		if domain == "" {
			return nil, &InvalidSelectionError{Line: i + 2, Reason: "empty domain"}
		}

		rows = append(rows, model.SelectionRow{
			Domain:          domain,
			UnsubscribeURL:  strings.TrimSpace(record[colUnsubscribeURL]),
			Token:           strings.TrimSpace(record[colToken]),
			Delete:          record[colDelete],
			ListUnsubscribe: record[colListUnsubscribe],
		})
	}

	return rows, nil
}

// ApplySelection rewrites the Delete column of raw selection records
// to match the given rows, keyed by domain, and writes the result.
// Rows for unknown domains are ignored.
func ApplySelection(w io.Writer, records [][]string, rows []model.SelectionRow) error {
	flags := make(map[string]string, len(rows))
	for _, row := range rows {
		flags[row.Domain] = row.Delete
	}

	cw := csv.NewWriter(w)
	for i, record := range records {
		if i > 0 {
			if flag, ok := flags[strings.TrimSpace(record[colDomain])]; ok {
				record = append([]string(nil), record...)
				record[colDelete] = flag
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing selection record %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
