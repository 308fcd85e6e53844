// Package csvio imports and exports redirect rules as a flat tabular format
// for the admin surface. Column set and semantics mirror the rule model:
// exactly one of sourceUrl/sourceRegex and at most one of
// targetNodeId/targetUrl per row.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"urltracker/internal/model"
)

// Header is the column order of exported files and the expected header of
// imported ones.
var Header = []string{
	"culture",
	"force",
	"notes",
	"passThroughQueryString",
	"sourceUrl",
	"sourceRegex",
	"targetNodeId",
	"targetRootNodeId",
	"targetStatusCode",
	"targetUrl",
}

// Export writes rules as CSV, header first.
func Export(w io.Writer, rules []model.Redirect) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for i := range rules {
		r := &rules[i]
		record := []string{
			strOrEmpty(r.Culture),
			strconv.FormatBool(r.ForceRedirect),
			r.Notes,
			strconv.FormatBool(r.PassThroughQueryString),
			strOrEmpty(r.SourcePath),
			strOrEmpty(r.SourceRegex),
			intOrEmpty(r.TargetNodeID),
			intOrEmpty(r.TargetRootNodeID),
			strconv.Itoa(r.StatusCode),
			strOrEmpty(r.TargetURL),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// RowError ties an import failure to its 1-based data row number.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// Import parses rules from CSV. Row failures are isolated: valid rows are
// returned alongside the per-row errors of invalid ones.
func Import(r io.Reader) ([]model.Redirect, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, col := range Header {
		if header[i] != col {
			return nil, nil, fmt.Errorf("unexpected csv header: column %d is %q, want %q", i+1, header[i], col)
		}
	}

	var rules []model.Redirect
	var rowErrs []RowError
	for row := 1; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: row, Err: err})
			continue
		}

		rule, err := parseRow(record)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: row, Err: err})
			continue
		}
		rules = append(rules, rule)
	}
	return rules, rowErrs, nil
}

func parseRow(record []string) (model.Redirect, error) {
	var rule model.Redirect

	force, err := parseBool(record[1])
	if err != nil {
		return rule, fmt.Errorf("force: %w", err)
	}
	passThrough, err := parseBool(record[3])
	if err != nil {
		return rule, fmt.Errorf("passThroughQueryString: %w", err)
	}
	status, err := strconv.Atoi(record[8])
	if err != nil {
		return rule, fmt.Errorf("targetStatusCode: %w", err)
	}

	sourceURL, sourceRegex := record[4], record[5]
	if (sourceURL == "") == (sourceRegex == "") {
		return rule, fmt.Errorf("exactly one of sourceUrl/sourceRegex must be set")
	}

	targetNodeID, err := parseOptionalInt(record[6])
	if err != nil {
		return rule, fmt.Errorf("targetNodeId: %w", err)
	}
	targetRootNodeID, err := parseOptionalInt(record[7])
	if err != nil {
		return rule, fmt.Errorf("targetRootNodeId: %w", err)
	}
	targetURL := record[9]
	if targetNodeID != nil && targetURL != "" {
		return rule, fmt.Errorf("at most one of targetNodeId/targetUrl may be set")
	}

	rule.ForceRedirect = force
	rule.PassThroughQueryString = passThrough
	rule.StatusCode = status
	rule.Notes = record[2]
	rule.Reason = model.ReasonImport
	if record[0] != "" {
		rule.Culture = model.SPtr(record[0])
	}
	if sourceURL != "" {
		rule.SourcePath = model.SPtr(sourceURL)
	}
	if sourceRegex != "" {
		rule.SourceRegex = model.SPtr(sourceRegex)
	}
	rule.TargetNodeID = targetNodeID
	rule.TargetRootNodeID = targetRootNodeID
	if targetURL != "" {
		rule.TargetURL = model.SPtr(targetURL)
	}
	return rule, nil
}

func parseBool(s string) (bool, error) {
	switch s {
	case "true", "1":
		return true, nil
	case "false", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid bool %q", s)
}

func parseOptionalInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func intOrEmpty(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
