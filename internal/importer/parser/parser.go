// Package parser turns raw CSV or JSON submissions into ordered RawRow
// sequences. It is deliberately forgiving at row level: a malformed line
// becomes a RawRow with an attached parse error and the rest of the file
// continues. Only a structurally unreadable input fails the whole call.
package parser

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/propcrm-transaction-import/internal/domain/review"
)

// Format selects the input codec
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

var (
	ErrEmptyInput        = errors.New("input is empty")
	ErrUnknownFormat     = errors.New("unknown input format")
	ErrMissingHeader     = errors.New("csv input has no header row")
	ErrEnvelopeMalformed = errors.New("json input must be an object with a 'transactions' array")
)

// ParseFormat validates a caller-supplied format string
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", ErrUnknownFormat
}

// Result is the outcome of parsing a whole submission
type Result struct {
	Rows []review.RawRow
	// SourceDescription comes from the JSON envelope; empty for CSV
	SourceDescription string
}

// Parse dispatches on format. Returned rows are in input order with 1-based
// line numbers counted from the top of the submission (the CSV header is
// line 1, the first data row line 2).
func Parse(sourceText string, format Format) (*Result, error) {
	switch format {
	case FormatCSV:
		return parseCSV(sourceText)
	case FormatJSON:
		return parseJSON(sourceText)
	}
	return nil, ErrUnknownFormat
}

// jsonEnvelope is the fixed JSON input shape
type jsonEnvelope struct {
	SourceDescription string            `json:"source_description"`
	Transactions      []json.RawMessage `json:"transactions"`
}

func parseJSON(sourceText string) (*Result, error) {
	if strings.TrimSpace(sourceText) == "" {
		return nil, ErrEmptyInput
	}

	var envelope jsonEnvelope
	if err := json.Unmarshal([]byte(sourceText), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvelopeMalformed, err)
	}
	if envelope.Transactions == nil {
		return nil, ErrEnvelopeMalformed
	}

	result := &Result{SourceDescription: envelope.SourceDescription}
	for i, raw := range envelope.Transactions {
		row := review.RawRow{
			LineNumber: i + 1,
			RawText:    string(raw),
			Fields:     map[string]string{},
		}

		var obj map[string]any
		dec := json.NewDecoder(strings.NewReader(string(raw)))
		dec.UseNumber() // keep amounts exact, no float round trip
		if err := dec.Decode(&obj); err != nil {
			row.ParseError = fmt.Sprintf("transaction %d is not an object: %v", i+1, err)
			result.Rows = append(result.Rows, row)
			continue
		}

		// Element keys map field-for-field to CSV column names
		for key, value := range obj {
			row.Fields[normalizeColumn(key)] = stringifyJSONValue(value)
		}
		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

// parseCSV reads the whole submission through one csv.Reader so quoted
// fields may span physical lines. Raw text per record is recovered by
// slicing the input at the reader's byte offsets.
func parseCSV(sourceText string) (*Result, error) {
	if strings.TrimSpace(sourceText) == "" {
		return nil, ErrEmptyInput
	}

	r := csv.NewReader(strings.NewReader(sourceText))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingHeader, err)
	}
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = normalizeColumn(name)
	}

	result := &Result{}
	for {
		prevOffset := r.InputOffset()
		values, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		raw := strings.Trim(sourceText[prevOffset:r.InputOffset()], "\r\n")
		if err != nil {
			line := 1 + strings.Count(sourceText[:prevOffset], "\n")
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				line = parseErr.Line
			}
			result.Rows = append(result.Rows, review.RawRow{
				LineNumber: line,
				RawText:    raw,
				Fields:     map[string]string{},
				ParseError: fmt.Sprintf("malformed csv: %v", err),
			})
			if r.InputOffset() == prevOffset {
				break // reader made no progress, stop rather than spin
			}
			continue
		}

		if allBlank(values) {
			continue // blank lines carry no row
		}

		line, _ := r.FieldPos(0)
		row := review.RawRow{
			LineNumber: line,
			RawText:    raw,
			Fields:     map[string]string{},
		}

		// Columns beyond the header are dropped; short rows leave the
		// remaining columns blank. Unknown columns were never in the
		// header map to begin with.
		for j, col := range columns {
			if j < len(values) {
				row.Fields[col] = strings.TrimSpace(values[j])
			} else {
				row.Fields[col] = ""
			}
		}
		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

func allBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// normalizeColumn lower-cases and trims a header cell so lookups are
// case-insensitive and order-independent
func normalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func stringifyJSONValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
