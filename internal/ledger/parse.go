package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Required ledger columns. Matching is case- and name-exact: this is the
// upload contract shown to users, not a fuzzy mapping.
const (
	ColumnDate           = "Date"
	ColumnPartyName      = "Party Name"
	ColumnInflow         = "Cash Inflow"
	ColumnOutflow        = "Cash Outflow"
	ColumnPaymentStatus  = "Payment Status"
	ColumnRunningBalance = "Running Balance" // optional, computed when absent
)

var requiredColumns = []string{
	ColumnDate,
	ColumnPartyName,
	ColumnInflow,
	ColumnOutflow,
	ColumnPaymentStatus,
}

// MissingColumnError reports required columns absent from the header row.
// It is surfaced before any row is parsed; no partial result is produced.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("ledger is missing required columns: %s", strings.Join(e.Columns, ", "))
}

// Ledger is a parsed transaction table plus the facts about its source
// that Prepare needs.
type Ledger struct {
	Transactions []Transaction

	// HasRunningBalance reports whether the source supplied its own
	// Running Balance column.
	HasRunningBalance bool
}

// ParseFile reads a ledger from a local .xlsx or .csv file.
func ParseFile(path string) (*Ledger, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".xlsx":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("ParseFile: open workbook %q: %w", path, err)
		}
		defer f.Close()
		return parseWorkbook(f)
	case ".csv":
		rows, err := readCSVFile(path)
		if err != nil {
			return nil, err
		}
		return ParseRows(rows)
	default:
		return nil, fmt.Errorf("ParseFile: unsupported file type %q", ext)
	}
}

// ParseWorkbook reads a ledger from xlsx bytes, e.g. an uploaded file body.
func ParseWorkbook(r io.Reader) (*Ledger, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("ParseWorkbook: open workbook: %w", err)
	}
	defer f.Close()
	return parseWorkbook(f)
}

// ParseCSV reads a ledger from CSV bytes.
func ParseCSV(r io.Reader) (*Ledger, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ParseCSV: read records: %w", err)
	}
	return ParseRows(records)
}

func parseWorkbook(f *excelize.File) (*Ledger, error) {
	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("parseWorkbook: read sheet %q: %w", sheet, err)
	}
	return ParseRows(rows)
}

// ParseRows converts raw sheet rows (header first) into a Ledger.
// Blank rows are skipped; any row with an unparseable date, amount or
// payment status fails the whole parse.
func ParseRows(rows [][]string) (*Ledger, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("ParseRows: ledger has no header row")
	}

	cols := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		cols[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnError{Columns: missing}
	}

	_, hasBalance := cols[ColumnRunningBalance]

	txs := make([]Transaction, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}

		date, err := parseDate(cell(row, cols[ColumnDate]))
		if err != nil {
			return nil, fmt.Errorf("ParseRows: row %d: %w", n+2, err)
		}
		inflow, err := parseAmount(cell(row, cols[ColumnInflow]))
		if err != nil {
			return nil, fmt.Errorf("ParseRows: row %d: %s: %w", n+2, ColumnInflow, err)
		}
		outflow, err := parseAmount(cell(row, cols[ColumnOutflow]))
		if err != nil {
			return nil, fmt.Errorf("ParseRows: row %d: %s: %w", n+2, ColumnOutflow, err)
		}
		status, err := ParseStatus(cell(row, cols[ColumnPaymentStatus]))
		if err != nil {
			return nil, fmt.Errorf("ParseRows: row %d: %w", n+2, err)
		}

		tx := Transaction{
			Date:      date,
			PartyName: strings.TrimSpace(cell(row, cols[ColumnPartyName])),
			Inflow:    math.Abs(inflow),
			Outflow:   math.Abs(outflow),
			Status:    status,
		}

		if hasBalance {
			balance, err := parseAmount(cell(row, cols[ColumnRunningBalance]))
			if err != nil {
				return nil, fmt.Errorf("ParseRows: row %d: %s: %w", n+2, ColumnRunningBalance, err)
			}
			tx.RunningBalance = balance
		}

		txs = append(txs, tx)
	}

	return &Ledger{Transactions: txs, HasRunningBalance: hasBalance}, nil
}

// dateLayouts covers the textual forms seen in real uploads. Excel date
// serials are handled separately in parseDate.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02-01-2006",
	"01/02/2006",
	"2006/01/02",
	"2 Jan 2006",
	"Jan 2, 2006",
	"01-02-06",
}

// excelEpoch is day zero of the 1900 date system used by xlsx serials.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

func parseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date cell")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	// Cells with no date format applied come through as raw serials.
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		days := int(serial)
		return excelEpoch.AddDate(0, 0, days), nil
	}

	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

func parseAmount(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount %q", raw)
	}
	return v, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("readCSVFile: open %q: %w", path, err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("readCSVFile: read %q: %w", path, err)
	}
	return records, nil
}
