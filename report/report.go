// Package report renders gap-fill results as tables.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"szakszon.com/divgap"
)

// DefaultFile is the file the analyze command writes by default.
const DefaultFile = "dividend_analysis.csv"

var header = []string{
	"Ticker",
	"Ex-Dividend Date",
	"Dividend Yield (%)",
	"Fill Gap Date",
	"Trading Days to Fill Gap",
	"Calendar Days to Fill Gap",
	"Average Daily Yield (%)",
}

// Header returns the column names in output order.
func Header() []string {
	h := make([]string, len(header))
	copy(h, header)
	return h
}

// Report accumulates rows in insertion order.
type Report struct {
	rows []*divgap.GapFill
}

func New() *Report {
	return &Report{
		rows: make([]*divgap.GapFill, 0),
	}
}

func (r *Report) Append(rows ...*divgap.GapFill) {
	for _, row := range rows {
		if row != nil {
			r.rows = append(r.rows, row)
		}
	}
}

func (r *Report) Rows() []*divgap.GapFill {
	return r.rows
}

func (r *Report) Len() int {
	return len(r.rows)
}

// Records returns the formatted cells of every row. Absent values are
// empty strings.
func (r *Report) Records() [][]string {
	records := make([][]string, 0, len(r.rows))
	for _, row := range r.rows {
		records = append(records, record(row))
	}
	return records
}

func record(row *divgap.GapFill) []string {
	rec := make([]string, 0, len(header))
	rec = append(rec, row.Symbol)
	rec = append(rec, row.ExDate.Format(divgap.DateFormat))
	rec = append(rec, strconv.FormatFloat(row.DividendYield, 'f', 2, 64))

	if row.FillDate != nil {
		rec = append(rec, row.FillDate.Format(divgap.DateFormat))
	} else {
		rec = append(rec, "")
	}
	rec = append(rec, formatInt(row.TradingDaysToFill))
	rec = append(rec, formatInt(row.CalendarDaysToFill))
	if row.AverageDailyYield != nil {
		rec = append(rec, strconv.FormatFloat(*row.AverageDailyYield, 'f', 4, 64))
	} else {
		rec = append(rec, "")
	}
	return rec
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
)

var formats = []Format{FormatCSV, FormatJSON, FormatTable, FormatMarkdown}

func ParseFormat(s string) (Format, error) {
	for _, f := range formats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q, want one of %v", s, formats)
}
