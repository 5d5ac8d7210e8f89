package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"szakszon.com/divgap"
)

// Write renders the report in format f.
func (r *Report) Write(w io.Writer, f Format) error {
	switch f {
	case FormatCSV:
		return r.WriteCSV(w)
	case FormatJSON:
		return r.WriteJSON(w)
	case FormatTable:
		return r.WriteTable(w)
	case FormatMarkdown:
		return r.WriteMarkdown(w, "")
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(r.Records()); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

type jsonRow struct {
	Ticker             string   `json:"ticker"`
	ExDividendDate     string   `json:"ex_dividend_date"`
	RecordDate         string   `json:"record_date"`
	CashAmount         float64  `json:"cash_amount"`
	ReferenceDate      string   `json:"reference_date"`
	ReferenceClose     float64  `json:"reference_close"`
	DividendYield      float64  `json:"dividend_yield_pct"`
	FillGapDate        *string  `json:"fill_gap_date"`
	TradingDaysToFill  *int     `json:"trading_days_to_fill_gap"`
	CalendarDaysToFill *int     `json:"calendar_days_to_fill_gap"`
	AverageDailyYield  *float64 `json:"average_daily_yield_pct"`
}

func (r *Report) WriteJSON(w io.Writer) error {
	rows := make([]*jsonRow, 0, len(r.rows))
	for _, row := range r.rows {
		jr := &jsonRow{
			Ticker:             row.Symbol,
			ExDividendDate:     row.ExDate.Format(divgap.DateFormat),
			RecordDate:         row.RecordDate.Format(divgap.DateFormat),
			CashAmount:         row.CashAmount,
			ReferenceDate:      row.ReferenceDate.Format(divgap.DateFormat),
			ReferenceClose:     row.ReferenceClose,
			DividendYield:      row.DividendYield,
			TradingDaysToFill:  row.TradingDaysToFill,
			CalendarDaysToFill: row.CalendarDaysToFill,
			AverageDailyYield:  row.AverageDailyYield,
		}
		if row.FillDate != nil {
			s := row.FillDate.Format(divgap.DateFormat)
			jr.FillGapDate = &s
		}
		rows = append(rows, jr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteTable writes a right aligned text table.
func (r *Report) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	p := message.NewPrinter(language.English)

	b := &bytes.Buffer{}
	for _, h := range header {
		b.WriteString(h)
		b.WriteByte('\t')
	}
	fmt.Fprintln(tw, b.String())

	for _, row := range r.rows {
		b.Reset()
		b.WriteString(fmt.Sprintf("%-6v", row.Symbol))
		b.WriteByte('\t')
		b.WriteString(row.ExDate.Format(divgap.DateFormat))
		b.WriteByte('\t')
		b.WriteString(p.Sprintf("%.2f%%", row.DividendYield))
		b.WriteByte('\t')
		if row.FillDate != nil {
			b.WriteString(row.FillDate.Format(divgap.DateFormat))
		} else {
			b.WriteString("-")
		}
		b.WriteByte('\t')
		if row.TradingDaysToFill != nil {
			b.WriteString(p.Sprintf("%d", *row.TradingDaysToFill))
		} else {
			b.WriteString("-")
		}
		b.WriteByte('\t')
		if row.CalendarDaysToFill != nil {
			b.WriteString(p.Sprintf("%d", *row.CalendarDaysToFill))
		} else {
			b.WriteString("-")
		}
		b.WriteByte('\t')
		if row.AverageDailyYield != nil {
			b.WriteString(p.Sprintf("%.4f%%", *row.AverageDailyYield))
		} else {
			b.WriteString("-")
		}
		b.WriteByte('\t')
		fmt.Fprintln(tw, b.String())
	}

	fmt.Fprintln(tw, "")
	filled := 0
	for _, row := range r.rows {
		if row.Filled() {
			filled++
		}
	}
	p.Fprintf(tw, "Dividends: %d, gap filled: %d\n", len(r.rows), filled)

	return tw.Flush()
}

// Markdown returns the report as a GitHub flavored markdown table.
func (r *Report) Markdown() string {
	b := &bytes.Buffer{}
	b.WriteString("|")
	for _, h := range header {
		b.WriteString(" " + h + " |")
	}
	b.WriteString("\n|")
	for i := range header {
		if i < 2 {
			b.WriteString(" --- |")
		} else {
			b.WriteString(" ---: |")
		}
	}
	b.WriteString("\n")

	for _, rec := range r.Records() {
		b.WriteString("|")
		for _, cell := range rec {
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// WriteMarkdown renders the markdown table for a terminal. An empty style
// selects the glamour style from the environment.
func (r *Report) WriteMarkdown(w io.Writer, style string) error {
	opts := []glamour.TermRendererOption{
		glamour.WithWordWrap(0),
	}
	if style != "" {
		opts = append(opts, glamour.WithStandardStyle(style))
	} else {
		opts = append(opts, glamour.WithEnvironmentConfig())
	}

	tr, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return fmt.Errorf("markdown renderer: %w", err)
	}
	out, err := tr.Render(r.Markdown())
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
