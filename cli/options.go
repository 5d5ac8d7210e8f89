package cli

import (
	"io"

	"github.com/rs/zerolog"

	"szakszon.com/divgap"
	"szakszon.com/divgap/fetcher"
	"szakszon.com/divgap/gapfill"
	"szakszon.com/divgap/metrics"
	"szakszon.com/divgap/report"
)

var defaultOptions = options{
	writer: nil,
	output: report.DefaultFile,
	format: report.FormatCSV,
	logger: zerolog.Nop(),
}

type options struct {
	db            divgap.DB
	writer        io.Writer
	fetcher       *fetcher.Fetcher
	analyzer      *gapfill.Analyzer
	major         bool
	output        string
	format        report.Format
	markdownStyle string
	logger        zerolog.Logger
	metrics       *metrics.Metrics
}

type Option func(o options) options

func DB(db divgap.DB) Option {
	return func(o options) options {
		o.db = db
		return o
	}
}

func Writer(w io.Writer) Option {
	return func(o options) options {
		o.writer = w
		return o
	}
}

func Fetcher(f *fetcher.Fetcher) Option {
	return func(o options) options {
		o.fetcher = f
		return o
	}
}

func Analyzer(a *gapfill.Analyzer) Option {
	return func(o options) options {
		o.analyzer = a
		return o
	}
}

// Major restricts the tickers command to the major US exchanges when no
// MIC is given.
func Major(v bool) Option {
	return func(o options) options {
		o.major = v
		return o
	}
}

// Output is the report file of the analyze command, "-" for the writer.
func Output(p string) Option {
	return func(o options) options {
		o.output = p
		return o
	}
}

func Format(f report.Format) Option {
	return func(o options) options {
		o.format = f
		return o
	}
}

func MarkdownStyle(s string) Option {
	return func(o options) options {
		o.markdownStyle = s
		return o
	}
}

func Logger(l zerolog.Logger) Option {
	return func(o options) options {
		o.logger = l
		return o
	}
}

func Metrics(m *metrics.Metrics) Option {
	return func(o options) options {
		o.metrics = m
		return o
	}
}
