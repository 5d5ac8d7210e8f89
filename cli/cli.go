package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/hashicorp/go-multierror"

	"szakszon.com/divgap"
	"szakszon.com/divgap/calendar"
	"szakszon.com/divgap/fetcher"
	"szakszon.com/divgap/gapfill"
	"szakszon.com/divgap/report"
	"szakszon.com/divgap/series"
)

type Command struct {
	name string
	opts options
	args []string
}

var _ divgap.Command = (*Command)(nil)

func NewCommand(
	name string,
	args []string,
	os ...Option,
) *Command {
	opts := defaultOptions
	for _, o := range os {
		opts = o(opts)
	}

	return &Command{
		name: name,
		opts: opts,
		args: args,
	}
}

func (c *Command) Execute(ctx context.Context) error {
	switch c.name {
	case "exchanges":
		return c.exchanges(ctx)
	case "tickers":
		return c.tickers(ctx)
	case "dividends":
		return c.dividends(ctx)
	case "prices":
		return c.prices(ctx)
	case "analyze":
		return c.analyze(ctx)
	default:
		return fmt.Errorf("invalid command: %v", c.name)
	}
}

func (c *Command) exchanges(ctx context.Context) error {
	if c.opts.fetcher == nil {
		return fmt.Errorf("exchanges: %w", fetcher.ErrNotConfigured)
	}
	exchanges, err := c.opts.fetcher.Exchanges(ctx)
	if err != nil {
		return err
	}

	c.writeExchanges(exchanges)
	return nil
}

func (c *Command) writeExchanges(exchanges []*divgap.Exchange) {
	buf := &bytes.Buffer{}
	w := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)

	b := &bytes.Buffer{}
	b.WriteString("MIC")
	b.WriteByte('\t')
	b.WriteString("Operating MIC")
	b.WriteByte('\t')
	b.WriteString("Acronym")
	b.WriteByte('\t')
	b.WriteString("Type")
	b.WriteByte('\t')
	b.WriteString("Name")
	fmt.Fprintln(w, b.String())

	for _, v := range exchanges {
		b.Reset()
		b.WriteString(v.MIC)
		b.WriteByte('\t')
		b.WriteString(v.OperatingMIC)
		b.WriteByte('\t')
		b.WriteString(v.Acronym)
		b.WriteByte('\t')
		b.WriteString(v.Type)
		b.WriteByte('\t')
		b.WriteString(v.Name)
		fmt.Fprintln(w, b.String())
	}

	w.Flush()
	c.writef("%s", buf.String())
}

func (c *Command) tickers(ctx context.Context) error {
	if c.opts.fetcher == nil {
		return fmt.Errorf("tickers: %w", fetcher.ErrNotConfigured)
	}

	mics := upper(c.args)
	if len(mics) == 0 && c.opts.major {
		mics = fetcher.MajorExchanges
	}

	tickers, err := c.opts.fetcher.Tickers(ctx, mics)
	if err != nil {
		if len(tickers) == 0 || ctx.Err() != nil {
			return err
		}
		c.opts.logger.Warn().Err(err).Msg("some exchanges failed")
	}

	c.writef("Total tickers: %d\n", len(tickers))
	return nil
}

func (c *Command) dividends(ctx context.Context) error {
	if c.opts.fetcher == nil {
		return fmt.Errorf("dividends: %w", fetcher.ErrNotConfigured)
	}

	symbols, err := c.resolveTickers(ctx, c.args)
	if err != nil {
		return err
	}

	out, err := c.opts.fetcher.Dividends(ctx, symbols)
	if err := c.partial(ctx, out, err); err != nil {
		return err
	}
	c.writeFetchOutput("dividends", out)
	return nil
}

func (c *Command) prices(ctx context.Context) error {
	if c.opts.fetcher == nil {
		return fmt.Errorf("prices: %w", fetcher.ErrNotConfigured)
	}

	symbols, err := c.resolveSymbols(ctx, c.args)
	if err != nil {
		return err
	}

	out, err := c.opts.fetcher.Prices(ctx, symbols)
	if err := c.partial(ctx, out, err); err != nil {
		return err
	}
	c.writeFetchOutput("prices", out)
	return nil
}

// partial returns err only when no ticker was processed or the context
// is done. Otherwise the failures are logged.
func (c *Command) partial(ctx context.Context, out *fetcher.Output, err error) error {
	if err == nil {
		return nil
	}
	if out == nil || ctx.Err() != nil || len(out.Saved)+len(out.Skipped) == 0 {
		return err
	}
	c.opts.logger.Warn().Err(err).Msg("some tickers failed")
	return nil
}

func (c *Command) writeFetchOutput(kind string, out *fetcher.Output) {
	c.writef("%s saved: %d, skipped: %d\n", kind, len(out.Saved), len(out.Skipped))
	if len(out.Saved) > 0 {
		c.writef("%s\n", strings.Join(out.Saved, " "))
	}
}

func (c *Command) analyze(ctx context.Context) error {
	if c.opts.db == nil {
		return fmt.Errorf("analyze: db not configured")
	}
	a := c.opts.analyzer
	if a == nil {
		a = gapfill.NewAnalyzer(
			gapfill.Logger(c.opts.logger),
			gapfill.Metrics(c.opts.metrics),
		)
	}

	symbols, err := c.resolveSymbols(ctx, c.args)
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no dividend data in the data directory")
	}

	exchanges, err := c.primaryExchanges(ctx)
	if err != nil {
		return err
	}

	rep := report.New()
	var errs *multierror.Error
	failed := 0

LOOP:
	for _, symbol := range symbols {
		select {
		case <-ctx.Done():
			errs = multierror.Append(errs, ctx.Err())
			break LOOP
		default:
			// noop
		}

		sa := a
		if mic, ok := exchanges[symbol]; ok {
			sa = a.Exchange(mic)
		}
		res, err := c.analyzeSymbol(ctx, sa, symbol)
		if err != nil {
			failed++
			c.opts.logger.Error().Str("symbol", symbol).Err(err).Msg("analyze")
			errs = multierror.Append(errs, &fetcher.FetchError{Symbol: symbol, Err: err})
			continue
		}
		rep.Append(res.Rows...)
		c.opts.logger.Info().Msgf("%s: %d dividends", symbol, len(res.Rows))
	}

	if ctx.Err() != nil || failed == len(symbols) {
		return errs.ErrorOrNil()
	}
	if err := errs.ErrorOrNil(); err != nil {
		c.opts.logger.Warn().Err(err).Msg("some tickers failed")
	}

	return c.writeReport(rep)
}

// primaryExchanges maps the saved tickers to their primary exchange when
// a trading calendar exists for it. Other tickers use the analyzer's
// exchange.
func (c *Command) primaryExchanges(ctx context.Context) (map[string]string, error) {
	out, err := c.opts.db.Tickers(ctx, &divgap.DBTickersInput{})
	if err != nil {
		return nil, fmt.Errorf("tickers: %w", err)
	}

	supported := make(map[string]struct{})
	for _, mic := range calendar.Supported() {
		supported[mic] = struct{}{}
	}

	exchanges := make(map[string]string, len(out.Tickers))
	for _, t := range out.Tickers {
		mic := strings.ToUpper(t.PrimaryExchange)
		if _, ok := supported[mic]; !ok {
			continue
		}
		exchanges[t.Symbol] = mic
	}
	return exchanges, nil
}

func (c *Command) analyzeSymbol(
	ctx context.Context,
	a *gapfill.Analyzer,
	symbol string,
) (*gapfill.Result, error) {
	dout, err := c.opts.db.Dividends(ctx, &divgap.DBDividendsInput{Symbol: symbol})
	if err != nil {
		return nil, fmt.Errorf("dividends: %w", err)
	}
	pout, err := c.opts.db.Prices(ctx, &divgap.DBPricesInput{Symbol: symbol})
	if err != nil {
		return nil, fmt.Errorf("prices: %w", err)
	}
	for range dout.Invalid {
		c.opts.metrics.Skipped(gapfill.ReasonDataIntegrity)
	}

	s := series.New(pout.Prices)
	for _, p := range s.Dropped() {
		c.opts.logger.Warn().
			Str("symbol", symbol).
			Str("date", divgap.FormatDate(p.Date)).
			Msg("duplicate price bar dropped")
	}
	if s.Len() == 0 {
		c.opts.logger.Warn().Str("symbol", symbol).Msg("no daily price data")
	}

	return a.Analyze(symbol, dout.Dividends, s)
}

func (c *Command) writeReport(rep *report.Report) error {
	if c.opts.output == "" || c.opts.output == "-" {
		if c.opts.writer == nil {
			return nil
		}
		return c.renderReport(c.opts.writer, rep)
	}

	p := c.opts.output
	if err := os.MkdirAll(filepath.Dir(p), 0777); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), filepath.Base(p)+"*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := c.renderReport(f, rep); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(f.Name(), p); err != nil {
		return err
	}

	c.writef("Analysis complete. Results saved to %s\n", p)
	return nil
}

func (c *Command) renderReport(w io.Writer, rep *report.Report) error {
	if c.opts.format == report.FormatMarkdown {
		return rep.WriteMarkdown(w, c.opts.markdownStyle)
	}
	return rep.Write(w, c.opts.format)
}

// resolveSymbols returns the given symbols, or every ticker with a
// dividend file when none are given.
func (c *Command) resolveSymbols(
	ctx context.Context,
	symbols []string,
) ([]string, error) {
	if len(symbols) > 0 {
		return upper(symbols), nil
	}
	if c.opts.db == nil {
		return nil, fmt.Errorf("no symbols given")
	}
	return c.opts.db.Symbols(ctx)
}

// resolveTickers returns the given symbols, or the saved ticker list when
// none are given.
func (c *Command) resolveTickers(
	ctx context.Context,
	symbols []string,
) ([]string, error) {
	if len(symbols) > 0 {
		return upper(symbols), nil
	}
	if c.opts.db == nil {
		return nil, fmt.Errorf("no symbols given")
	}
	out, err := c.opts.db.Tickers(ctx, &divgap.DBTickersInput{})
	if err != nil {
		return nil, err
	}
	if len(out.Tickers) == 0 {
		return nil, fmt.Errorf("no symbols given and no saved tickers, run tickers first")
	}
	symbols = make([]string, 0, len(out.Tickers))
	for _, t := range out.Tickers {
		symbols = append(symbols, t.Symbol)
	}
	return symbols, nil
}

func upper(v []string) []string {
	out := make([]string, 0, len(v))
	for _, s := range v {
		out = append(out, strings.ToUpper(s))
	}
	return out
}

func (c *Command) writef(format string, v ...interface{}) {
	if c.opts.writer != nil {
		fmt.Fprintf(c.opts.writer, format, v...)
	}
}
