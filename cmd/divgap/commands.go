package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"szakszon.com/divgap"
	"szakszon.com/divgap/cli"
	"szakszon.com/divgap/fetcher"
	"szakszon.com/divgap/gapfill"
	"szakszon.com/divgap/report"
)

var stdout = os.Stdout

// run executes the cli command built by build with the shared app.
func run(
	ctx context.Context,
	build func(a *app) (divgap.Command, error),
) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	defer a.close()

	cmd, err := build(a)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if err := cmd.Execute(ctx); err != nil {
		a.logger.Error().Err(err).Msg("command failed")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (a *app) command(name string, args []string, os ...cli.Option) *cli.Command {
	opts := []cli.Option{
		cli.DB(a.db),
		cli.Writer(stdout),
		cli.Logger(a.logger),
		cli.Metrics(a.metrics),
	}
	return cli.NewCommand(name, args, append(opts, os...)...)
}

type exchangesCmd struct{}

func (*exchangesCmd) Name() string     { return "exchanges" }
func (*exchangesCmd) Synopsis() string { return "lists the US stock exchanges" }
func (*exchangesCmd) Usage() string {
	return `divgap exchanges

Lists the US stock exchanges known to Polygon.io with their MICs.
`
}

func (*exchangesCmd) SetFlags(f *flag.FlagSet) {}

func (c *exchangesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) (divgap.Command, error) {
		ft, err := a.fetcher()
		if err != nil {
			return nil, err
		}
		return a.command("exchanges", f.Args(), cli.Fetcher(ft)), nil
	})
}

type tickersCmd struct {
	major bool
}

func (*tickersCmd) Name() string     { return "tickers" }
func (*tickersCmd) Synopsis() string { return "saves the active tickers of US exchanges" }
func (*tickersCmd) Usage() string {
	return `divgap tickers [-major] [MIC...]

Lists the active stock tickers of the given exchanges and saves them to
tickers.json in the data directory. Without MICs every US stock exchange
is listed, or only XNYS, XNAS and XASE with -major.
`
}

func (c *tickersCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.major, "major", false, "Only the major exchanges: XNYS, XNAS and XASE.")
}

func (c *tickersCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) (divgap.Command, error) {
		ft, err := a.fetcher()
		if err != nil {
			return nil, err
		}
		return a.command("tickers", f.Args(), cli.Fetcher(ft), cli.Major(c.major)), nil
	})
}

type dividendsCmd struct {
	minAnnualYield  float64
	from            string
	convertCurrency bool
}

func (*dividendsCmd) Name() string     { return "dividends" }
func (*dividendsCmd) Synopsis() string { return "saves the dividends of high yield tickers" }
func (*dividendsCmd) Usage() string {
	return `divgap dividends [-min-annual-yield 8] [-from 2014-01-01] [-convert-currency] [TICKER...]

Fetches the dividends of each ticker. A ticker is kept when its latest
dividend, annualized with its frequency, yields at least the minimum
against the close of the trading day before the record date. Dividends
with a record date before -from are dropped. Without tickers the saved
ticker list is used.
`
}

func (c *dividendsCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.minAnnualYield, "min-annual-yield", 8, "Minimum estimated annual yield in percent, 0 disables the screening.")
	f.StringVar(&c.from, "from", "2014-01-01", "Drop dividends with an earlier record date.")
	f.BoolVar(&c.convertCurrency, "convert-currency", false, "Convert non-USD dividends with x-rates.com.")
}

func (c *dividendsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) (divgap.Command, error) {
		opts := make([]fetcher.Option, 0)
		var err error
		f.Visit(func(fl *flag.Flag) {
			switch fl.Name {
			case "min-annual-yield":
				opts = append(opts, fetcher.MinAnnualYield(c.minAnnualYield))
			case "from":
				from, perr := divgap.ParseDate(c.from)
				if perr != nil {
					err = perr
					return
				}
				opts = append(opts, fetcher.DividendsFrom(from))
			}
		})
		if err != nil {
			return nil, err
		}
		if c.convertCurrency {
			opts = append(opts, a.currencyService())
		}

		ft, err := a.fetcher(opts...)
		if err != nil {
			return nil, err
		}
		return a.command("dividends", f.Args(), cli.Fetcher(ft)), nil
	})
}

type pricesCmd struct {
	years int
}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "saves the daily prices of tickers" }
func (*pricesCmd) Usage() string {
	return `divgap prices [-years 5] [TICKER...]

Fetches the unadjusted daily bars of each ticker from January 1st of the
year -years before the current one until today. Without tickers every
ticker with a dividend file is fetched.
`
}

func (c *pricesCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.years, "years", 5, "Full calendar years of prices before the current one.")
}

func (c *pricesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) (divgap.Command, error) {
		opts := make([]fetcher.Option, 0)
		f.Visit(func(fl *flag.Flag) {
			if fl.Name == "years" {
				opts = append(opts, fetcher.Years(c.years))
			}
		})
		ft, err := a.fetcher(opts...)
		if err != nil {
			return nil, err
		}
		return a.command("prices", f.Args(), cli.Fetcher(ft)), nil
	})
}

type analyzeCmd struct {
	output         string
	format         string
	markdownStyle  string
	strictCalendar bool
}

func (*analyzeCmd) Name() string     { return "analyze" }
func (*analyzeCmd) Synopsis() string { return "reports dividend yields and gap fills" }
func (*analyzeCmd) Usage() string {
	return `divgap analyze [-output dividend_analysis.csv] [-format csv|json|table|markdown] [-strict-calendar] [TICKER...]

Computes for every saved dividend its yield against the close before the
ex-dividend date and the first day the price recovers to that close after
the record date. Without tickers every ticker with a dividend file is
analyzed. Use -output - to write to standard output.
`
}

func (c *analyzeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "output", report.DefaultFile, "Report file, - for standard output.")
	f.StringVar(&c.format, "format", string(report.FormatCSV), "Report format: csv, json, table or markdown.")
	f.StringVar(&c.markdownStyle, "markdown-style", "", "Glamour style of the markdown format, e.g. dark, light or notty.")
	f.BoolVar(&c.strictCalendar, "strict-calendar", false, "Fail a ticker when its exchange calendar cannot be resolved.")
}

func (c *analyzeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) (divgap.Command, error) {
		format, err := report.ParseFormat(c.format)
		if err != nil {
			return nil, err
		}
		analyzer := gapfill.NewAnalyzer(
			gapfill.Calendars(a.calendars, a.cfg.Exchange),
			gapfill.StrictCalendar(c.strictCalendar),
			gapfill.Logger(a.logger),
			gapfill.Metrics(a.metrics),
		)
		return a.command("analyze", f.Args(),
			cli.Analyzer(analyzer),
			cli.Output(c.output),
			cli.Format(format),
			cli.MarkdownStyle(c.markdownStyle),
		), nil
	})
}
