package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
)

var (
	configFlag = flag.String(
		"config",
		"",
		"YAML configuration file. Defaults to $DIVGAP_CONFIG.",
	)
	dataDirFlag = flag.String(
		"data-dir",
		"data",
		"Directory of the dividend, price and ticker files.",
	)
	exchangeFlag = flag.String(
		"exchange",
		"XNYS",
		"MIC of the exchange calendar.",
	)
	logLevelFlag = flag.String(
		"log-level",
		"info",
		"Log level: trace, debug, info, warn, error or disabled.",
	)
	metricsFileFlag = flag.String(
		"metrics-file",
		"",
		"Write Prometheus metrics to this textfile when done.",
	)
)

func main() {
	ctx := context.Background()
	ctx, ctxCancel := context.WithCancel(ctx)

	termCh := make(chan os.Signal, 1)
	signal.Notify(termCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-termCh
		fmt.Fprintln(os.Stderr, "Ctrl+C pressed")
		ctxCancel()
	}()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&exchangesCmd{}, "fetch")
	commander.Register(&tickersCmd{}, "fetch")
	commander.Register(&dividendsCmd{}, "fetch")
	commander.Register(&pricesCmd{}, "fetch")
	commander.Register(&analyzeCmd{}, "analysis")

	flag.Parse()
	status := commander.Execute(ctx)
	ctxCancel()
	os.Exit(int(status))
}
