package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sveniu/sslclient-renew/batch"
	"github.com/sveniu/sslclient-renew/config"
	"github.com/sveniu/sslclient-renew/export"
	_ "github.com/sveniu/sslclient-renew/export/backends"
	"github.com/sveniu/sslclient-renew/renewal"

	"gitlab.com/z0mbie42/rz-go/v2"
)

const (
	exitUsage = 2

	usageText = `Usage: %s [options]

Renews client certificates that are about to expire by submitting a
mutually authenticated self-renewal request to the CA.

The entry list holds one "certificate-path key-path" pair per line.
Use "\ " for a space inside a path. Lines starting with # are ignored.

Options:
`
)

type flags struct {
	caURI       string
	entryList   string
	days        int
	trustBundle string
	configFile  string
	logLevel    string
}

func parseFlags(
	args []string,
	stderr io.Writer,
) (
	*flags,
	map[string]bool,
	error,
) {
	f := new(flags)
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), usageText, fs.Name())
		fs.PrintDefaults()
	}

	fs.StringVar(&f.caURI, "u", config.DefaultCAURI, "CA base `URI`")
	fs.StringVar(&f.entryList, "i", config.DefaultEntryList, "entry list `FILE`, or - for standard input")
	fs.IntVar(&f.days, "d", config.DefaultRenewalDays, "renew when fewer than `DAYS` days of validity remain")
	fs.StringVar(&f.trustBundle, "a", "", "PEM `FILE` with extra CA certificates to trust for the server")
	fs.StringVar(&f.configFile, "c", "", "YAML or TOML configuration `FILE`")
	fs.StringVar(&f.logLevel, "l", "", "log `LEVEL` (debug, info, warning, error)")

	if err := fs.Parse(args[1:]); err != nil {
		return nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) {
		set[fl.Name] = true
	})

	return f, set, nil
}

// loadConfig merges defaults, the optional config file, LOG_LEVEL and the
// flags given on the command line, in increasing order of precedence.
func loadConfig(
	f *flags,
	set map[string]bool,
) (
	*config.Config,
	error,
) {
	cfg := config.Default()
	if f.configFile != "" {
		var err error
		cfg, err = config.Load(f.configFile)
		if err != nil {
			return nil, err
		}
	}

	if logLevelString, ok := os.LookupEnv("LOG_LEVEL"); ok {
		cfg.LogLevel = logLevelString
	}

	if set["u"] {
		cfg.CAURI = f.caURI
	}
	if set["i"] {
		cfg.EntryList = f.entryList
	}
	if set["d"] {
		cfg.RenewalDays = f.days
	}
	if set["a"] {
		cfg.TrustBundle = f.trustBundle
	}
	if set["l"] {
		cfg.LogLevel = f.logLevel
	}

	return cfg, cfg.Validate()
}

func newLogger(
	cfg *config.Config,
	w io.Writer,
) (
	rz.Logger,
	error,
) {
	logLevel, err := rz.ParseLevel(cfg.LogLevel)
	if err != nil {
		return rz.Logger{}, fmt.Errorf("config: log_level %q: %w", cfg.LogLevel, err)
	}

	return rz.New(
		rz.Writer(w),
		rz.Level(logLevel),
		rz.Fields(
			rz.Timestamp(true),
			rz.Caller(true),
		),
	), nil
}

func newDriver(
	cfg *config.Config,
	logger rz.Logger,
) (
	*batch.Driver,
	error,
) {
	opts := []renewal.Option{
		renewal.WithTimeout(cfg.Timeout()),
	}
	if cfg.TrustBundle != "" {
		pool, err := renewal.LoadRootCAs(cfg.TrustBundle)
		if err != nil {
			return nil, fmt.Errorf("loading trust bundle: %w", err)
		}
		opts = append(opts, renewal.WithRootCAs(pool))
	}

	targets, err := export.Build(cfg.Exporters, logger)
	if err != nil {
		return nil, err
	}

	client := renewal.NewClient(cfg.CAURI, opts...)
	logger.Debug(
		"Configured renewal client",
		rz.String("endpoint", client.Endpoint()),
		rz.Int("renewal_window_days", cfg.RenewalDays),
		rz.Int64("timeout_seconds", cfg.TimeoutSeconds),
	)

	return batch.New(batch.Options{
		WindowDays: cfg.RenewalDays,
		Exporters:  targets,
	}, client, logger), nil
}

func run(
	ctx context.Context,
	args []string,
	stdin io.Reader,
	stderr io.Writer,
) int {
	f, set, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return batch.ExitOK
	}
	if err != nil {
		return exitUsage
	}

	cfg, err := loadConfig(f, set)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", args[0], err)
		return batch.ExitConfig
	}

	logger, err := newLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", args[0], err)
		return batch.ExitConfig
	}

	d, err := newDriver(cfg, logger)
	if err != nil {
		logger.Error(
			"Error initializing renewal",
			rz.Err(err),
		)
		return batch.ExitConfig
	}

	return d.RunSource(ctx, cfg.EntryList, stdin)
}

func main() {
	if _, ok := os.LookupEnv("AWS_LAMBDA_FUNCTION_NAME"); ok {
		startLambda()
		return
	}

	os.Exit(run(context.Background(), os.Args, os.Stdin, os.Stderr))
}
