package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/sveniu/sslclient-renew/batch"
	"github.com/sveniu/sslclient-renew/config"
	"github.com/sveniu/sslclient-renew/entrylist"

	"gitlab.com/z0mbie42/rz-go/v2"
)

var errStdinEntryList = errors.New("entry_list must name a file when running in Lambda")

// handleScheduledEvent runs one batch per CloudWatch scheduled event. The
// certificates live on a file system mounted into the function.
func handleScheduledEvent(
	ctx context.Context,
	evt events.CloudWatchEvent,
) error {
	cfg := config.Default()
	if path, ok := os.LookupEnv("CONFIG_FILE"); ok {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	if logLevelString, ok := os.LookupEnv("LOG_LEVEL"); ok {
		cfg.LogLevel = logLevelString
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.EntryList == entrylist.StdinPath {
		return errStdinEntryList
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	logger.Debug(
		"Got CloudWatch scheduled event",
		rz.String("event_id", evt.ID),
		rz.Time("event_time", evt.Time),
	)

	d, err := newDriver(cfg, logger)
	if err != nil {
		return err
	}

	if code := d.RunSource(ctx, cfg.EntryList, nil); code != batch.ExitOK {
		return fmt.Errorf("cannot read entry list %q", cfg.EntryList)
	}

	return nil
}

func startLambda() {
	lambda.Start(handleScheduledEvent)
}
