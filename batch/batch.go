// Package batch renews every certificate of an entry list, one entry at a
// time. A failing entry is logged and skipped; only an unreadable entry
// list aborts the run.
package batch

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sveniu/sslclient-renew/certstore"
	"github.com/sveniu/sslclient-renew/entrylist"
	"github.com/sveniu/sslclient-renew/export"
	"github.com/sveniu/sslclient-renew/renewal"

	"gitlab.com/z0mbie42/rz-go/v2"
)

const (
	ExitOK     = 0
	ExitConfig = 1
)

// Outcome is the final state of one entry.
type Outcome int

const (
	Skipped Outcome = iota
	Replaced
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Replaced:
		return "replaced"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Renewer requests a renewed certificate for an identity.
type Renewer interface {
	Renew(ctx context.Context, id *certstore.Identity) ([]byte, error)
}

type Options struct {
	WindowDays int
	Now        func() time.Time
	Exporters  []export.Target
}

type Summary struct {
	Total   int
	Skipped int
	Renewed int
	Failed  int
}

type Driver struct {
	options Options
	renewer Renewer
	logger  rz.Logger
}

func New(
	options Options,
	renewer Renewer,
	logger rz.Logger,
) *Driver {
	if options.WindowDays <= 0 {
		options.WindowDays = renewal.DefaultWindowDays
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	return &Driver{
		options: options,
		renewer: renewer,
		logger:  logger,
	}
}

// RunSource loads the entry list at path and runs the batch. It returns the
// process exit code.
func (d *Driver) RunSource(
	ctx context.Context,
	path string,
	stdin io.Reader,
) int {
	entries, err := entrylist.Load(path, stdin, d.logger)
	if err != nil {
		var cerr *entrylist.ConfigError
		if errors.As(err, &cerr) {
			d.logger.Error(
				"Error reading entry list",
				rz.Err(cerr.Err),
				rz.String("entry_list", cerr.Path),
			)
		} else {
			d.logger.Error(
				"Error reading entry list",
				rz.Err(err),
				rz.String("entry_list", path),
			)
		}
		return ExitConfig
	}

	d.Run(ctx, entries)
	return ExitOK
}

// Run processes entries sequentially in input order.
func (d *Driver) Run(
	ctx context.Context,
	entries []entrylist.Entry,
) Summary {
	var summary Summary

	if len(entries) == 0 {
		d.logger.Info("Entry list is empty; nothing to do")
		return summary
	}

	for _, entry := range entries {
		summary.Total++
		switch d.processEntry(ctx, entry) {
		case Skipped:
			summary.Skipped++
		case Replaced:
			summary.Renewed++
		case Failed:
			summary.Failed++
		}
	}

	d.logger.Info(
		"Renewal run finished",
		rz.Int("total", summary.Total),
		rz.Int("renewed", summary.Renewed),
		rz.Int("skipped", summary.Skipped),
		rz.Int("failed", summary.Failed),
	)

	return summary
}

func (d *Driver) processEntry(
	ctx context.Context,
	entry entrylist.Entry,
) Outcome {
	logger := d.logger.With(rz.Fields(
		rz.String("certificate_path", entry.CertificatePath),
		rz.String("key_path", entry.KeyPath),
	))

	id, err := certstore.Inspect(entry.CertificatePath, entry.KeyPath)
	if err != nil {
		logger.Error(
			"Error loading certificate and key; skipping",
			rz.Err(err),
		)
		return Failed
	}
	defer id.Close()

	now := d.options.Now()
	notAfter := id.NotAfter()
	renewAt := renewal.RenewAt(notAfter, d.options.WindowDays)

	logger.Debug(
		"Certificate time details",
		rz.Time("not_after", notAfter),
		rz.Time("renew_at", renewAt),
		rz.Time("time_now", now),
		rz.Int("renewal_window_days", d.options.WindowDays),
	)

	if !renewal.ShouldRenew(notAfter, now, d.options.WindowDays) {
		logger.Info(
			"No renewal needed",
			rz.Time("not_after", notAfter),
		)
		return Skipped
	}

	logger.Info(
		"Requesting certificate renewal",
		rz.Time("not_after", notAfter),
	)

	der, err := d.renewer.Renew(ctx, id)
	if err != nil {
		var perr *renewal.ProtocolError
		if errors.As(err, &perr) {
			logger.Error(
				"CA response did not contain a certificate; keeping existing file",
				rz.Err(err),
				rz.Bytes("response", perr.Raw),
			)
		} else {
			logger.Error(
				"Error requesting renewal; keeping existing file",
				rz.Err(err),
			)
		}
		return Failed
	}

	if err := certstore.Write(entry.CertificatePath, der); err != nil {
		logger.Error(
			"Error writing renewed certificate",
			rz.Err(err),
		)
		return Failed
	}

	logger.Info("Replaced certificate with renewed one")

	d.export(ctx, logger, entry.CertificatePath, der)

	return Replaced
}

func (d *Driver) export(
	ctx context.Context,
	logger rz.Logger,
	certPath string,
	der []byte,
) {
	for _, target := range d.options.Exporters {
		logger.Debug(
			"Attempting exporter",
			rz.String("exporter_type", target.Type),
		)
		if err := target.Backend.Export(ctx, certPath, der); err != nil {
			logger.Warn(
				"Error during export",
				rz.Err(err),
				rz.String("exporter_type", target.Type),
			)
		}
	}
}
