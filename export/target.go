package export

import (
	"fmt"

	"github.com/sveniu/sslclient-renew/config"

	"gitlab.com/z0mbie42/rz-go/v2"
)

// Target is a configured backend.
type Target struct {
	Type    string
	Backend Backend
}

// Build initializes and configures a backend for every configured exporter.
func Build(
	exporters []*config.Exporter,
	logger rz.Logger,
) (
	[]Target,
	error,
) {
	targets := make([]Target, 0, len(exporters))
	for index, e := range exporters {
		b, err := InitBackend(e.Type, logger)
		if err != nil {
			return nil, fmt.Errorf("exporter %d: %w", index, err)
		}
		if err := b.Configure(e.Config); err != nil {
			return nil, fmt.Errorf("exporter %d (%s): %w", index, e.Type, err)
		}
		logger.Debug(
			"Configured exporter",
			rz.String("exporter_type", e.Type),
		)
		targets = append(targets, Target{Type: e.Type, Backend: b})
	}

	return targets, nil
}
