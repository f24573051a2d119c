package storage

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/soundbridge/internal/infra/config"
	"github.com/osa030/soundbridge/internal/infra/metrics"
)

// NewResolverFromConfig creates the resolver selected by configuration.
func NewResolverFromConfig(ctx context.Context, cfg config.StorageConfig, m *metrics.Metrics) (Resolver, error) {
	zlog.Debug().Msgf("creating storage resolver: type=%s settings=%+v", cfg.Type, redact(cfg.Settings))

	var (
		r   Resolver
		err error
	)
	switch cfg.Type {
	case "direct", "":
		r, err = NewDirectResolver(cfg.Settings, m)
	case "s3":
		r, err = NewS3Resolver(ctx, cfg.Settings, m)
	default:
		return nil, errors.Newf("unsupported storage type: %s", cfg.Type)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s resolver", cfg.Type)
	}

	zlog.Info().Msgf("registered storage resolver: type=%s", r.Name())
	return r, nil
}

// redact hides credentials before settings are logged.
func redact(settings map[string]any) map[string]any {
	out := make(map[string]any, len(settings))
	for k, v := range settings {
		switch k {
		case "access_key_id", "secret_access_key":
			out[k] = "***"
		default:
			out[k] = v
		}
	}
	return out
}
