package storage

import (
	"context"
	"net/url"
	"path/filepath"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/soundbridge/internal/infra/metrics"
)

type DirectResolverConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	BaseDir string `mapstructure:"base_dir"`
}

// DirectResolver maps keys onto a base URL or directory without any lookup.
type DirectResolver struct {
	config  *DirectResolverConfig
	metrics *metrics.Metrics
}

// NewDirectResolver creates a new DirectResolver.
func NewDirectResolver(settings map[string]any, m *metrics.Metrics) (*DirectResolver, error) {
	var config DirectResolverConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	zlog.Debug().Msgf("direct resolver config: %+v", config)
	if m == nil {
		m = metrics.NewNop()
	}
	return &DirectResolver{config: &config, metrics: m}, nil
}

// Name returns the resolver type.
func (r *DirectResolver) Name() string {
	return "direct"
}

// ResolveURL joins key onto the base URL or directory. Direct keys are
// returned unchanged.
func (r *DirectResolver) ResolveURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		r.metrics.ResolveRequests.WithLabelValues(r.Name(), "error").Inc()
		return "", errors.New("empty storage key")
	}
	r.metrics.ResolveRequests.WithLabelValues(r.Name(), "ok").Inc()

	switch {
	case IsDirect(key):
		return key, nil
	case r.config.BaseURL != "":
		u, err := url.JoinPath(r.config.BaseURL, key)
		if err != nil {
			return "", errors.Wrapf(err, "failed to join %q onto base url", key)
		}
		return u, nil
	case r.config.BaseDir != "":
		return filepath.Join(r.config.BaseDir, key), nil
	default:
		return key, nil
	}
}
