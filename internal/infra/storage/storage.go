// Package storage resolves logical audio keys to fetchable locations and
// fetches their bytes.
package storage

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// ErrObjectNotFound is returned when a key does not exist in storage.
var ErrObjectNotFound = errors.New("object not found")

// Resolver maps a logical key to a URL or local path.
type Resolver interface {
	ResolveURL(ctx context.Context, key string) (string, error)
	// Name returns the resolver type (used in config).
	Name() string
}

// IsDirect reports whether key is already a URL or filesystem path that needs
// no resolution.
func IsDirect(key string) bool {
	lower := strings.ToLower(key)
	for _, p := range []string{"http://", "https://", "file://"} {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return filepath.IsAbs(key) || strings.HasPrefix(key, "./") || strings.HasPrefix(key, "../")
}

// decodeSettings fills out from free-form settings, applies defaults and
// validates the result.
func decodeSettings(settings map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create settings decoder")
	}
	if err := dec.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
