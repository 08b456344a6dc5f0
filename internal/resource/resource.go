// Package resource loads static assets such as fonts from an ordered list of
// candidate locations, and writes CLI output. A location is a local path or
// an s3://bucket/key URL.
package resource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// Fetcher retrieves the raw bytes behind a location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// ErrStorageUnavailable is returned for s3:// locations when no object
// storage client is configured.
var ErrStorageUnavailable = errors.New("object storage is not configured")

// FileFetcher reads local files.
type FileFetcher struct{}

func (FileFetcher) Fetch(_ context.Context, location string) ([]byte, error) {
	return os.ReadFile(location)
}

// Mux dispatches a location to the fetcher of its scheme.
type Mux struct {
	Local   Fetcher
	Objects Fetcher
}

// NewMux returns a Mux reading local files and, when objects is non-nil,
// s3:// URLs.
func NewMux(objects Fetcher) *Mux {
	return &Mux{Local: FileFetcher{}, Objects: objects}
}

func (m *Mux) Fetch(ctx context.Context, location string) ([]byte, error) {
	if IsObjectURL(location) {
		if m.Objects == nil {
			return nil, ErrStorageUnavailable
		}
		return m.Objects.Fetch(ctx, location)
	}
	local := m.Local
	if local == nil {
		local = FileFetcher{}
	}
	return local.Fetch(ctx, location)
}

// IsObjectURL reports whether location uses the s3:// scheme.
func IsObjectURL(location string) bool {
	return strings.HasPrefix(location, "s3://")
}

// ParseObjectURL splits s3://bucket/key.
func ParseObjectURL(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return "", "", fmt.Errorf("%q is not an s3:// URL", location)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%q must name a bucket and a key", location)
	}
	return bucket, key, nil
}

// Resolve walks candidates in order and returns the first one that both
// fetches and parses, along with the winning location. When every candidate
// fails the joined errors are returned.
func Resolve[T any](ctx context.Context, candidates []string, fetcher Fetcher, parse func([]byte) (T, error)) (T, string, error) {
	var zero T
	var errs []error

	for _, location := range candidates {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}
		location = strings.TrimSpace(location)
		if location == "" {
			continue
		}

		data, err := fetcher.Fetch(ctx, location)
		if err != nil {
			log.Debug().Err(err).Str("location", location).Msg("Candidate unavailable")
			errs = append(errs, fmt.Errorf("%s: %w", location, err))
			continue
		}

		v, err := parse(data)
		if err != nil {
			log.Debug().Err(err).Str("location", location).Msg("Candidate could not be parsed")
			errs = append(errs, fmt.Errorf("%s: %w", location, err))
			continue
		}
		return v, location, nil
	}

	if len(errs) == 0 {
		return zero, "", errors.New("no candidates configured")
	}
	return zero, "", errors.Join(errs...)
}
