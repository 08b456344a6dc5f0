package header

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"go.lorenzomilicia.dev/report-collage/internal/reporterr"
	"go.lorenzomilicia.dev/report-collage/internal/resource"
)

// FallbackName identifies the embedded font in logs and results.
const FallbackName = "embedded:goregular"

// LoadFont returns the first candidate that loads and parses. When none do,
// the embedded Go Regular font is used if allowed, otherwise FontLoadError.
func LoadFont(ctx context.Context, candidates []string, fetcher resource.Fetcher, allowFallback bool) (*opentype.Font, string, error) {
	if fetcher == nil {
		fetcher = resource.NewMux(nil)
	}

	parsed, source, err := resource.Resolve(ctx, candidates, fetcher, opentype.Parse)
	if err == nil {
		log.Info().Str("font", source).Msg("Header font loaded")
		return parsed, source, nil
	}
	if ctx.Err() != nil {
		return nil, "", ctx.Err()
	}

	if !allowFallback {
		return nil, "", &reporterr.FontLoadError{Tried: candidates, Err: err}
	}

	log.Warn().Err(err).Strs("tried", candidates).Msg("No header font candidate could be loaded, using embedded fallback")
	parsed, err = opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, "", &reporterr.FontLoadError{Tried: candidates, Err: err}
	}
	return parsed, FallbackName, nil
}
