package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv overrides settings from COLLAGE_* variables. Unparseable values
// keep the current setting.
func (c *Config) ApplyEnv() {
	c.Server.Addr = env("COLLAGE_ADDR", c.Server.Addr)
	c.Server.ReadTimeout = envDuration("COLLAGE_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = envDuration("COLLAGE_WRITE_TIMEOUT", c.Server.WriteTimeout)

	c.Upload.MaxBodyBytes = envInt64("COLLAGE_MAX_BODY_BYTES", c.Upload.MaxBodyBytes)
	c.Upload.MaxImageBytes = envInt64("COLLAGE_MAX_IMAGE_BYTES", c.Upload.MaxImageBytes)
	c.Upload.MaxImages = envInt("COLLAGE_MAX_IMAGES", c.Upload.MaxImages)
	c.Upload.MaxSide = envInt("COLLAGE_MAX_SIDE", c.Upload.MaxSide)
	c.Upload.Dedupe = envBool("COLLAGE_DEDUPE", c.Upload.Dedupe)

	c.Canvas.Width = envInt("COLLAGE_CANVAS_WIDTH", c.Canvas.Width)

	c.Fit.Mode = env("COLLAGE_FIT_MODE", c.Fit.Mode)
	c.Fit.AllowRequestOverride = envBool("COLLAGE_FIT_ALLOW_OVERRIDE", c.Fit.AllowRequestOverride)

	if fonts := env("COLLAGE_FONTS", ""); fonts != "" {
		c.Header.Fonts = splitList(fonts)
	}
	c.Header.AllowFallback = envBool("COLLAGE_FONT_FALLBACK", c.Header.AllowFallback)

	c.Output.Format = env("COLLAGE_OUTPUT_FORMAT", c.Output.Format)
	c.Output.JPEGQuality = envInt("COLLAGE_JPEG_QUALITY", c.Output.JPEGQuality)

	c.Storage.Endpoint = env("COLLAGE_S3_ENDPOINT", c.Storage.Endpoint)
	c.Storage.Region = env("COLLAGE_S3_REGION", c.Storage.Region)

	c.Tracing.Exporter = env("COLLAGE_TRACE_EXPORTER", c.Tracing.Exporter)
	c.Tracing.OTLPEndpoint = env("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.OTLPEndpoint)
	c.Tracing.OTLPInsecure = envBool("OTEL_EXPORTER_OTLP_INSECURE", c.Tracing.OTLPInsecure)
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt64(key string, fallback int64) int64 {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
