package compose

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// Format is an output encoding.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	WebP Format = "webp"
)

// ParseFormat accepts jpeg/jpg, png or webp. Empty means JPEG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "webp":
		return WebP, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want jpeg, png or webp)", s)
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	if f == JPEG {
		return "jpg"
	}
	return string(f)
}

// ContentType returns the MIME type.
func (f Format) ContentType() string {
	return "image/" + string(f)
}

// EncodeOptions tunes the encoders.
type EncodeOptions struct {
	JPEGQuality int
	WebPQuality float32
}

// DefaultEncodeOptions returns JPEG quality 92 and WebP quality 90.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{JPEGQuality: 92, WebPQuality: 90}
}

// Encode writes img in the given format.
func Encode(w io.Writer, img image.Image, format Format, opts EncodeOptions) error {
	switch format {
	case JPEG, "":
		quality := opts.JPEGQuality
		if quality <= 0 || quality > 100 {
			quality = 92
		}
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case PNG:
		return imaging.Encode(w, img, imaging.PNG)
	case WebP:
		quality := opts.WebPQuality
		if quality <= 0 || quality > 100 {
			quality = 90
		}
		if err := webp.Encode(w, img, &webp.Options{Quality: quality}); err != nil {
			return fmt.Errorf("failed to encode webp: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// Filename returns report-YYYYMMDD-HHMMSS-<6 hex>.<ext> for the given time.
func Filename(now time.Time, format Format) string {
	var b [3]byte
	if _, err := rand.Read(b[:]); err != nil {
		b = [3]byte{0, 0, 0}
	}
	return fmt.Sprintf("report-%s-%s.%s", now.Format("20060102-150405"), hex.EncodeToString(b[:]), format.Extension())
}
