// Package reporterr defines the failure taxonomy of report generation and
// maps each kind to the HTTP status the server answers with.
package reporterr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
)

// NoImagesError means no valid image was left after normalization.
type NoImagesError struct{}

func (*NoImagesError) Error() string {
	return "no images were uploaded"
}

// DecodeError means a payload is not a decodable raster image.
type DecodeError struct {
	Filename string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("invalid image: %v", e.Err)
	}
	return fmt.Sprintf("invalid image %q: %v", e.Filename, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// FontLoadError means no font candidate could be loaded and the built-in
// fallback is disabled.
type FontLoadError struct {
	Tried []string
	Err   error
}

func (e *FontLoadError) Error() string {
	return fmt.Sprintf("no usable font among %d candidate(s): %v", len(e.Tried), e.Err)
}

func (e *FontLoadError) Unwrap() error {
	return e.Err
}

// PayloadTooLargeError means the request body exceeded the upload cap.
type PayloadTooLargeError struct {
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("upload exceeds the %s limit", humanize.IBytes(uint64(e.Limit)))
}

// TooManyImagesError means more files were submitted than one report accepts.
type TooManyImagesError struct {
	Count int
	Limit int
}

func (e *TooManyImagesError) Error() string {
	return fmt.Sprintf("%d images submitted, at most %d are allowed", e.Count, e.Limit)
}

// InvalidInputError covers malformed form fields.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StatusCode returns the HTTP status for err. Unknown errors are 500.
func StatusCode(err error) int {
	var (
		noImages *NoImagesError
		decode   *DecodeError
		tooLarge *PayloadTooLargeError
		tooMany  *TooManyImagesError
		invalid  *InvalidInputError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &noImages), errors.As(err, &decode), errors.As(err, &tooMany), errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// IsUserError reports whether err is caused by the caller's input, in which
// case its message is safe to return verbatim.
func IsUserError(err error) bool {
	status := StatusCode(err)
	return status >= 400 && status < 500
}
