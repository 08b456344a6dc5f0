package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"

	"go.lorenzomilicia.dev/report-collage/internal/compose"
	"go.lorenzomilicia.dev/report-collage/internal/config"
	"go.lorenzomilicia.dev/report-collage/internal/fit"
	"go.lorenzomilicia.dev/report-collage/internal/header"
	"go.lorenzomilicia.dev/report-collage/internal/layout"
	"go.lorenzomilicia.dev/report-collage/internal/normalize"
	"go.lorenzomilicia.dev/report-collage/internal/report"
	"go.lorenzomilicia.dev/report-collage/internal/reporterr"
)

// Options lists what the form offers.
type Options struct {
	Branches      []config.Branch `json:"branches"`
	DetailPresets []string        `json:"detailPresets"`
	LayoutChoices []string        `json:"layoutChoices"`
	FitModes      []string        `json:"fitModes,omitempty"`
	DefaultFit    string          `json:"defaultFit"`
	Formats       []string        `json:"formats"`
	DefaultFormat string          `json:"defaultFormat"`
	MaxImages     int             `json:"maxImages"`
	MaxUploadSize int64           `json:"maxUploadBytes"`
	MaxUpload     string          `json:"maxUpload"`
}

func (s *Server) options() Options {
	opts := Options{
		Branches:      s.cfg.Form.Branches,
		DetailPresets: s.cfg.Form.DetailPresets,
		LayoutChoices: s.cfg.Form.LayoutChoices,
		DefaultFit:    s.cfg.Fit.Mode,
		Formats:       []string{string(compose.JPEG), string(compose.PNG), string(compose.WebP)},
		DefaultFormat: s.cfg.Output.Format,
		MaxImages:     s.cfg.Upload.MaxImages,
		MaxUploadSize: s.cfg.Upload.MaxBodyBytes,
		MaxUpload:     humanize.IBytes(uint64(s.cfg.Upload.MaxBodyBytes)),
	}
	if s.cfg.Fit.AllowRequestOverride {
		opts.FitModes = []string{string(fit.Cover), string(fit.Contain), string(fit.Square)}
	}
	if len(opts.LayoutChoices) == 0 {
		opts.LayoutChoices = []string{"auto"}
	}
	return opts
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := s.tmpl.ExecuteTemplate(c.Writer, "index.html", s.options()); err != nil {
		zlog.Error().Err(err).Msg("template execute error")
		c.AbortWithError(http.StatusInternalServerError, err)
	}
}

func (s *Server) handleOptions(c *gin.Context) {
	c.JSON(http.StatusOK, s.options())
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleGenerate(c *gin.Context) {
	limit := s.cfg.Upload.MaxBodyBytes
	if c.Request.ContentLength > limit {
		s.writeError(c, &reporterr.PayloadTooLargeError{Limit: limit})
		return
	}
	body := http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	c.Request.Body = body

	form, err := c.MultipartForm()
	if err != nil {
		if exceeded(err, body) {
			s.writeError(c, &reporterr.PayloadTooLargeError{Limit: limit})
			return
		}
		s.writeError(c, &reporterr.InvalidInputError{Field: "form", Reason: "expected a multipart upload"})
		return
	}

	req, err := s.buildRequest(form)
	if err != nil {
		s.writeError(c, err)
		return
	}

	result, err := s.service.Generate(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.metrics.reportsTotal.WithLabelValues(string(result.Plan.Mode), strings.TrimPrefix(result.ContentType, "image/")).Inc()
	s.metrics.reportImages.Observe(float64(result.Count))
	s.metrics.reportBytes.Observe(float64(len(result.Data)))

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func (s *Server) buildRequest(form *multipart.Form) (report.Request, error) {
	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	title := value("title")
	if title == "" {
		title = value("branch")
	}
	title = s.cfg.BranchName(title)

	override, err := layout.ParseOverride(value("count_mode"))
	if err != nil {
		zlog.Debug().Err(err).Msg("Ignoring layout hint")
		override = layout.Override{}
	}

	hero := 0
	if raw := value("hero"); raw != "" {
		if hero, err = strconv.Atoi(raw); err != nil || hero < 0 {
			zlog.Debug().Str("hero", raw).Msg("Ignoring hero index")
			hero = 0
		}
	}

	var mode fit.Mode
	if raw := value("fit"); raw != "" && s.cfg.Fit.AllowRequestOverride {
		if mode, err = fit.ParseMode(raw); err != nil {
			return report.Request{}, &reporterr.InvalidInputError{Field: "fit", Reason: err.Error()}
		}
	}

	var format compose.Format
	if raw := value("format"); raw != "" {
		if format, err = compose.ParseFormat(raw); err != nil {
			return report.Request{}, &reporterr.InvalidInputError{Field: "format", Reason: err.Error()}
		}
	}

	files := form.File["images"]
	sources := make([]normalize.Source, 0, len(files))
	for _, fh := range files {
		if fh.Filename == "" && fh.Size == 0 {
			continue
		}
		sources = append(sources, &normalize.MultipartFileSource{Header: fh})
	}

	return report.Request{
		Sources:  sources,
		Header:   header.NewSpec(title, value("date"), value("detail")),
		Override: override,
		Hero:     hero,
		Fit:      mode,
		Format:   format,
	}, nil
}

// exceeded reports whether a form parse failed because the body hit its cap.
// The multipart reader may not wrap the cause, but a tripped MaxBytesReader
// keeps returning its error.
func exceeded(err error, body io.Reader) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	_, err = body.Read(make([]byte, 1))
	return errors.As(err, &maxErr)
}

// writeError answers with {"error": "..."}. Caller mistakes echo their
// message, anything else is logged and reported generically.
func (s *Server) writeError(c *gin.Context, err error) {
	status := reporterr.StatusCode(err)
	message := err.Error()
	if !reporterr.IsUserError(err) {
		zlog.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Report generation failed")
		message = "failed to generate report"
	} else {
		zlog.Warn().Err(err).Int("status", status).Msg("Rejected report request")
	}
	s.metrics.rejectedTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
