package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"go.lorenzomilicia.dev/report-collage/internal/compose"
	"go.lorenzomilicia.dev/report-collage/internal/fit"
	"go.lorenzomilicia.dev/report-collage/internal/header"
	"go.lorenzomilicia.dev/report-collage/internal/layout"
	"go.lorenzomilicia.dev/report-collage/internal/normalize"
	"go.lorenzomilicia.dev/report-collage/internal/report"
)

var (
	composeInputs []string
	composeOutput string
	composeTitle  string
	composeBranch string
	composeDate   string
	composeDetail string
	composeLayout string
	composeHero   int
	composeFit    string
	composeFormat string
)

var composeCmd = &cobra.Command{
	Use:   "compose [images...]",
	Short: "Compose a report from local files",
	Long:  `Build one report image offline from local photos. Inputs may be files or directories; directories contribute their images in name order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := expandInputs(append(composeInputs, args...))
		if err != nil {
			return err
		}

		override, err := layout.ParseOverride(composeLayout)
		if err != nil {
			return err
		}
		mode := fit.Mode("")
		if composeFit != "" {
			if mode, err = fit.ParseMode(composeFit); err != nil {
				return err
			}
		}
		format := compose.Format("")
		if composeFormat != "" {
			if format, err = compose.ParseFormat(composeFormat); err != nil {
				return err
			}
		} else if composeOutput != "" {
			// Infer from the output extension when it names a known format.
			if f, err := compose.ParseFormat(strings.TrimPrefix(filepath.Ext(composeOutput), ".")); err == nil {
				format = f
			}
		}

		title := composeTitle
		if title == "" {
			title = cfg.BranchName(composeBranch)
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		sources := make([]normalize.Source, len(paths))
		for i, p := range paths {
			sources[i] = &normalize.FileSource{Path: p}
		}

		result, err := a.service.Generate(cmd.Context(), report.Request{
			Sources:  sources,
			Header:   header.NewSpec(title, composeDate, composeDetail),
			Override: override,
			Hero:     composeHero,
			Fit:      mode,
			Format:   format,
		})
		if err != nil {
			return err
		}

		out := composeOutput
		if out == "" {
			out = result.Filename
		}
		if err := a.store.Store(cmd.Context(), out, result.Data, result.ContentType); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}

		log.Info().
			Str("output", out).
			Int("images", result.Count).
			Str("size", fmt.Sprintf("%dx%d", result.Width, result.Height)).
			Str("bytes", humanize.Bytes(uint64(len(result.Data)))).
			Msg("Report written")
		return nil
	},
}

// expandInputs replaces directories by the images they contain.
func expandInputs(inputs []string) ([]string, error) {
	var paths []string
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, in)
			continue
		}

		entries, err := os.ReadDir(in)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && isImage(e.Name()) {
				found = append(found, filepath.Join(in, e.Name()))
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}

func isImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	}
	return false
}

func init() {
	rootCmd.AddCommand(composeCmd)

	composeCmd.Flags().StringArrayVarP(&composeInputs, "input", "i", nil, "Input image or directory (repeatable)")
	composeCmd.Flags().StringVarP(&composeOutput, "output", "o", "", "Output file or s3://bucket/key (default: generated report name)")
	composeCmd.Flags().StringVar(&composeTitle, "title", "", "Header title")
	composeCmd.Flags().StringVar(&composeBranch, "branch", "", "Branch key resolved through the configured branch table")
	composeCmd.Flags().StringVar(&composeDate, "date", "", "Header date line")
	composeCmd.Flags().StringVar(&composeDetail, "detail", "", "Header detail line")
	composeCmd.Flags().StringVar(&composeLayout, "layout", "auto", "Layout hint: auto, an image count or RxC")
	composeCmd.Flags().IntVar(&composeHero, "hero", 0, "1-based index of the featured image")
	composeCmd.Flags().StringVar(&composeFit, "fit", "", "Fit mode: cover, contain or square (default from config)")
	composeCmd.Flags().StringVar(&composeFormat, "format", "", "Output format: jpeg, png or webp (default from config or output extension)")
}
