package main

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"go.lorenzomilicia.dev/report-collage/internal/compose"
	"go.lorenzomilicia.dev/report-collage/internal/layout"
)

var (
	planLayout string
	planHero   int
)

var planCmd = &cobra.Command{
	Use:   "plan <count>",
	Short: "Print the layout plan for an image count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("count must be a number: %w", err)
		}
		override, err := layout.ParseOverride(planLayout)
		if err != nil {
			return err
		}

		plan, err := layout.NewPlanner(cfg.PlannerOptions()).Plan(layout.Request{Count: count, Override: override, Hero: planHero})
		if err != nil {
			return err
		}

		composer := compose.New(cfg.ComposeOptions())
		out := struct {
			Plan        layout.Plan       `json:"plan"`
			CanvasWidth int               `json:"canvasWidth"`
			GridHeight  int               `json:"gridHeight"`
			Slots       []image.Rectangle `json:"slots"`
		}{
			Plan:        plan,
			CanvasWidth: composer.Width(plan, 0),
			GridHeight:  plan.GridHeight(),
			Slots:       compose.Placements(plan),
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVar(&planLayout, "layout", "auto", "Layout hint: auto, an image count or RxC")
	planCmd.Flags().IntVar(&planHero, "hero", 0, "1-based index of the featured image")
}
