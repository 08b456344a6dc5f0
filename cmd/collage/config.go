package main

import (
	"os"

	"github.com/spf13/cobra"

	"go.lorenzomilicia.dev/report-collage/internal/util"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  `Print the configuration after defaults, the YAML file and the environment have been applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := cfg
		if shown.Storage.SecretAccessKey != "" {
			shown.Storage.SecretAccessKey = "redacted"
		}
		return util.WriteYAML(os.Stdout, shown)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
