package cmd

import (
	"github.com/spf13/cobra"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/bootstrap"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the curation HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return bootstrap.Start(cmd.Context(), *configPath)
		},
	}
}
