package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vidtools/internal/api"
	"vidtools/internal/daemon"
	"vidtools/internal/jobstore"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Run one sweeper pass over uploads, temp files, outputs and logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.cliLogger()

			var store *jobstore.Store
			if cfg.Jobs.Database != jobstore.MemoryDSN {
				store, err = jobstore.Open(cfg.Jobs.Database, logger)
				if err != nil {
					return fmt.Errorf("open job store: %w", err)
				}
				defer store.Close()
			}

			result := daemon.NewSweeper(cfg, store, logger).Sweep(cmd.Context())
			if asJSON {
				return writeJSON(cmd, api.SweepSummary{
					FinishedAt:   api.FormatTime(result.FinishedAt),
					FilesRemoved: len(result.Removed),
					Failures:     result.Failures,
					JobsPruned:   result.JobsPruned,
					LogsPruned:   result.LogsPruned,
				})
			}
			out := cmd.OutOrStdout()
			for _, path := range result.Removed {
				fmt.Fprintf(out, "removed %s\n", path)
			}
			fmt.Fprintf(out, "Removed %d file(s), pruned %d job(s) and %d log(s); %d failure(s)\n",
				len(result.Removed), result.JobsPruned, result.LogsPruned, result.Failures)
			if result.Failures > 0 {
				return fmt.Errorf("cleanup finished with %d failure(s)", result.Failures)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
