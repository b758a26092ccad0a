package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/rsionnach/nthlayer/pkg/correlation/aggregates"
	"github.com/spf13/cobra"
)

func buildCorrelateCmd(logger *slog.Logger) *cobra.Command {
	var service string
	var lookbackHours int
	correlateCmd := &cobra.Command{
		Use:   "correlate",
		Short: "Correlates recent deployments with error budget burn, exits with 0 (none), 1 (low/medium) or 2 (blocking)",
		Run: func(cmd *cobra.Command, args []string) {
			exitCode, err := runCorrelate(logger, service, lookbackHours)
			if err != nil {
				logger.Error(err.Error())
				os.Exit(2)
			}
			os.Exit(exitCode)
		},
	}
	correlateCmd.Flags().StringVar(&service, "service", "", "Service whose deployments to correlate")
	correlateCmd.Flags().IntVar(&lookbackHours, "lookback", 168, "Deployment lookback in hours")
	if err := correlateCmd.MarkFlagRequired("service"); err != nil {
		logger.Error(err.Error())
	}
	return correlateCmd
}

func runCorrelate(logger *slog.Logger, service string, lookbackHours int) (int, error) {
	configuration, err := loadConfiguration()
	if err != nil {
		return 0, err
	}
	components, err := buildServices(logger, configuration)
	if err != nil {
		return 0, err
	}
	results, err := components.correlation.CorrelateService(context.Background(), service, lookbackHours)
	if err != nil {
		return 0, err
	}
	if err := printJSON(results); err != nil {
		return 0, err
	}
	return aggregates.ExitCode(results), nil
}
