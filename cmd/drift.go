package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rsionnach/nthlayer/pkg/slo"
	"github.com/spf13/cobra"
)

func buildDriftCmd(logger *slog.Logger) *cobra.Command {
	var service string
	var sloName string
	var window string
	driftCmd := &cobra.Command{
		Use:   "drift",
		Short: "Runs a one-shot drift analysis and exits with 0 (healthy), 1 (warn) or 2 (critical)",
		Run: func(cmd *cobra.Command, args []string) {
			exitCode, err := runDrift(logger, service, sloName, window)
			if err != nil {
				logger.Error(err.Error())
				os.Exit(2)
			}
			os.Exit(exitCode)
		},
	}
	driftCmd.Flags().StringVar(&service, "service", "", "Service to analyze")
	driftCmd.Flags().StringVar(&sloName, "slo", "", "SLO name to analyze (all SLOs of the service when empty)")
	driftCmd.Flags().StringVar(&window, "window", "", "Analysis window, like 30d (tier default when empty)")
	if err := driftCmd.MarkFlagRequired("service"); err != nil {
		logger.Error(err.Error())
	}
	return driftCmd
}

func runDrift(logger *slog.Logger, service string, sloName string, window string) (int, error) {
	configuration, err := loadConfiguration()
	if err != nil {
		return 0, err
	}
	components, err := buildServices(logger, configuration)
	if err != nil {
		return 0, err
	}
	ctx := context.Background()

	if sloName != "" {
		sloDef, err := components.slo.GetSLOByName(ctx, sloName)
		if err != nil {
			return 0, err
		}
		analysisWindow := time.Duration(0)
		if window != "" {
			analysisWindow, err = slo.ParseWindow(window)
			if err != nil {
				return 0, err
			}
		}
		result, err := components.drift.Analyze(ctx, *sloDef, analysisWindow)
		if err != nil {
			return 0, err
		}
		if err := printJSON(result); err != nil {
			return 0, err
		}
		return result.ExitCode, nil
	}

	results, err := components.drift.AnalyzeService(ctx, service)
	if err != nil {
		return 0, err
	}
	if err := printJSON(results); err != nil {
		return 0, err
	}
	exitCode := 0
	for _, result := range results {
		if result.ExitCode > exitCode {
			exitCode = result.ExitCode
		}
	}
	return exitCode, nil
}

func printJSON(value any) error {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("fail to serialize result: %w", err)
	}
	fmt.Println(string(encoded))
	return nil
}
