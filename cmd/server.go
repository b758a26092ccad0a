package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rsionnach/nthlayer/config"
	"github.com/rsionnach/nthlayer/internal/database"
	"github.com/rsionnach/nthlayer/internal/http"
	"github.com/rsionnach/nthlayer/internal/http/handlers"
	"github.com/rsionnach/nthlayer/internal/metrics"
	"github.com/rsionnach/nthlayer/internal/scheduler"
	"github.com/rsionnach/nthlayer/internal/traces"
	"github.com/rsionnach/nthlayer/pkg/correlation"
	"github.com/rsionnach/nthlayer/pkg/drift"
	"github.com/rsionnach/nthlayer/pkg/slo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func buildServerCmd(logger *slog.Logger) *cobra.Command {
	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Runs the HTTP server",
		Run: func(cmd *cobra.Command, args []string) {
			err := runServer(logger)
			if err != nil {
				logger.Error(err.Error())
				os.Exit(2)
			}

		},
	}
	return serverCmd
}

func loadConfiguration() (*config.Configuration, error) {
	file, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("fail to read configuration file: %w", err)
	}
	var configuration config.Configuration
	if err := yaml.Unmarshal(file, &configuration); err != nil {
		return nil, fmt.Errorf("fail to parse yaml configuration file: %w", err)
	}
	return &configuration, nil
}

type services struct {
	store       *database.Database
	slo         *slo.Service
	drift       *drift.Service
	correlation *correlation.Service
}

func buildServices(logger *slog.Logger, configuration *config.Configuration) (*services, error) {
	store, err := database.New(logger, configuration.Database)
	if err != nil {
		return nil, err
	}
	policy, err := slo.NewPolicy(configuration.Analytics.Thresholds)
	if err != nil {
		return nil, err
	}
	return &services{
		store:       store,
		slo:         slo.New(logger, store),
		drift:       drift.New(logger, store, policy),
		correlation: correlation.New(logger, store, store, configuration.Analytics.Correlation, configuration.Analytics.Downstream),
	}, nil
}

func runServer(logger *slog.Logger) error {
	configuration, err := loadConfiguration()
	if err != nil {
		return err
	}
	stopTraces, err := traces.Setup(context.Background(), configuration.Traces)
	if err != nil {
		return err
	}
	components, err := buildServices(logger, configuration)
	if err != nil {
		return err
	}
	registry := prometheus.DefaultRegisterer.(*prometheus.Registry)
	if err := metrics.Register(registry); err != nil {
		return err
	}
	handlersBuilder := handlers.NewBuilder(components.slo, components.drift, components.correlation, components.store)
	server, err := http.NewServer(logger, configuration.HTTP, registry, handlersBuilder)
	if err != nil {
		return err
	}
	sweeper := scheduler.New(logger, configuration.Scheduler, components.slo, components.drift, components.correlation)
	if err := sweeper.Start(); err != nil {
		return err
	}

	signals := make(chan os.Signal, 1)
	errChan := make(chan error)

	signal.Notify(
		signals,
		syscall.SIGINT,
		syscall.SIGTERM)

	server.Start()
	go func() {
		for sig := range signals {
			switch sig {
			case syscall.SIGINT, syscall.SIGTERM:
				logger.Info(fmt.Sprintf("received signal %s, starting shutdown", sig))
				signal.Stop(signals)
				sweeper.Stop()
				if err := stopTraces(context.Background()); err != nil {
					logger.Error(err.Error())
				}
				err := server.Stop()
				if err != nil {
					errChan <- err
				}
				errChan <- nil
			}

		}
	}()
	exitErr := <-errChan
	return exitErr
}
