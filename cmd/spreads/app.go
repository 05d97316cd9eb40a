package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eddiefleurent/scranton_spreads/internal/broker"
	"github.com/eddiefleurent/scranton_spreads/internal/config"
	"github.com/eddiefleurent/scranton_spreads/internal/mock"
	"github.com/eddiefleurent/scranton_spreads/internal/retry"
)

// app holds what every subcommand needs once the config is loaded.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	out    io.Writer
	now    func() time.Time
}

func newRootCmd() *cobra.Command {
	a := &app{out: os.Stdout, now: time.Now}
	var configPath string
	var envFiles []string

	root := &cobra.Command{
		Use:           "spreads",
		Short:         "Reconcile option spread orders and screen for credit spreads",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadEnv(envFiles...); err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			a.cfg = cfg
			a.logger = newLogger(cfg.Environment, cmd.ErrOrStderr())
			a.out = cmd.OutOrStdout()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to configuration file")
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files loaded before the config")

	root.AddCommand(
		newReconcileCmd(a),
		newFetchCmd(a),
		newCostCmd(a),
		newScreenCmd(a),
		newServeCmd(a),
	)
	return root
}

func newLogger(env config.EnvironmentConfig, w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	if level, err := logrus.ParseLevel(env.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if env.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// broker builds the configured broker behind a circuit breaker.
func (a *app) broker() broker.Broker {
	var b broker.Broker
	switch a.cfg.Broker.Provider {
	case "mock":
		a.logger.Info("using generated market data")
		b = mock.NewDataProvider()
	default:
		mode := "live"
		if a.cfg.IsPaperTrading() {
			mode = "sandbox"
		}
		a.logger.WithField("mode", mode).Info("using Tradier API")
		b = broker.NewTradierAPIWithBaseURL(
			a.cfg.Broker.APIKey,
			a.cfg.Broker.AccountID,
			a.cfg.IsPaperTrading(),
			a.cfg.Broker.APIEndpoint,
			nil,
		).WithTimeout(a.cfg.CallTimeout())
	}
	return broker.NewCircuitBreakerBrokerWithSettings(b, a.cfg.CircuitBreakerSettings(), a.logger)
}

func (a *app) retry() *retry.Client {
	return retry.NewClient(a.logger, a.cfg.RetryConfig())
}
