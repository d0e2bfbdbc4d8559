package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/backsim/internal/config"
	"github.com/abdoElHodaky/backsim/internal/engine"
	"github.com/abdoElHodaky/backsim/internal/exampleactor"
	"github.com/abdoElHodaky/backsim/internal/mdfile"
	"github.com/abdoElHodaky/backsim/internal/messagebus"
	"github.com/abdoElHodaky/backsim/internal/metrics"
	"github.com/abdoElHodaky/backsim/pkg/simtype"
)

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a backtest against a market-data fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBacktest(*configPath)
		},
	}
}

// runBacktest wires Config, Logger, Metrics and Engine through a short-
// lived fx.App: the teacher's cmd entrypoints build their long-running
// servers the same way, but a backtest is a batch job, so this Starts
// the app, runs the backtest to completion on the foreground goroutine,
// then Stops it rather than blocking on fx's signal handler.
func runBacktest(configPath string) error {
	var runErr error

	app := fx.New(
		fx.Supply(configPath),
		fx.Provide(
			loadConfig,
			newLogger,
			newMetrics,
			newMarketDataProvider,
			newEngine,
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			cfg *config.Config,
			logger *zap.Logger,
			m *metrics.Metrics,
			mdProvider *mdfile.Provider,
			eng *engine.Engine,
		) {
			if cfg.Metrics.Enabled {
				srv := &http.Server{Addr: cfg.Metrics.Address, Handler: promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})}
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						go func() {
							if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
								logger.Error("metrics server stopped", zap.Error(err))
							}
						}()
						return nil
					},
					OnStop: func(ctx context.Context) error {
						return srv.Shutdown(ctx)
					},
				})
			}

			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					runErr = execute(cfg, logger, m, mdProvider, eng)
					return runErr
				},
			})
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start application: %w", err)
	}
	defer app.Stop(ctx)

	return runErr
}

func loadConfig(configPath string) (*config.Config, error) { return config.Load(configPath) }

func newLogger(cfg *config.Config) (*zap.Logger, error) { return config.NewLogger(cfg) }

func newMetrics() *metrics.Metrics { return metrics.New() }

func newMarketDataProvider(cfg *config.Config, logger *zap.Logger) (*mdfile.Provider, error) {
	exchange := simtype.Exchange("")
	if len(cfg.Exchanges) > 0 {
		exchange = simtype.Exchange(cfg.Exchanges[0])
	}
	return mdfile.New(cfg.MarketDataFile, exchange, logger)
}

func newEngine(cfg *config.Config, logger *zap.Logger) (*engine.Engine, error) {
	eng, err := engine.New(logger)
	if err != nil {
		return nil, err
	}
	for _, exchange := range cfg.Exchanges {
		eng.AddExchange(simtype.Exchange(exchange))
		eng.AddActor(exampleactor.New(simtype.Exchange(exchange), logger))
	}
	return eng, nil
}

func execute(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics, mdProvider *mdfile.Provider, eng *engine.Engine) error {
	configs := engine.BrokerConfigs{}
	for exchange, broker := range cfg.Brokers {
		configs[simtype.Exchange(exchange)] = broker.ToSimBrokerConfig()
	}

	eng.AddActor(metrics.NewEventRecorder(m))

	var messaging *engine.Messaging
	var bus *messagebus.GoChannelBus
	var err error
	switch cfg.Messaging.Backend {
	case "memory":
		bus, err = messagebus.NewGoChannelBus(cfg.Messaging.BufferSize, logger)
		if err != nil {
			return fmt.Errorf("build in-memory message bus: %w", err)
		}
		defer bus.Close()
		eng.AddMessageHandler(metrics.NewMessageHandler(m))
		messaging = &engine.Messaging{Provider: bus, Sender: bus}
	case "nats":
		natsBus, err := messagebus.NewNATSBus(messagebus.NATSConfig{
			URL:     cfg.Messaging.NATSURL,
			Subject: cfg.Messaging.NATSSubject,
		}, logger)
		if err != nil {
			return fmt.Errorf("build nats message bus: %w", err)
		}
		defer natsBus.Close()
		eng.AddMessageHandler(metrics.NewMessageHandler(m))
		messaging = &engine.Messaging{Provider: natsBus, Sender: natsBus}
	case "":
		// messaging disabled
	default:
		return fmt.Errorf("unknown messaging backend %q", cfg.Messaging.Backend)
	}

	info, err := eng.ExecuteWithSimEnvironment(mdProvider, simtype.Timestamp(cfg.DefaultLatency), configs, messaging)
	if err != nil {
		return fmt.Errorf("execute backtest: %w", err)
	}
	info.Wait()

	logger.Info("backtest complete")
	return nil
}
