package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Aliserag/flow-agentkit-starter/internal/agent"
	"github.com/Aliserag/flow-agentkit-starter/internal/bus"
	"github.com/Aliserag/flow-agentkit-starter/internal/config"
	"github.com/Aliserag/flow-agentkit-starter/internal/logger"
	"github.com/Aliserag/flow-agentkit-starter/internal/metrics"
	"github.com/Aliserag/flow-agentkit-starter/internal/server"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	flag.Parse()

	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	bootLog := logger.New(config.LoggingConfig{Level: os.Getenv("LOG_LEVEL")})

	appConfig, err := config.LoadConfig(*configPath, bootLog)
	if err != nil {
		bootLog.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(appConfig.Logging)

	eventBus := bus.NewEventBus(log)
	defer eventBus.Stop()
	log.AddHook(logger.NewBusLogHook(eventBus, "agentd"))

	service := agent.NewService(appConfig, eventBus, log)
	defer service.Close()

	srv := server.New(appConfig.HTTP, service, eventBus, log)

	if appConfig.Metrics.Enabled {
		collector := metrics.NewCollector(log, appConfig.Network.Name)
		collector.Attach(eventBus)
		srv.MountMetrics(collector.Handler())

		if appConfig.Metrics.RemoteWriteURL != "" {
			err := collector.StartRemoteWriter(
				appConfig.Metrics.RemoteWriteURL,
				appConfig.Metrics.PushInterval(),
				appConfig.Metrics.RemoteWriteUser,
				appConfig.Metrics.RemoteWritePass,
			)
			if err != nil {
				log.Errorf("Metrics remote writer disabled: %v", err)
			}
			defer collector.StopRemoteWriter()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infof("Agent server listening on port %d (network: %s, wallet mode: %s)",
		appConfig.HTTP.Port, appConfig.Network.Name, appConfig.Wallet.Mode)

	if err := srv.Run(ctx, appConfig.HTTP.Port); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Info("Agent server stopped")
}
