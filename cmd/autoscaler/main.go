package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OldStager01/paas-autoscaler/api"
	"github.com/OldStager01/paas-autoscaler/internal/clock"
	"github.com/OldStager01/paas-autoscaler/internal/cooldown"
	"github.com/OldStager01/paas-autoscaler/internal/decision"
	"github.com/OldStager01/paas-autoscaler/internal/events"
	"github.com/OldStager01/paas-autoscaler/internal/logger"
	"github.com/OldStager01/paas-autoscaler/internal/metrics"
	"github.com/OldStager01/paas-autoscaler/internal/orchestrator"
	"github.com/OldStager01/paas-autoscaler/internal/scaler"
	"github.com/OldStager01/paas-autoscaler/pkg/clients/cloudwatch"
	"github.com/OldStager01/paas-autoscaler/pkg/clients/paas"
	"github.com/OldStager01/paas-autoscaler/pkg/clients/sqlstore"
	"github.com/OldStager01/paas-autoscaler/pkg/clients/sqs"
	"github.com/OldStager01/paas-autoscaler/pkg/config"
	"github.com/OldStager01/paas-autoscaler/pkg/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Setup(cfg.General.LogLevel, cfg.General.LogMode)
	logger.Infof("starting autoscaler for %s/%s", cfg.General.CFOrg, cfg.General.CFSpace)

	var db *database.DB
	if cfg.DatabaseURI != "" {
		db, err = database.New(dsnFromURI(cfg.DatabaseURI))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		logger.Info("database connection established")
	} else {
		logger.Info("no database configured, scheduled_jobs scaler and event persistence are disabled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	if *migrate {
		defer cancel()
		if db == nil {
			return fmt.Errorf("cannot run migrations: no database configured")
		}
		logger.Info("running database migrations")
		migrator := database.NewMigrator(db)
		if err := migrator.Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("migrations completed successfully")
		return nil
	}
	cancel()

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-shutdownChan
		logger.Infof("received signal %v, shutting down", sig)
		runCancel()
	}()

	sink := buildMetricsSink(cfg)

	paasClient := paas.NewClient(paas.Config{
		APIURL:     cfg.General.CFAPIURL,
		Username:   cfg.CFUsername,
		Password:   cfg.CFPassword,
		HTTPProxy:  cfg.HTTPProxy,
		HTTPSProxy: cfg.HTTPSProxy,
	})

	cwClient, err := cloudwatch.New(runCtx, cfg.AWSRegion)
	if err != nil {
		return fmt.Errorf("failed to build cloudwatch client: %w", err)
	}

	sqsClient, err := sqs.New(runCtx, cfg.AWSRegion)
	if err != nil {
		return fmt.Errorf("failed to build sqs client: %w", err)
	}

	var jobsBacklog *sqlstore.Client
	if db != nil {
		jobsBacklog = sqlstore.New(db)
	}

	store, err := buildCooldownStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to build cooldown store: %w", err)
	}

	bus := events.NewEventBus(100)
	defer bus.Close()
	pub := events.NewPublisher(bus)
	eventLogger := events.NewEventLogger(db, bus.SubscribeAll())
	eventLogger.Start()
	defer eventLogger.Stop()

	realClock := clock.Real{}
	engine := decision.NewEngine(decision.Config{
		CooldownUp:   cfg.CooldownUp(),
		CooldownDown: cfg.CooldownDown(),
	}, store, realClock, sink, paasClient)

	orch := orchestrator.New(paasClient, cfg.General.CFOrg, cfg.General.CFSpace, engine, pub)

	snapshot, err := paasClient.ListApps(runCtx, cfg.General.CFOrg, cfg.General.CFSpace)
	if err != nil {
		return fmt.Errorf("failed to resolve app guids at startup: %w", err)
	}

	for _, appSpec := range cfg.Apps {
		info, ok := snapshot[appSpec.Name]
		if !ok {
			logger.WithApp(appSpec.Name).Warn("configured app not found in paas org/space, it will be skipped until the process restarts")
			continue
		}

		deps := scaler.Dependencies{
			Clock:                 realClock,
			Sink:                  sink,
			CloudWatch:            cwClient,
			Queues:                sqsClient,
			AppStats:              paasClient,
			QueuePrefix:           cfg.Scalers.SQSQueuePrefix,
			ScheduleScalerEnabled: func() bool { return cfg.Scalers.ScheduleScalerEnabled },
			AppGUID:               info.GUID,
		}
		if jobsBacklog != nil {
			deps.JobsBacklog = jobsBacklog
		}

		scalers := make([]scaler.Scaler, 0, len(appSpec.Scalers))
		for _, spec := range appSpec.Scalers {
			// SCALERS-block defaults fill in per-scaler fields left unset.
			if spec.ThresholdPct <= 0 {
				spec.ThresholdPct = cfg.Scalers.DefaultCPUPercentageThreshold
			}
			if spec.ScaleFactor <= 0 {
				spec.ScaleFactor = cfg.Scalers.DefaultScheduleScaleFactor
			}
			sc, err := scaler.Build(appSpec.Name, appSpec.MinInstances, appSpec.MaxInstances, spec, deps)
			if err != nil {
				return fmt.Errorf("failed to build scaler for app %q: %w", appSpec.Name, err)
			}
			scalers = append(scalers, sc)
		}

		orch.RegisterApp(appSpec, info.GUID, scalers)
	}

	var apiServer *apiRuntime
	if cfg.API.Enabled {
		apiServer = startAPIServer(cfg, db, orch, bus)
		defer apiServer.shutdown()
	}

	runner := orchestrator.NewPeriodicRunner(cfg.ScheduleInterval(), orch.Tick)
	runner.Run(runCtx)

	logger.Info("autoscaler stopped")
	return nil
}

func buildMetricsSink(cfg *config.Config) metrics.Sink {
	exporter := metrics.NewPrometheusExporter()
	exporter.StartServer(9090)

	if !cfg.General.StatsDEnabled {
		return metrics.Multi{exporter}
	}

	statsd, err := metrics.NewStatsDClient(metrics.StatsDConfig{
		Host:   cfg.StatsDHost,
		Port:   cfg.StatsDPort,
		Prefix: cfg.StatsDPrefix,
	})
	if err != nil {
		logger.Warnf("statsd client unavailable, falling back to prometheus-only metrics: %v", err)
		return metrics.Multi{exporter}
	}
	return metrics.Multi{exporter, statsd}
}

func buildCooldownStore(cfg *config.Config) (cooldown.Store, error) {
	if cfg.RedisURL == "" {
		logger.Info("no REDIS_URL configured, cooldown history will not survive a restart")
		return cooldown.NewMemory(), nil
	}
	return cooldown.NewRedisStore(cfg.RedisURL)
}

// dsnFromURI turns the SQLALCHEMY_DATABASE_URI / VCAP_SERVICES-sourced
// Postgres URI into the teacher's structured database.Config. The
// driver (lib/pq) accepts a plain URI directly, so RawDSN carries the
// whole URI and the structured fields are left empty.
func dsnFromURI(uri string) database.Config {
	return database.Config{RawDSN: uri}
}

// apiRuntime is the running Observability API and its background
// event bridge, kept only so run() can shut it down on exit.
type apiRuntime struct {
	server *api.Server
}

func startAPIServer(cfg *config.Config, db *database.DB, orch *orchestrator.Orchestrator, bus *events.EventBus) *apiRuntime {
	server := api.NewServer(cfg.API, db, orch, bus)

	go func() {
		logger.Infof("observability api listening on :%d", cfg.API.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("observability api stopped: %v", err)
		}
	}()

	return &apiRuntime{server: server}
}

func (r *apiRuntime) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.server.Shutdown(ctx); err != nil {
		logger.Warnf("observability api shutdown error: %v", err)
	}
}
