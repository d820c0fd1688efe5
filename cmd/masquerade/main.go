// Masquerade Core
//
// Masquerade mirrors the state of base devices onto virtual devices that
// present them under a different kind: a contact sensor reported as an
// on/off sensor, a raw level reported as a 0-100 dimmer, a dimmer driven as
// a fan. The host owning the devices talks to this service over MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/masquerade-core/migrations"

	"github.com/nerrad567/masquerade-core/internal/api"
	"github.com/nerrad567/masquerade-core/internal/bridge"
	"github.com/nerrad567/masquerade-core/internal/history"
	"github.com/nerrad567/masquerade-core/internal/infrastructure/config"
	"github.com/nerrad567/masquerade-core/internal/infrastructure/database"
	"github.com/nerrad567/masquerade-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/masquerade-core/internal/infrastructure/logging"
	"github.com/nerrad567/masquerade-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/masquerade-core/internal/masquerade"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the service together and blocks until ctx is cancelled.
// Deferred cleanup runs in reverse start order.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Masquerade Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := config.PathFromEnv()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	hostOpts := bridge.HostOptions{Logger: log.Component("host")}
	var journal *history.Journal
	if cfg.History.Enabled {
		journal = history.NewJournal(history.NewSQLiteRepository(db.DB), history.JournalOptions{
			QueueSize:     cfg.History.QueueSize,
			Retention:     cfg.HistoryRetention(),
			PruneInterval: cfg.HistoryPruneInterval(),
			Logger:        log.Component("history"),
		})
		journal.Start(ctx)
		defer func() {
			log.Info("stopping history journal", "dropped", journal.Dropped())
			journal.Stop()
		}()
		hostOpts.Recorder = journal
		log.Info("history journal started", "retention_days", cfg.History.RetentionDays)
	} else {
		log.Info("history journal disabled")
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		hostOpts.Metrics = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	svc, err := buildServices(cfg, mqttClient, hostOpts, log)
	if err != nil {
		return err
	}
	b := svc.bridge
	if startErr := b.Start(ctx); startErr != nil {
		return fmt.Errorf("starting bridge: %w", startErr)
	}
	defer func() {
		log.Info("stopping bridge")
		b.Stop()
	}()
	log.Info("bridge started")

	checks := map[string]api.HealthChecker{
		"database": db,
		"mqtt":     mqttClient,
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}

	deps := api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log.Component("api"),
		Registry: svc.registry,
		Actions:  b,
		Bridge:   b,
		Checks:   checks,
		Hub:      svc.hub,
		Version:  version,
	}
	if journal != nil {
		deps.History = journal
	}

	apiServer, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	log.Info("Masquerade Core stopped")
	return nil
}

// services holds the components shared by the bridge and the API.
type services struct {
	registry *masquerade.Registry
	hub      *api.Hub
	bridge   *bridge.Bridge
}

// buildServices assembles the masquerade engine around the MQTT host. The
// WebSocket hub is created here so the host can broadcast before the API
// server starts.
func buildServices(cfg *config.Config, client *mqtt.Client, hostOpts bridge.HostOptions, log *logging.Logger) (*services, error) {
	registry := masquerade.NewRegistry()
	registry.SetLogger(log.Component("registry"))

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))

	hostOpts.Publisher = client
	hostOpts.QoS = client.QoS()
	hostOpts.Registry = registry
	hostOpts.Broadcaster = hub
	host, err := bridge.NewHost(hostOpts)
	if err != nil {
		return nil, fmt.Errorf("creating host: %w", err)
	}

	engine := masquerade.NewEngine(host)
	engine.SetLogger(log.Component("engine"))

	dispatcher := masquerade.NewDispatcher(registry, engine, host)
	dispatcher.SetLogger(log.Component("dispatcher"))

	actions := masquerade.NewActions(registry, host)
	actions.SetLogger(log.Component("actions"))

	b, err := bridge.NewBridge(bridge.Options{
		MQTTClient: client,
		QoS:        client.QoS(),
		Registry:   registry,
		Dispatcher: dispatcher,
		Actions:    actions,
		Host:       host,
		Logger:     log.Component("bridge"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating bridge: %w", err)
	}
	return &services{registry: registry, hub: hub, bridge: b}, nil
}

// healthCheck runs every dependency check and returns the first failure.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for _, name := range []string{"database", "mqtt", "influxdb"} {
		check, ok := checks[name]
		if !ok {
			continue
		}
		if err := check.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
