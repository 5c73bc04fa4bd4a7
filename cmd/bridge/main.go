package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	httpapi "myhome-bridge/internal/adapters/input/http"
	"myhome-bridge/internal/adapters/input/mqtt"
	"myhome-bridge/internal/adapters/input/ssdp"
	"myhome-bridge/internal/adapters/output/myhome"
	"myhome-bridge/internal/adapters/output/persistence"
	"myhome-bridge/internal/domain/model"
	"myhome-bridge/internal/domain/service"
	"myhome-bridge/internal/infrastructure/config"
	"myhome-bridge/internal/infrastructure/logging"
	"myhome-bridge/internal/infrastructure/metrics"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (defaults and MYHOME_* env when empty)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		// Logger is not configured yet
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("loading configuration")
	}

	logger := logging.New(cfg.Logging)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("bridge stopped")
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.New()
	repo := persistence.NewJSONEntryRepository(cfg.EntriesPath)
	newClient := myhome.Factory()

	topics := mqtt.Topics{DiscoveryPrefix: cfg.MQTT.DiscoveryPrefix, NodeID: cfg.MQTT.NodeID}
	conn, err := mqtt.Connect(cfg.MQTT, topics.Availability(), logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	host := mqtt.NewHost(conn, topics, cfg.MQTT.QoS, logger)

	manager := service.NewManager(newClient, host, logger)
	manager.SetMetrics(recorder)

	setup := service.NewSetupService(repo, newClient, logger)
	setup.OnEntryCreated(func(ctx context.Context, entry *model.HubEntry) {
		startEntry(ctx, manager, entry, logger)
	})
	setup.OnEntryUpdated(func(ctx context.Context, entry *model.HubEntry) {
		startEntry(ctx, manager, entry, logger)
	})
	entries := service.NewEntryService(repo, manager)

	api := httpapi.NewServer(manager, setup, entries, host, recorder.Handler(), logger)
	host.OnState(api.BroadcastState)

	if err := host.Start(ctx); err != nil {
		return err
	}

	stored, err := entries.List(ctx)
	if err != nil {
		return err
	}
	for _, entry := range stored {
		startEntry(ctx, manager, entry, logger)
	}
	if len(stored) == 0 {
		bootstrap(ctx, cfg, setup, logger)
	}

	poller := service.NewPoller(manager, host, cfg.Poll.Interval, cfg.Poll.Parallel, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		poller.Run(ctx)
		return nil
	})
	g.Go(func() error {
		err := api.ListenAndServe(ctx, cfg.HTTP.Addr)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	err = g.Wait()
	if stopErr := manager.StopAll(context.Background()); stopErr != nil {
		logger.Warn().Err(stopErr).Msg("stopping bridges")
	}
	logger.Info().Msg("bridge shut down")
	return err
}

func startEntry(ctx context.Context, manager *service.Manager, entry *model.HubEntry, logger zerolog.Logger) {
	ok, err := manager.StartEntry(ctx, entry)
	switch {
	case err != nil:
		logger.Error().Err(err).Str("hub", entry.Serial).Msg("starting hub")
	case !ok:
		logger.Error().Str("hub", entry.Serial).Msg("hub rejected credentials, run setup again")
	}
}

// bootstrap creates the first entry from the configured hub or, failing
// that, from hubs discovered over SSDP.
func bootstrap(ctx context.Context, cfg *config.Config, setup *service.SetupService, logger zerolog.Logger) {
	in := model.SetupInput{Host: cfg.Hub.Host, Username: cfg.Hub.Username, Password: cfg.Hub.Password}
	if in.Host != "" {
		logResult(logger, setup.SetupUser(ctx, in))
		return
	}
	if !cfg.SSDP.Enabled {
		logger.Info().Msg("no hub configured, waiting for setup through the admin api")
		return
	}

	prober := ssdp.NewProber(cfg.SSDP.SearchTarget, cfg.SSDP.Timeout, logger)
	locations, err := prober.Discover(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("hub discovery failed")
	}
	for _, loc := range locations {
		logResult(logger, setup.SetupDiscovered(ctx, loc, in))
	}
}

func logResult(logger zerolog.Logger, res model.SetupResult) {
	switch {
	case res.Entry != nil:
		logger.Info().Str("hub", res.Entry.Serial).Msg("hub configured")
	case res.Abort != "":
		logger.Info().Str("reason", res.Abort).Msg("hub setup aborted")
	default:
		logger.Error().Str("error", res.Error).Msg("hub setup failed")
	}
}
