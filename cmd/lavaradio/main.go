package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/DOMyLinc/lavabyteradio-sub000/internal/catalog"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/config"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/events"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/logging"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/media"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/mediasession"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/offlinecache"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/player"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/server"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/signalgraph"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/telemetry"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/version"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/visualizer"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "lavaradio",
	Short: "Lava Byte Radio - headless internet radio playback engine",
	Long:  "Lava Byte Radio plays live station streams, HLS video stations and user playlists, exposing a local control API.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the playback engine",
	Long:  "Start the playback engine and its control API",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Str("version", version.Version).Msg("Lava Byte Radio starting")

	tracerProvider, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "lavabyteradio",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}()

	source, cleanup, err := buildSource()
	if err != nil {
		return err
	}
	defer cleanup()

	bus := events.NewBus()
	graph := signalgraph.New(logger)
	renderer := visualizer.New(graph.Analyser(), bus, cfg.VisualizerBars, cfg.VisualizerHeight, logger)
	defer renderer.Close()

	notifier := offlinecache.NewNotifier(cfg.NATSURL, cfg.CacheSubject, cfg.OfflineCacheOn, bus, logger)
	defer notifier.Close()

	ctrl := player.NewController(player.Config{
		Bus:            bus,
		Source:         source,
		Audio:          media.NewAudioElement(logger),
		Video:          media.NewVideoElement(logger, cfg.NativeHLS),
		Graph:          graph,
		Bridge:         mediasession.NewBridge(mediasession.NewBusSink(bus), logger),
		Notifier:       notifier,
		Renderer:       renderer,
		HLSFactory:     player.DefaultHLSFactory(logger),
		NativeHLS:      cfg.NativeHLS,
		DefaultVolume:  cfg.DefaultVolume,
		AutoplayPreset: cfg.AutoplayPreset,
		Logger:         logger,
	})
	defer ctrl.Close()

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelLoad()
	if err := ctrl.RefreshStations(loadCtx); err != nil {
		// The engine still serves its API; stations can arrive later.
		logger.Error().Err(err).Msg("Initial station load failed")
	}

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv := server.New(addr, ctrl, renderer, bus, logger)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler())
		logger.Info().Str("addr", cfg.MetricsBind).Msg("Metrics listening")
		if err := http.ListenAndServe(cfg.MetricsBind, mux); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info().Msg("shutting down gracefully...")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("Lava Byte Radio stopped")
	return nil
}

// buildSource picks the catalog backend: the directory service when a
// base URL is configured, the local seed file otherwise.
func buildSource() (catalog.Source, func(), error) {
	if cfg.CatalogBaseURL != "" {
		cache := catalog.NewCache(catalog.CacheConfig{
			RedisAddr:      cfg.RedisAddr,
			RedisPassword:  cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DisableOnError: true,
		}, logger)
		client := catalog.NewClient(cfg.CatalogBaseURL, cfg.CatalogTimeout, cache, logger)
		return client, func() { _ = cache.Close() }, nil
	}

	seed, err := catalog.LoadSeed(cfg.StationSeed, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("load station seed: %w", err)
	}
	return seed, func() {}, nil
}
