package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arung-agamani/denpa-radio/config"
	"github.com/arung-agamani/denpa-radio/internal/auth"
	"github.com/arung-agamani/denpa-radio/internal/broadcast"
	"github.com/arung-agamani/denpa-radio/internal/cache"
	"github.com/arung-agamani/denpa-radio/internal/commonconfig"
	"github.com/arung-agamani/denpa-radio/internal/engine"
	"github.com/arung-agamani/denpa-radio/internal/eventbus"
	"github.com/arung-agamani/denpa-radio/internal/fetcher"
	"github.com/arung-agamani/denpa-radio/internal/icecast"
	"github.com/arung-agamani/denpa-radio/internal/media"
	"github.com/arung-agamani/denpa-radio/internal/metrics"
	"github.com/arung-agamani/denpa-radio/internal/radio"
	"github.com/arung-agamani/denpa-radio/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	slog.Info("starting mradio engine",
		"port", cfg.Port,
		"station_name", cfg.StationName,
		"data_dir", cfg.DataDir,
	)

	fileCache, err := cache.New(cfg.CacheDir, cfg.MaxCacheBytes)
	if err != nil {
		slog.Error("failed to open file cache", "error", err)
		os.Exit(1)
	}

	queue, err := store.NewSongQueue(filepath.Join(cfg.DataDir, "queue.json"))
	if err != nil {
		slog.Error("failed to open song queue", "error", err)
		os.Exit(1)
	}
	defaultPlaylists, err := store.NewDefaultPlaylistStore(filepath.Join(cfg.DataDir, "defaultSongPlaylist.json"))
	if err != nil {
		slog.Error("failed to open default playlist store", "error", err)
		os.Exit(1)
	}
	defaultMetadata, err := store.NewDefaultPlaylistMetadataStore(filepath.Join(cfg.DataDir, "defaultPlaylistMetadata.json"))
	if err != nil {
		slog.Error("failed to open default playlist metadata store", "error", err)
		os.Exit(1)
	}
	blockList, err := store.NewBlockList(filepath.Join(cfg.DataDir, "blockList.json"))
	if err != nil {
		slog.Error("failed to open block list", "error", err)
		os.Exit(1)
	}
	_ = blockList // consulted by the (external) request-intake surface, not the engine itself

	commonCfg, err := commonconfig.New(filepath.Join(cfg.DataDir, "commonConfig.json"))
	if err != nil {
		slog.Error("failed to open common config", "error", err)
		os.Exit(1)
	}

	downloader := media.New(fileCache, cfg.CookiesPath, os.TempDir(), nil)

	f := &fetcher.Fetcher{
		Queue:           queue,
		DefaultPlaylist: defaultPlaylists,
		Metadata:        defaultMetadata,
		Cache:           fileCache,
		Downloader:      downloader,
		FallbackDir:     cfg.FallbackDir,
		Genre:           commonCfg.Genre,
	}

	eng := engine.New(engine.Config{
		MinQueueSize: cfg.MinQueueSize,
		SampleRate:   atoiOr(cfg.SampleRate, 44100),
		Channels:     atoiOr(cfg.Channels, 2),
	}, f, fileCache)

	broadcaster := broadcast.New()
	events := eventbus.New()
	eng.AddSink(broadcaster)
	eng.AddSink(events)
	eng.SetProgressReporter(events)
	eng.SetTrackChangedReporter(events)

	var icecastSink *icecast.Sink
	if cfg.IcecastPassword != "" {
		icecastSink = icecast.New(icecast.Config{
			Host:        cfg.IcecastHost,
			Port:        cfg.IcecastPort,
			Password:    cfg.IcecastPassword,
			Mount:       cfg.IcecastMount,
			Name:        cfg.IcecastName,
			Description: cfg.IcecastDescription,
			Genre:       cfg.IcecastGenre,
			Bitrate:     cfg.IcecastBitrate,
			SampleRate:  atoiOr(cfg.SampleRate, 44100),
			Channels:    atoiOr(cfg.Channels, 2),
		})
		eng.AddSink(icecastSink)
	} else {
		slog.Info("icecast upstream disabled: ICECAST_PASSWORD not set")
	}

	authInstance := auth.New(auth.Config{
		Username:  cfg.DJUsername,
		Password:  cfg.DJPassword,
		JWTSecret: cfg.JWTSecret,
	})

	server := radio.NewServer(cfg, eng, broadcaster, icecastSink, events, authInstance)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		eng.Run(groupCtx)
		return nil
	})

	if icecastSink != nil {
		group.Go(func() error {
			if err := icecastSink.Connect(groupCtx); err != nil {
				slog.Error("icecast: initial connect failed, reconnect loop will retry", "error", err)
			}
			<-groupCtx.Done()
			icecastSink.Disconnect()
			return nil
		})
	}

	group.Go(func() error {
		return server.Run(groupCtx)
	})

	metaCron, err := f.StartMetadataSweep(groupCtx, "0 */6 * * *")
	if err != nil {
		slog.Error("failed to schedule metadata sweep", "error", err)
	}
	evictCron, err := fileCache.StartEvictionSweep("*/10 * * * *")
	if err != nil {
		slog.Error("failed to schedule cache eviction sweep", "error", err)
	}

	group.Go(func() error {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				metrics.ListenerCount.Set(float64(broadcaster.ActiveListeners()))
				metrics.CacheBytes.Set(float64(fileCache.TotalBytes()))
			}
		}
	})

	if err := group.Wait(); err != nil {
		slog.Error("mradio engine stopped with error", "error", err)
	}

	if metaCron != nil {
		metaCron.Stop()
	}
	if evictCron != nil {
		evictCron.Stop()
	}

	slog.Info("mradio engine stopped")
}

func atoiOr(s string, fallback int) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return fallback
		}
		n = n*10 + int(r-'0')
	}
	if n == 0 {
		return fallback
	}
	return n
}
