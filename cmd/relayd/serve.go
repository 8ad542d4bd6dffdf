package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"impractical.co/relay"
	"impractical.co/relay/config"
	"impractical.co/relay/filesystem"
	"impractical.co/relay/memory"
	"impractical.co/relay/metrics"
	"impractical.co/relay/objectstore"
	"impractical.co/relay/server"
	"yall.in"
	"yall.in/colour"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func serve(cfg config.Config) error {
	level := yall.Info
	if cfg.LogLevel == "debug" {
		level = yall.Debug
	}
	log := yall.New(colour.New(os.Stdout, level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = yall.InContext(ctx, log)

	if cfg.Gops {
		if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
			log.WithField("error", err.Error()).Warn("[relay] could not start gops agent")
		} else {
			defer agent.Close()
		}
	}

	storer, err := newStorer(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// seeded once for the life of the process
	names := relay.NewNamer(rand.NewSource(time.Now().UnixNano()), cfg.NameLength)

	h := server.NewHandler(storer, names, relay.UploadOptions{
		AcceptedMIMEs: cfg.Upload.AcceptedMIMEs,
		MaxBytes:      cfg.Upload.MaxBytes,
		MaxAttempts:   cfg.Upload.MaxAttempts,
	}, m)
	wrapped := server.Wrap(h, server.Options{
		Logger:    log,
		RateLimit: cfg.RateLimit.RPS,
		Burst:     cfg.RateLimit.Burst,
	})

	log.WithField("relay.version", version).
		WithField("relay.storer", fmt.Sprintf("%T", storer)).
		Info("[relay] starting")
	return server.New(cfg.Addr, wrapped, cfg.MetricsAddr, reg).Run(ctx, cfg.ShutdownTimeout)
}

func newStorer(ctx context.Context, cfg config.StorageConfig) (relay.Storer, error) {
	switch cfg.Backend {
	case config.BackendFilesystem:
		return filesystem.NewStorer(cfg.Dir)
	case config.BackendMemory:
		return memory.NewStorer()
	case config.BackendS3:
		return objectstore.NewStorer(ctx, objectstore.Options{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
