// Command kvwald is the store's server binary: it loads configuration,
// opens the engine, and serves the text protocol until told to stop. Flag
// parsing and signal-driven graceful shutdown follow the pack's FinKV
// cmd/main.go (flag.String for --conf, signal.Notify on SIGINT/SIGTERM,
// goroutine-started server, Stop() on shutdown), rebuilt on urfave/cli/v2
// and this store's own Config/Engine/Server types.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/urfave/cli/v2"

	"github.com/kvwal/kvwal"
	"github.com/kvwal/kvwal/config"
	"github.com/kvwal/kvwal/server"
)

func main() {
	app := &cli.App{
		Name:  "kvwald",
		Usage: "run the sharded key-value store server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to config YAML file"},
			&cli.StringFlag{Name: "wal-file", Usage: "override wal_file from config"},
			&cli.IntFlag{Name: "num-shards", Usage: "override num_segments from config"},
			&cli.StringFlag{Name: "listen-addr", Usage: "override listen_addr from config"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "hclog level: trace, debug, info, warn, error"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	log := hclog.New(&hclog.LoggerOptions{
		Name:  "kvwald",
		Level: hclog.LevelFromString(c.String("log-level")),
	})

	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path, true, func(reloaded config.Config) {
			log.Info("config reloaded", "listen_addr", reloaded.ListenAddr)
		})
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if v := c.String("wal-file"); v != "" {
		cfg.WalFile = v
	}
	if v := c.Int("num-shards"); v != 0 {
		cfg.NumSegments = v
	}
	if v := c.String("listen-addr"); v != "" {
		cfg.ListenAddr = v
	}

	engine, err := kvwal.Open(
		kvwal.WithWalFile(cfg.WalFile),
		kvwal.WithNumSegments(cfg.NumSegments),
		kvwal.WithInitialBucketSize(cfg.InitialBucketSize),
		kvwal.WithWalBufferSize(cfg.WalBufferSize),
		kvwal.WithSyncWal(cfg.SyncWal),
		kvwal.WithMaxKeySize(cfg.MaxKeySize),
		kvwal.WithMaxValueSize(cfg.MaxValueSize),
		kvwal.WithLogger(log.Named("engine")),
	)
	if err != nil {
		return fmt.Errorf("kvwald: open engine: %w", err)
	}
	defer engine.Close()

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = cfg.ListenAddr
	srvCfg.Logger = log.Named("server")
	srv := server.New(srvCfg, engine)

	metricsCtx, cancelMetrics := context.WithCancel(context.Background())
	defer cancelMetrics()
	go func() {
		if err := server.ServeMetrics(metricsCtx, cfg.MetricsAddr, srv.MetricsHandle()); err != nil {
			log.Warn("metrics server stopped", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("received signal, shutting down", "signal", sig.String())
	}

	return srv.Stop()
}
