package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yanun0323/logs"

	"main/internal/engine"
	"main/internal/journal"
	"main/internal/ops"
	"main/internal/risk"
	"main/internal/venue/fyers"
	"main/internal/venue/kite"
	"main/pkg/conn"
)

func main() {
	if err := run(); err != nil {
		log.Printf("trader: %v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.json", "path to JSON config")
	envPath := flag.String("env", "", ".env file with credentials (default: ./.env if present)")
	flag.Parse()

	if *envPath != "" {
		if err := godotenv.Load(*envPath); err != nil {
			return err
		}
	} else {
		_ = godotenv.Load()
	}

	loaded, err := ops.Load(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if loaded.Profiling.Enabled {
		profiler, err := startProfiler(loaded.Profiling)
		if err != nil {
			return err
		}
		defer func() { _ = profiler.Stop() }()
	}

	go serveMetrics(loaded.Metrics.Listen)

	kiteCfg := kite.Config{
		APIKey:      loaded.Venue.APIKey,
		AccessToken: loaded.Venue.AccessToken,
		PriceScale:  loaded.PriceScale,
		QtyScale:    loaded.QtyScale,
	}
	client := kite.NewClient(kiteCfg, nil)

	var recorder engine.Recorder
	if loaded.Journal.Enabled {
		pg, err := conn.New(loaded.Journal.Option)
		if err != nil {
			return err
		}
		defer func() { _ = pg.Close() }()

		jr, err := journal.Open(pg, loaded.PriceScale)
		if err != nil {
			return err
		}
		go jr.Run(ctx)
		defer jr.Close()
		recorder = jr
	}

	eng := engine.New(loaded.Engine, engine.Deps{
		Risk:      risk.NewEngine(loaded.Risk),
		Quotes:    client,
		Transport: client,
		Positions: client,
		Recorder:  recorder,
		Policy:    loaded.Policy,
	})

	feed := kite.NewFeed(ctx, kiteCfg)
	if err := feed.StartWebsocket(ctx); err != nil {
		return err
	}
	defer feed.Close()
	unsubscribe := feed.ObserveOrders(ctx, eng.Sink())
	defer unsubscribe()

	if loaded.Venue.FyersToken != "" {
		ff := fyers.NewFeed(ctx, fyers.Config{
			AccessToken: loaded.Venue.FyersToken,
			PriceScale:  loaded.PriceScale,
		})
		if err := ff.StartWebsocket(ctx); err != nil {
			return err
		}
		defer ff.Close()
		if err := ff.SubscribeOrders(ctx); err != nil {
			return err
		}
		cancel := ff.ObserveOrders(ctx, eng.Sink())
		defer cancel()
	}

	logs.Infof("trader started: %s %s, policy=%s", loaded.Engine.Symbol, loaded.Engine.Class, loaded.Policy.Name())
	eng.Run(ctx)
	logs.Info("trader stopped")
	return nil
}

func serveMetrics(listen string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logs.Errorf("metrics server: %+v", err)
	}
}

func startProfiler(cfg ops.ProfilingConfig) (*pyroscope.Profiler, error) {
	appName := cfg.AppName
	if appName == "" {
		appName = "trader"
	}
	return pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   cfg.ServerAddress,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
}
