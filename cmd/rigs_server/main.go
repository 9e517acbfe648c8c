package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/kdudkov/rigs/internal/config"
)

var (
	gitRevision = "unknown"
	gitBranch   = "unknown"
)

func main() {
	fmt.Printf("version %s:%s\n", gitBranch, gitRevision)

	conf := flag.String("config", "rigs.yml", "name of config file")
	debug := flag.Bool("debug", false, "debug")
	flag.Parse()

	cfg := config.NewAppConfig()
	cfg.Load(*conf)
	cfg.LoadEnv()

	if *debug {
		cfg.Set("log.level", "debug")
	}

	setLogger(cfg)

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("init error", slog.Any("error", err))
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		slog.Error("start error", slog.Any("error", err))
		os.Exit(1)
	}

	srv := NewHttp(app)

	go func() {
		if err := srv.Listen(cfg.APIAddr()); err != nil {
			slog.Error("http server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	slog.Info("exiting...")

	if err := srv.Shutdown(time.Second * 5); err != nil {
		slog.Error("http shutdown", slog.Any("error", err))
	}

	app.Stop()
}

func setLogger(cfg *config.AppConfig) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}

	var h slog.Handler
	if cfg.LogJSON() {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(h))
}
