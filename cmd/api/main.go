package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"newswire/internal/embed"
	"newswire/internal/httpx"
	"newswire/internal/logx"
	"newswire/internal/profile"
	"newswire/internal/search"
)

func main() {
	svc := "api"
	_ = godotenv.Load()

	cfg, err := httpx.LoadRuntimeConfig(svc)
	if err != nil {
		fatal(svc, "load config", err, nil)
	}
	svc = cfg.Service

	metrics := httpx.NewMetrics(svc)

	db, err := profile.Open(cfg.ProfileDB)
	if err != nil {
		fatal(svc, "open profile db", err, map[string]any{"path": cfg.ProfileDB})
	}
	defer db.Close()

	profiles := profile.New(db, metrics)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	if err := profiles.Init(ctx); err != nil {
		cancel()
		fatal(svc, "init profile db", err, nil)
	}
	cancel()

	searchClient := search.New(cfg.Search, metrics)

	srv := httpx.NewServer(httpx.Config{
		Search:   searchClient,
		Profiles: profiles,
		Encoder:  embed.New(),
		Service:  svc,
		Metrics:  metrics,
	})
	srv.HTTPErrorHandler = httpx.HTTPErrorHandler(svc)
	httpx.RegisterConfigRoute(srv, cfg)

	addr := cfg.HTTP.Addr

	serverErrCh := make(chan error, 1)
	go func() {
		logx.Info(svc, "listening", map[string]any{"addr": addr})
		serverErrCh <- srv.Start(addr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
	case err := <-serverErrCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			logx.Info(svc, "server stopped", map[string]any{"addr": addr})
			return
		}
		fatal(svc, "server", err, map[string]any{"addr": addr})
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Error(svc, "shutdown", err, nil)
	}

	if err := <-serverErrCh; err == nil || errors.Is(err, http.ErrServerClosed) {
		logx.Info(svc, "server stopped", map[string]any{"addr": addr})
		return
	} else {
		fatal(svc, "server", err, map[string]any{"addr": addr})
	}
}

func fatal(service, msg string, err error, extra map[string]any) {
	logx.Error(service, msg, err, extra)
	os.Exit(1)
}
