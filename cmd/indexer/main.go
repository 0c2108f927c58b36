package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"newswire/internal/embed"
	"newswire/internal/index"
	"newswire/internal/logx"
	"newswire/internal/search"
	"newswire/internal/store"
)

const (
	defaultMongoURI      = "mongodb://localhost:27017/news"
	defaultWatermarkFile = ".last_indexed"
	defaultPollInterval  = 60 * time.Second

	connectTimeout = 15 * time.Second
	tickTimeout    = 10 * time.Minute
)

func main() {
	svc := "indexer"
	_ = godotenv.Load()

	mongoURI := getenvDefault("MONGO_URI", defaultMongoURI)
	watermarkFile := getenvDefault("LAST_INDEXED_FILE", defaultWatermarkFile)
	pollInterval := intervalFromEnv(svc, "INDEXER_INTERVAL", defaultPollInterval)

	searchCfg := search.Config{
		Host:     getenvDefault("TYPESENSE_HOST", "localhost"),
		Port:     portFromEnv(svc, "TYPESENSE_PORT", 8108),
		Protocol: getenvDefault("TYPESENSE_PROTOCOL", "http"),
		APIKey:   os.Getenv("TYPESENSE_API_KEY"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	client, err := store.Connect(ctx, mongoURI)
	cancel()
	if err != nil {
		fatal(svc, "connect mongo", err, nil)
	}
	defer client.Disconnect(context.Background())

	articles := store.New(client.Database(store.DatabaseName(mongoURI)), nil)
	engine := search.New(searchCfg, nil)

	ctx, cancel = context.WithTimeout(context.Background(), connectTimeout)
	err = engine.EnsureCollection(ctx)
	cancel()
	if err != nil {
		// a schema conflict cannot heal by retrying
		if errors.Is(err, search.ErrSchemaConflict) {
			fatal(svc, "collection schema conflict", err, nil)
		}
		fatal(svc, "ensure collection", err, nil)
	}

	indexer := index.New(articles, engine, embed.New(), index.NewWatermark(watermarkFile))

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logx.Info(svc, "ready", map[string]any{
		"interval":  pollInterval.String(),
		"watermark": watermarkFile,
	})

	// run to completion each tick; an overlong tick rolls straight into the
	// next one
	for {
		tickCtx, tickCancel := context.WithTimeout(runCtx, tickTimeout)
		res, err := indexer.Tick(tickCtx)
		tickCancel()

		switch {
		case err != nil && runCtx.Err() != nil:
			logx.Info(svc, "stopping", nil)
			return
		case err != nil:
			logx.Error(svc, "tick failed", err, map[string]any{"indexed": res.Indexed})
		case res.Advanced:
			logx.Info(svc, "tick complete", map[string]any{
				"indexed":   res.Indexed,
				"watermark": res.Watermark,
			})
		default:
			logx.Info(svc, "tick complete; nothing new", nil)
		}

		select {
		case <-runCtx.Done():
			logx.Info(svc, "stopping", nil)
			return
		case <-time.After(pollInterval):
		}
	}
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// intervalFromEnv accepts either a Go duration ("90s") or bare seconds ("90").
func intervalFromEnv(svc, key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	fatal(svc, "invalid interval", errors.New(key+" must be a duration or seconds"), map[string]any{"value": v})
	return 0
}

func portFromEnv(svc, key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	port, err := strconv.Atoi(v)
	if err != nil || port <= 0 || port > 65535 {
		fatal(svc, "invalid port", errors.New(key+" must be a valid port"), map[string]any{"value": v})
	}
	return port
}

func fatal(service, msg string, err error, extra map[string]any) {
	logx.Error(service, msg, err, extra)
	os.Exit(1)
}
