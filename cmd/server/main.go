package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/jaki95/audio-resolver/config"
	"github.com/jaki95/audio-resolver/internal/extractor"
	"github.com/jaki95/audio-resolver/internal/lookup"
	"github.com/jaki95/audio-resolver/internal/queue"
	"github.com/jaki95/audio-resolver/internal/server"
	"github.com/jaki95/audio-resolver/internal/source"
	"github.com/jaki95/audio-resolver/internal/transport"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "Path to the configuration file")
	port := flag.String("port", "", "Server port (overrides config)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using system environment variables")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	// Setup logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)}))
	slog.SetDefault(logger)

	invoker := extractor.NewCommand(
		extractor.WithProgram(cfg.Extractor.Program),
		extractor.WithFormat(cfg.Extractor.Format),
		extractor.WithExtraArgs(cfg.Extractor.ExtraArgs...),
	)
	if err := invoker.Available(); err != nil {
		slog.Warn("Extractor not found, resolution requests will fail until it is installed", "program", invoker.Program(), "error", err)
	}
	resolver := source.NewResolver(invoker, transport.NewBuilder(http.DefaultClient))
	q := queue.New(lookup.NewOpenGraph(0, nil))

	var searcher lookup.Searcher
	if cfg.YouTube.Enabled() {
		yt, err := lookup.NewYouTube(context.Background(), cfg.YouTube.APIKey, cfg.YouTube.BaseURL, cfg.YouTube.RequestsPerSecond, nil)
		if err != nil {
			slog.Error("Failed to create YouTube client", "error", err)
			os.Exit(1)
		}
		searcher = yt
	}

	// Create and start server
	srv := server.New(cfg, resolver, q, searcher)

	slog.Info("Starting audio resolver API server", "port", cfg.Server.Port, "search_fast_path", searcher != nil)
	if err := srv.Start(cfg.Server.Port); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
