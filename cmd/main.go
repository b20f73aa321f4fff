package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"

	"github.com/jaki95/audio-resolver/config"
	"github.com/jaki95/audio-resolver/internal/domain"
	"github.com/jaki95/audio-resolver/internal/extractor"
	"github.com/jaki95/audio-resolver/internal/source"
	"github.com/jaki95/audio-resolver/internal/storage"
	"github.com/jaki95/audio-resolver/internal/transport"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "Path to the configuration file")
	query := flag.String("query", "", "URL or search terms to resolve (required)")
	playlist := flag.Bool("playlist", false, "Expand -query as a playlist URL")
	out := flag.String("out", "", "Capture the audio into this directory (or object prefix for gcs storage)")
	list := flag.Bool("list", false, "List captures already in the storage sink and exit")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Validate required flags with explicit checks
	if *query == "" && !*list {
		log.Fatal("Missing required flag: -query")
	}

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using system environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var sink storage.Sink
	if *out != "" || *list {
		if *out != "" {
			if cfg.Storage.Type == "gcs" {
				cfg.Storage.ObjectPrefix = *out
			} else {
				cfg.Storage.OutputDir = *out
			}
		}
		sink, err = storage.New(ctx, cfg.Storage)
		if err != nil {
			log.Fatal(err)
		}
		defer sink.Close()
	}

	if *list {
		names, err := sink.List(ctx, "")
		if err != nil {
			log.Fatal(err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	invoker := extractor.NewCommand(
		extractor.WithProgram(cfg.Extractor.Program),
		extractor.WithFormat(cfg.Extractor.Format),
		extractor.WithExtraArgs(cfg.Extractor.ExtraArgs...),
	)
	if err := invoker.Available(); err != nil {
		log.Fatal(extractor.Describe(err))
	}
	resolver := source.NewResolver(invoker, transport.NewBuilder(http.DefaultClient))

	var descriptors []*source.Descriptor
	if *playlist {
		descriptors, err = resolver.Playlist(ctx, *query)
		if err != nil {
			log.Fatal(extractor.Describe(err))
		}
	} else {
		descriptors = []*source.Descriptor{resolver.Descriptor(domain.ParseQuery(*query))}
	}

	failed := 0
	for i, d := range descriptors {
		md, err := d.AuxMetadata(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%d. %s: %s\n", i+1, d.Query(), extractor.Describe(err))
			failed++
			continue
		}
		printMetadata(i+1, md)

		if sink == nil {
			continue
		}
		if err := capture(ctx, sink, d, md, i+1, len(descriptors)); err != nil {
			fmt.Fprintf(os.Stderr, "   capture failed: %s\n", extractor.Describe(err))
			slog.Debug("Capture failed", "query", d.Query().String(), "error", err)
			failed++
		}
	}

	if failed == len(descriptors) {
		os.Exit(1)
	}
}

func printMetadata(n int, md domain.Metadata) {
	fmt.Printf("%d. %s\n", n, md.Title)
	if md.Artist != "" {
		fmt.Printf("   artist:   %s\n", md.Artist)
	}
	if md.IsLive {
		fmt.Printf("   duration: live\n")
	} else {
		fmt.Printf("   duration: %s\n", md.Duration)
	}
	if md.SourceURL != "" {
		fmt.Printf("   source:   %s\n", md.SourceURL)
	}
}

// capture copies the descriptor's stream into the sink. Captures already
// present are skipped; a failed copy leaves nothing behind.
func capture(ctx context.Context, sink storage.Sink, d *source.Descriptor, md domain.Metadata, n, total int) error {
	name := storage.SafeName(md.Title)
	if sink.Exists(ctx, name+extension(domain.TransportDirect)) || sink.Exists(ctx, name+extension(domain.TransportManifest)) {
		fmt.Printf("   already captured, skipping\n")
		return nil
	}

	stream, err := d.CreateStream(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	size := int64(-1)
	if direct, ok := stream.(*transport.HTTPStream); ok && direct.Len() > 0 {
		size = direct.Len()
	}

	name += extension(stream.Kind())
	w, err := sink.Create(ctx, name)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions64(
		size,
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionShowBytes(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan][%d/%d][reset] %s", n, total, name)),
	)

	if _, err := io.Copy(io.MultiWriter(w, bar), stream); err != nil {
		if abortErr := w.Abort(); abortErr != nil {
			slog.Warn("Failed to discard partial capture", "name", name, "error", abortErr)
		}
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	_ = bar.Finish()
	fmt.Println()
	return nil
}

func extension(kind domain.Transport) string {
	if kind == domain.TransportManifest {
		return ".ts"
	}
	return ".audio"
}
