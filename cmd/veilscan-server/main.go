package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/veilscan/veilscan/internal/searchfn"
	"github.com/veilscan/veilscan/internal/supabase"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Local development convenience; a missing .env is fine.
	godotenv.Load()

	fs := ff.NewFlagSet("veilscan-server")
	var (
		port        = fs.IntLong("port", 8090, "HTTP server port")
		dbPath      = fs.StringLong("db", "veilscan.db", "Scan history database file path")
		supabaseURL = fs.StringLong("supabase-url", "", "Supabase project URL")
		serviceKey  = fs.StringLong("service-key", "", "Supabase service role key (or set VEILSCAN_SERVICE_KEY)")
		bucket      = fs.StringLong("bucket", "scan-uploads", "Storage bucket holding temporary scan images")
		serpKey     = fs.StringLong("serpapi-key", "", "SerpAPI key (or set VEILSCAN_SERPAPI_KEY)")
		searchRate  = fs.IntLong("search-rate", 60, "Upstream searches allowed per minute")
		searchBurst = fs.IntLong("search-burst", 3, "Upstream search burst size")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("VEILSCAN"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if *supabaseURL == "" {
		slog.Error("Supabase URL is required. Set --supabase-url flag or VEILSCAN_SUPABASE_URL environment variable")
		os.Exit(1)
	}
	if *serviceKey == "" {
		slog.Error("Service key is required. Set --service-key flag or VEILSCAN_SERVICE_KEY environment variable")
		os.Exit(1)
	}
	if *serpKey == "" {
		slog.Error("SerpAPI key is required. Set --serpapi-key flag or VEILSCAN_SERPAPI_KEY environment variable")
		os.Exit(1)
	}

	slog.Info("Initializing scan history database...")
	history, err := searchfn.NewBoltHistory(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize history database", "error", err)
		os.Exit(1)
	}
	defer history.Close()

	slog.Info("Initializing search provider...")
	provider, err := searchfn.NewSerpAPI(*serpKey)
	if err != nil {
		slog.Error("Failed to initialize SerpAPI provider", "error", err)
		os.Exit(1)
	}

	// The service key both verifies caller tokens and signs object URLs.
	auth := supabase.NewAuthClient(*supabaseURL, *serviceKey)
	storage := supabase.NewStorageClient(*supabaseURL, *serviceKey, *bucket, supabase.StaticToken(*serviceKey))

	server := searchfn.NewServer(auth, storage, provider, history, float64(*searchRate)/60.0, *searchBurst)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
