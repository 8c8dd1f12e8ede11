package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/veilscan/veilscan/internal/scan"
	"github.com/veilscan/veilscan/internal/supabase"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	godotenv.Load()

	fs := ff.NewFlagSet("veilscan")
	var (
		imagePath   = fs.StringLong("image", "", "Path to the captured image to scan")
		supabaseURL = fs.StringLong("supabase-url", "", "Supabase project URL")
		anonKey     = fs.StringLong("anon-key", "", "Supabase anon key")
		email       = fs.StringLong("email", "", "Account email")
		password    = fs.StringLong("password", "", "Account password (or set VEILSCAN_PASSWORD)")
		bucket      = fs.StringLong("bucket", "scan-uploads", "Storage bucket for temporary scan images")
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

	if *imagePath == "" || *supabaseURL == "" || *anonKey == "" || *email == "" || *password == "" {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: --image, --supabase-url, --anon-key, --email and --password are required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auth := supabase.NewAuthClient(*supabaseURL, *anonKey)
	if err := auth.SignIn(ctx, *email, *password); err != nil {
		slog.Error("Sign-in failed", "error", err)
		os.Exit(1)
	}

	storage := supabase.NewStorageClient(*supabaseURL, *anonKey, *bucket, auth.AccessToken)
	functions := supabase.NewFunctionsClient(*supabaseURL, *anonKey)
	client := scan.NewClient(auth, storage, functions)

	store := scan.NewStore()
	store.SetCapturedImage(&scan.Image{Path: *imagePath})
	if err := store.SetStatus(scan.StatusUploading); err != nil {
		slog.Error("Scan flow error", "error", err)
		os.Exit(1)
	}
	store.UpdateCategoryStatus("upload", scan.CategoryScanning)
	store.SetProgress(25)

	resp, err := client.Run(ctx, store.Snapshot().CapturedImage)
	if err != nil {
		store.SetError(err.Error())
		var scanErr *scan.Error
		if errors.As(err, &scanErr) {
			slog.Error("Scan failed", "code", string(scanErr.Code), "error", scanErr.Message)
		} else {
			slog.Error("Scan failed", "error", err)
		}
		os.Exit(1)
	}

	store.UpdateCategoryStatus("upload", scan.CategoryComplete)
	store.UpdateCategoryStatus("search", scan.CategoryComplete)
	store.UpdateCategoryStatus("analyze", scan.CategoryComplete)
	store.SetProgress(100)
	store.SetResults(resp.Results)

	session := store.Snapshot()
	fmt.Printf("Scan complete: %d match(es) found\n", resp.TotalFound)
	for _, result := range session.Results {
		fmt.Printf("  %s  %s\n", result.SourceDomain, result.Title)
		fmt.Printf("    %s\n", result.SourceURL)
		if result.Snippet != "" {
			fmt.Printf("    %s\n", result.Snippet)
		}
	}
}
