package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/huangang/adsentry/internal/config"
	"github.com/huangang/adsentry/internal/media"
	"github.com/huangang/adsentry/internal/models"
	"github.com/huangang/adsentry/internal/services"
)

// Headless one-shot review: ingest a file, run the pipeline, print the
// verdict. Exits 0 when the pipeline completed (pass or fail verdict),
// 1 when the pipeline itself broke.
func main() {
	var (
		filePath   = flag.String("file", "", "path to the video file to review (required)")
		configPath = flag.String("config", "", "path to config.yaml (defaults to ./config.yaml)")
		format     = flag.String("format", "", "report format override: html or markdown")
	)
	flag.Parse()

	if *filePath == "" {
		fmt.Println("Usage: review_video -file <video> [-config config.yaml] [-format html|markdown]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *format != "" {
		if *format != "html" && *format != "markdown" {
			fmt.Printf("Invalid format %q, want html or markdown\n", *format)
			os.Exit(1)
		}
		cfg.Report.Format = *format
	}
	if err := cfg.EnsureDirs(); err != nil {
		fmt.Printf("Failed to create data directories: %v\n", err)
		os.Exit(1)
	}

	if err := models.InitDB(&cfg.Database); err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	if err := models.AutoMigrate(); err != nil {
		fmt.Printf("Failed to migrate database: %v\n", err)
		os.Exit(1)
	}
	services.InitSystemLogger(models.GetDB())

	exec, err := media.NewExecutor()
	if err != nil {
		fmt.Printf("Media tooling unavailable: %v\n", err)
		os.Exit(1)
	}
	provider, err := services.NewProvider(&cfg.AI)
	if err != nil {
		fmt.Printf("Failed to initialize AI provider: %v\n", err)
		os.Exit(1)
	}

	// Ctrl-C cancels the in-flight provider call and parks the run as aborted.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	intake := services.NewIntakeService(models.GetDB(), cfg, exec)
	asset, created, err := intake.Ingest(ctx, *filePath, "manual", "")
	if err != nil {
		fmt.Printf("Intake failed: %v\n", err)
		os.Exit(1)
	}
	if created {
		fmt.Printf("Ingested %s (asset %d, hash %.12s)\n", asset.Filename, asset.ID, asset.ContentHash)
	} else {
		fmt.Printf("Already known: %s (asset %d)\n", asset.Filename, asset.ID)
	}

	review := services.NewReviewService(models.GetDB(), cfg, provider, exec)
	run, err := review.CreateRun(asset.ID)
	if err != nil {
		fmt.Printf("Failed to create review run: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Running review %d (%s)...\n", run.ID, run.RunKey)
	if err := review.Execute(ctx, run.ID); err != nil {
		fmt.Printf("Review failed: %v\n", err)
		os.Exit(1)
	}

	runs := services.NewReviewRunService(models.GetDB())
	result, err := runs.GetByID(run.ID)
	if err != nil {
		fmt.Printf("Failed to reload run: %v\n", err)
		os.Exit(1)
	}
	issues, _ := runs.Issues(run.ID)

	fmt.Printf("\nVerdict:  %s\n", result.Verdict)
	if result.Score != nil {
		fmt.Printf("Score:    %.0f / 100 (threshold %.0f)\n", *result.Score, cfg.Review.PassThreshold)
	}
	fmt.Printf("Issues:   %d\n", len(issues))
	for _, issue := range issues {
		fmt.Printf("  [%s] %s: %s\n", issue.Severity, issue.Category, issue.Description)
	}
	if result.ReportPath != "" {
		fmt.Printf("Report:   %s\n", result.ReportPath)
	}
}
