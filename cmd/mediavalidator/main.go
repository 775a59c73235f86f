// cmd/mediavalidator/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/etoile-yachts/MediaValidator/internal/config"
	"github.com/etoile-yachts/MediaValidator/internal/media"
	"github.com/etoile-yachts/MediaValidator/internal/utils"
	"github.com/etoile-yachts/MediaValidator/pkg/api"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// main handles CLI arguments and routes to the appropriate commands.
func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	command := os.Args[1]

	switch command {
	case "validate":
		runValidation(os.Args[2:])

	case "repair":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: report ID required\n")
			fmt.Fprintf(os.Stderr, "Usage: mediavalidator repair <report-id> [url ...]\n")
			os.Exit(1)
		}
		runRepair(os.Args[2], os.Args[3:])

	case "fix-relative":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: base URL required\n")
			fmt.Fprintf(os.Stderr, "Usage: mediavalidator fix-relative <base-url>\n")
			os.Exit(1)
		}
		runFixRelative(os.Args[2])

	case "resolve-blobs":
		runResolveBlobs()

	case "reports":
		runListReports()

	case "check-config":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: mediavalidator check-config <config.yaml>\n")
			os.Exit(1)
		}
		checkConfig(os.Args[2])

	case "version", "--version":
		printVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", command)
		printUsage()
		os.Exit(1)
	}
}

// runValidation scans the configured collections and prints the report
// summary. It runs synchronously and honors Ctrl-C by requesting a
// pause at the next batch boundary.
func runValidation(args []string) {
	verbose := hasFlag("-v") || hasFlag("--verbose")

	client, cfg := mustConnect()
	defer client.Close(context.Background())

	collections := collectionArgs(args)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nStopping at next batch boundary...")
		_ = client.StopValidation()
	}()

	if err := client.StartValidation(ctx, api.RunOptions{Collections: collections}); err != nil {
		fatalf("failed to start validation: %v", err)
	}

	report := waitForRun(client, verbose)
	if report == nil {
		progress := client.ValidationProgress()
		if progress.Status == api.StatusPaused {
			fmt.Printf("Paused after %d/%d references. Resume via the admin API.\n",
				progress.ProcessedItems, progress.TotalItems)
			return
		}
		fatalf("validation failed: %s", progress.Error)
	}

	printReportSummary(report, verbose)

	if len(cfg.Export.Formats) > 0 {
		paths, err := client.ExportReport(context.Background(), report.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: export failed: %v\n", err)
		} else {
			for _, p := range paths {
				fmt.Printf("Exported: %s\n", p)
			}
		}
	}
}

func runRepair(reportID string, urls []string) {
	client, _ := mustConnect()
	defer client.Close(context.Background())

	report, err := client.RepairFromReport(context.Background(), reportID, urls...)
	if err != nil {
		fatalf("repair failed: %v", err)
	}
	printRepairSummary(report)
}

func runFixRelative(baseURL string) {
	client, _ := mustConnect()
	defer client.Close(context.Background())

	report, err := client.FixRelativeURLs(context.Background(), baseURL)
	if err != nil {
		fatalf("relative URL fix failed: %v", err)
	}
	printRepairSummary(report)
}

func runResolveBlobs() {
	client, _ := mustConnect()
	defer client.Close(context.Background())

	report, err := client.ResolveBlobURLs(context.Background())
	if err != nil {
		fatalf("blob URL resolution failed: %v", err)
	}
	printRepairSummary(report)
}

func runListReports() {
	client, _ := mustConnect()
	defer client.Close(context.Background())

	reports, err := client.ListValidationReports(context.Background(), 1, 20)
	if err != nil {
		fatalf("failed to list reports: %v", err)
	}
	if len(reports) == 0 {
		fmt.Println("No validation reports found")
		return
	}

	for _, r := range reports {
		fmt.Printf("%s  %s  fields=%d valid=%d invalid=%d missing=%d\n",
			r.ID, r.StartTime.Format(time.RFC3339),
			r.TotalFields, r.ValidCount, r.InvalidCount, r.MissingCount)
	}
}

func checkConfig(path string) {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("validation failed: %v", err)
	}
	fmt.Printf("Configuration file '%s' is valid\n", path)
}

// mustConnect loads the config and opens a client, exiting on failure.
func mustConnect() (*api.Client, *config.Config) {
	cfg, err := loadConfig()
	if err != nil {
		fatalf("%v", err)
	}

	level, err := utils.ParseLogLevel(cfg.Log.Level)
	if err == nil {
		utils.SetDefaultLevel(level)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := api.NewClient(ctx, cfg)
	if err != nil {
		fatalf("failed to connect: %v", err)
	}
	return client, cfg
}

func loadConfig() (*config.Config, error) {
	path := flagValue("--config")
	if path == "" {
		path = os.Getenv("MEDIA_VALIDATOR_CONFIG")
	}
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// waitForRun polls until the run leaves RUNNING, printing progress when
// verbose. Returns the report on completion, nil otherwise.
func waitForRun(client *api.Client, verbose bool) *media.ValidationReport {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		progress := client.ValidationProgress()
		switch progress.Status {
		case api.StatusCompleted:
			return client.Engine().LastReport()
		case api.StatusPaused, api.StatusFailed:
			return nil
		}
		if verbose && progress.TotalItems > 0 {
			fmt.Printf("  batch %d/%d: %d/%d references\n",
				progress.CurrentBatch, progress.TotalBatches,
				progress.ProcessedItems, progress.TotalItems)
		}
	}
	return nil
}

func printReportSummary(report *media.ValidationReport, verbose bool) {
	fmt.Printf("Report %s\n", report.ID)
	fmt.Printf("  Documents: %d\n", report.TotalDocuments)
	fmt.Printf("  Fields:    %d (valid=%d invalid=%d missing=%d)\n",
		report.TotalFields, report.ValidCount, report.InvalidCount, report.MissingCount)

	for _, summary := range report.PerCollection {
		fmt.Printf("  %-35s fields=%d invalid=%d\n",
			summary.Collection, summary.TotalFields, summary.InvalidCount)
	}

	if verbose && len(report.InvalidOutcomes) > 0 {
		fmt.Println("Invalid references:")
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("  ", "  ")
		for _, out := range report.InvalidOutcomes {
			_ = enc.Encode(out)
		}
	}
}

func printRepairSummary(report *media.RepairReport) {
	fmt.Printf("Repair report %s: attempted=%d success=%d failed=%d\n",
		report.ID, report.TotalAttempted, report.TotalSuccess, report.TotalFailed)
	for _, action := range report.Actions {
		status := "ok"
		if !action.Success {
			status = "FAILED: " + action.Error
		}
		fmt.Printf("  [%s] %s/%s %s -> %s (%s)\n",
			action.Kind, action.Reference.Collection, action.Reference.DocumentID,
			action.OldURL, action.NewURL, status)
	}
}

// collectionArgs returns the non-flag arguments as collection names.
func collectionArgs(args []string) []string {
	var collections []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			if args[i] == "--config" {
				i++
			}
			continue
		}
		collections = append(collections, args[i])
	}
	return collections
}

// hasFlag checks if a flag is present in command line arguments
func hasFlag(flag string) bool {
	for _, arg := range os.Args {
		if arg == flag {
			return true
		}
	}
	return false
}

// flagValue returns the argument following flag, or "".
func flagValue(flag string) string {
	for i, arg := range os.Args {
		if arg == flag && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
	}
	return ""
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// printUsage displays help information
func printUsage() {
	fmt.Println("MediaValidator - Media Validation & Repair for Etoile Yachts")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mediavalidator validate [collection ...]     Scan collections and report invalid media")
	fmt.Println("  mediavalidator repair <report-id> [url ...]  Repair invalid references from a report")
	fmt.Println("  mediavalidator fix-relative <base-url>       Rewrite relative URLs against a base")
	fmt.Println("  mediavalidator resolve-blobs                 Replace blob URLs with placeholders")
	fmt.Println("  mediavalidator reports                       List stored validation reports")
	fmt.Println("  mediavalidator check-config <config.yaml>    Validate a configuration file")
	fmt.Println("  mediavalidator version                       Show version information")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <file>                              Configuration file path")
	fmt.Println("  -v, --verbose                                Enable verbose output")
}

// printVersion displays version information
func printVersion() {
	fmt.Printf("MediaValidator %s\n", version)
	fmt.Printf("Build time: %s\n", buildTime)
	fmt.Printf("Git commit: %s\n", gitCommit)
}
