package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/archive"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/config"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/events"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/logger"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/pipeline"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/runlog"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "fetch":
		runStage(log, pipeline.NewFetchPipeline(), needsSource)
	case "transform":
		runStage(log, pipeline.NewTransformPipeline(), 0)
	case "upload":
		runStage(log, pipeline.NewUploadPipeline(), needsSink)
	case "status":
		runStage(log, pipeline.NewStatusPipeline(), needsSink)
	case "run":
		runStage(log, pipeline.NewExportPipeline(), needsSource|needsSink)
	case "archive":
		runArchive(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Finicity → Ocrolus export pipeline")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command>")
	fmt.Println("\nCommands:")
	fmt.Println("  fetch      Fetch customer, accounts, transactions and institutions")
	fmt.Println("  transform  Derive the transformed tree from the fetched tree")
	fmt.Println("  upload     Upload the transformed bundle to the Ocrolus book")
	fmt.Println("  status     Report ingestion status for the book")
	fmt.Println("  run        Full pipeline: fetch → transform → upload → status")
	fmt.Println("  archive    Mirror an output tree to the archive bucket")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nConfiguration comes from the environment (see .env.example).")
}

const (
	needsSource = 1 << iota
	needsSink
)

func runStage(log zerolog.Logger, p *pipeline.Pipeline, needs int) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Configuration error")
	}
	if needs&needsSource != 0 {
		if err := cfg.Finicity.Validate(); err != nil {
			log.Fatal().Err(err).Msg("Configuration error")
		}
	}
	if needs&needsSink != 0 {
		if err := cfg.Ocrolus.Validate(); err != nil {
			log.Fatal().Err(err).Msg("Configuration error")
		}
	}

	ctx := logger.WithContext(context.Background(), log)

	state := pipeline.NewState(cfg)
	if cfg.RunlogProject != "" {
		recorder, err := runlog.NewBigQueryRecorder(ctx, cfg.RunlogProject, cfg.RunlogDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Creating run ledger recorder failed")
		}
		defer recorder.Close()
		state.Runlog = recorder
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		state.Events = publisher
	}

	if err := pipeline.Run(ctx, p, state); err != nil {
		log.Fatal().Err(err).Msg("Pipeline failed")
	}

	printReport(state.Report)
}

func printReport(r pipeline.Report) {
	fmt.Println("\n=== Run Summary ===")
	fmt.Printf("Run ID:        %s\n", r.RunID)
	if r.CustomerFetched {
		fmt.Println("Customer:      fetched")
	}
	if r.AccountsFetched > 0 {
		fmt.Printf("Accounts:      %d\n", r.AccountsFetched)
	}
	if len(r.PagesFetched) > 0 {
		fmt.Printf("Pages:         %d (%d transactions)\n", r.TotalPages(), r.TransactionsFetched)
		for accountID, pages := range r.PagesFetched {
			line := fmt.Sprintf("  account %s: %d page(s)", accountID, pages)
			if bal, ok := r.ClosingBalances[accountID]; ok {
				line += fmt.Sprintf(", closing balance %s", bal.StringFixed(2))
			}
			fmt.Println(line)
		}
	}
	if r.InstitutionsFetched > 0 || r.InstitutionsSkipped > 0 {
		fmt.Printf("Institutions:  %d fetched, %d skipped\n", r.InstitutionsFetched, r.InstitutionsSkipped)
	}
	if r.FilesTransformed > 0 || r.FilesCopied > 0 {
		fmt.Printf("Transformed:   %d file(s), %d copied unchanged\n", r.FilesTransformed, r.FilesCopied)
	}
	if r.BookPK != "" {
		fmt.Printf("Uploaded to:   book %s\n", r.BookPK)
	}
	if r.Ingestion != nil {
		fmt.Printf("Ingestion:     %d total, %d verified, %d rejected\n",
			r.Ingestion.Total, r.Ingestion.Verified, r.Ingestion.Rejected)
	}
	fmt.Println()
}

func runArchive(log zerolog.Logger) {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	dir := fs.String("dir", "", "Output tree to mirror (defaults to the transformed tree)")
	prefix := fs.String("prefix", "exports", "Object prefix in the archive bucket")
	fs.Parse(os.Args[2:])

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Configuration error")
	}
	if cfg.ArchiveBucket == "" {
		log.Fatal().Msg("Error: ARCHIVE_BUCKET is required for archive")
	}
	root := *dir
	if root == "" {
		root = cfg.TransformedDir
	}

	ctx := logger.WithContext(context.Background(), log)

	archiver, err := archive.NewArchiver(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Creating archiver failed")
	}
	defer archiver.Close()

	n, err := archiver.MirrorTree(ctx, cfg.ArchiveBucket, *prefix, root)
	if err != nil {
		log.Fatal().Err(err).Msg("Archive failed")
	}
	fmt.Printf("Archived %d file(s) from %s to gs://%s/%s\n", n, root, cfg.ArchiveBucket, *prefix)
}
