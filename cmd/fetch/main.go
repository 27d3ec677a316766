package main

import (
	"context"
	"fmt"

	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/config"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/logger"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/pipeline"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Configuration error")
	}
	if err := cfg.Finicity.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Configuration error")
	}

	ctx := logger.WithContext(context.Background(), log)
	state := pipeline.NewState(cfg)

	log.Info().Str("customer_id", cfg.Finicity.CustomerID).Str("data_dir", cfg.DataDir).
		Msg("Starting fetch")

	if err := pipeline.Run(ctx, pipeline.NewFetchPipeline(), state); err != nil {
		log.Fatal().Err(err).Msg("Fetch failed")
	}

	fmt.Printf("Fetched %d account(s), %d page(s), %d institution(s) into %s\n",
		state.Report.AccountsFetched, state.Report.TotalPages(),
		state.Report.InstitutionsFetched, cfg.DataDir)
}
