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
	if err := cfg.Ocrolus.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Configuration error")
	}

	ctx := logger.WithContext(context.Background(), log)
	state := pipeline.NewState(cfg)

	log.Info().Str("book_pk", cfg.Ocrolus.BookPK).Str("dir", cfg.TransformedDir).
		Msg("Starting upload")

	if err := pipeline.Run(ctx, pipeline.NewUploadPipeline(), state); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded bundle to book %s\n", cfg.Ocrolus.BookPK)
}
