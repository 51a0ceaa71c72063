package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"ragchat/app"
	"ragchat/config"
	"ragchat/logx"
	"ragchat/services/vectorstore"

	"github.com/rs/zerolog/log"
)

func main() {
	var (
		collection string
		force      bool
	)
	flag.StringVar(&collection, "collection", vectorstore.DefaultCollection, "Collection to fill with the reference dataset")
	flag.BoolVar(&force, "force", false, "Load even when the collection already holds documents")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logx.Init(cfg.Log)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("collection", collection).Msg("Starting dataset load")

	store, err := app.NewStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize vector store")
	}

	count, err := store.Count(ctx, collection)
	if err != nil && !errors.Is(err, vectorstore.ErrCollectionNotFound) {
		log.Fatal().Err(err).Msg("Failed to inspect collection")
	}
	if count > 0 && !force {
		log.Info().Int("documents", count).Msg("Collection already populated, use -force to reload")
		return
	}

	stored, err := app.NewDatasetLoader(cfg, store).Load(ctx, collection)
	if err != nil {
		log.Fatal().Err(err).Int("stored", stored).Msg("Dataset load failed")
	}

	log.Info().Str("collection", collection).Int("documents", stored).Msg("Dataset load complete")
}
