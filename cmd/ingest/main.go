package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kitabmazhab/kitab-agent/internal/bedrock"
	"github.com/kitabmazhab/kitab-agent/internal/database"
	"github.com/kitabmazhab/kitab-agent/internal/embedding"
	"github.com/kitabmazhab/kitab-agent/internal/index"
	"github.com/kitabmazhab/kitab-agent/internal/ingestion"
	"github.com/kitabmazhab/kitab-agent/internal/knowledge"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	filePath := flag.String("filePath", "data/kitab_mazhab.json", "Path to the knowledge base JSON file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Unable to load env variables")
	}

	ctx := context.Background()

	config := database.Config{
		Host:     os.Getenv("KITAB_DB_HOST"),
		Port:     os.Getenv("KITAB_DB_PORT"),
		User:     os.Getenv("KITAB_DB_USER"),
		Password: os.Getenv("KITAB_DB_PASSWORD"),
		Database: os.Getenv("KITAB_DB_DATABASE"),
		SSLMode:  os.Getenv("KITAB_DB_SSLMODE"),
	}

	if config.Host == "" {
		log.Fatal().Msg("KITAB_DB_HOST is required: ingestion writes to the durable store")
	}

	db, err := database.NewWithBackoff(ctx, config, 3)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	log.Info().Msg("Database connected")

	region := os.Getenv("AWS_REGION")

	bedrockClient, err := bedrock.NewClient(ctx, region, "")
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to create bedrock client")
	}

	store := index.NewPgVectorStore(db.Pool)
	if err := store.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize chunk table")
	}

	embedder := embedding.NewBedrockEmbedder(bedrockClient.Client, os.Getenv("EMBEDDING_MODEL_ID"))
	ix := index.New(embedder, store)
	pipeline := ingestion.NewPipeline(knowledge.NewBuilder(), ix)

	count, err := pipeline.IngestFile(ctx, *filePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *filePath).Msg("Ingestion failed")
	}

	log.Info().Int("chunks", count).Msg("Ingestion successful")
}
