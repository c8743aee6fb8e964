package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kitabmazhab/kitab-agent/internal/bedrock"
	"github.com/kitabmazhab/kitab-agent/internal/database"
	"github.com/kitabmazhab/kitab-agent/internal/embedding"
	"github.com/kitabmazhab/kitab-agent/internal/index"
	"github.com/kitabmazhab/kitab-agent/internal/middleware"
	"github.com/kitabmazhab/kitab-agent/internal/search"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	query := flag.String("query", "", "Run a one-shot query instead of serving")
	school := flag.String("school", "", "Optional school filter for -query")
	category := flag.String("category", "", "Optional category filter for -query")
	limit := flag.Int("limit", 5, "Result limit for -query")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
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
		log.Fatal().Msg("KITAB_DB_HOST is required: the search API serves a durable store")
	}

	db, err := database.NewWithBackoff(ctx, config, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	log.Info().Msg("Database connected")

	region := os.Getenv("AWS_REGION")
	bedrockClient, err := bedrock.NewClient(ctx, region, "")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Bedrock client")
	}

	store := index.NewPgVectorStore(db.Pool)
	if err := store.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize chunk table")
	}

	embedder := embedding.NewBedrockEmbedder(bedrockClient.Client, os.Getenv("EMBEDDING_MODEL_ID"))
	ix := index.New(embedder, store)

	adopted, err := ix.Adopt(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read stored generation")
	}
	if adopted == 0 {
		log.Warn().Msg("Chunk store is empty, run the ingest command first")
	}

	searchService := search.NewService(ix, embedder)

	if *query != "" {
		results, err := searchService.Search(ctx, *query, *limit, *school, *category)
		if err != nil {
			log.Fatal().Err(err).Msg("Search failed")
		}
		for _, result := range results {
			fmt.Printf("%d. [%.2f] (%s) %s\n", result.Rank, result.Score, result.Source, result.Content)
		}
		if len(results) == 0 {
			fmt.Println(search.NoInformationFound)
		}
		return
	}

	handler := search.NewSearchHandler(searchService)

	container := restful.NewContainer()
	container.Filter(middleware.Logger)
	container.Filter(middleware.RecoverPanic)
	search.RegisterRoutes(container, handler)

	// CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	port := os.Getenv("SEARCH_API_PORT")
	if port == "" {
		port = "8082"
	}

	addr := fmt.Sprintf(":%s", port)
	log.Info().Str("address", addr).Msg("Starting Search API")

	server := http.Server{
		Addr:    addr,
		Handler: corsHandler.Handler(container),
	}

	if err := server.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
