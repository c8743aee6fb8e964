package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kitabmazhab/kitab-agent/internal/agent"
	"github.com/kitabmazhab/kitab-agent/internal/bedrock"
	"github.com/kitabmazhab/kitab-agent/internal/conversation"
	"github.com/kitabmazhab/kitab-agent/internal/database"
	"github.com/kitabmazhab/kitab-agent/internal/dispatch"
	"github.com/kitabmazhab/kitab-agent/internal/embedding"
	"github.com/kitabmazhab/kitab-agent/internal/index"
	"github.com/kitabmazhab/kitab-agent/internal/ingestion"
	"github.com/kitabmazhab/kitab-agent/internal/intent"
	"github.com/kitabmazhab/kitab-agent/internal/knowledge"
	"github.com/kitabmazhab/kitab-agent/internal/middleware"
	"github.com/kitabmazhab/kitab-agent/internal/redis"
	"github.com/kitabmazhab/kitab-agent/internal/search"
)

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "Kitab Mazhab Agent API",
			Description: "Four-madhhab fiqih assistant backed by semantic retrieval",
			Version:     "1.0.0",
		},
	}
	swo.Tags = []spec.Tag{
		{TagProps: spec.TagProps{Name: "health", Description: "Health checks"}},
		{TagProps: spec.TagProps{Name: "chat", Description: "Chat operations"}},
		{TagProps: spec.TagProps{Name: "admin", Description: "Knowledge base administration"}},
		{TagProps: spec.TagProps{Name: "search", Description: "Semantic search operations"}},
	}
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	log.Info().Msg("Starting Kitab Mazhab Agent API Server")

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	}

	region := os.Getenv("AWS_REGION")
	modelID := os.Getenv("CLAUDE_MODEL_ID")
	embeddingModelID := os.Getenv("EMBEDDING_MODEL_ID")
	port := os.Getenv("AGENT_API_PORT")
	if port == "" {
		port = "8080"
	}

	knowledgePath := os.Getenv("KNOWLEDGE_BASE_PATH")
	if knowledgePath == "" {
		knowledgePath = "data/kitab_mazhab.json"
	}

	ctx := context.Background()

	bedrockClient, err := bedrock.NewClient(ctx, region, modelID)
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to initialize Bedrock client")
	}

	log.Info().
		Str("region", region).
		Str("model", modelID).
		Msg("Bedrock client initialized")

	embedder := embedding.NewBedrockEmbedder(bedrockClient.Client, embeddingModelID)

	store, closeStore := buildChunkStore(ctx)
	defer closeStore()

	ix := index.New(embedder, store)

	pipeline := ingestion.NewPipeline(knowledge.NewBuilder(), ix)
	prepareIndex(ctx, ix, pipeline, knowledgePath)

	rules, err := intent.LoadRules("")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load intent rules")
	}

	searchService := search.NewService(ix, embedder)
	router := intent.NewRouter(rules)
	dispatcher := dispatch.NewDispatcher(searchService)
	conversations := buildConversationStore(ctx)

	service := agent.NewService(
		bedrockClient,
		modelID,
		router,
		dispatcher,
		conversations,
		ix,
		pipeline,
		knowledgePath,
	)
	handler := agent.NewHandler(service, modelID)
	searchHandler := search.NewSearchHandler(searchService)

	container := restful.NewContainer()

	// Add filters
	container.Filter(middleware.Logger)
	container.Filter(middleware.RecoverPanic)

	// register API
	agent.RegisterRoutes(container, handler)
	search.RegisterRoutes(container, searchHandler)

	config := restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       "/api/v1/openapi.json",
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}

	container.Add(restfulspec.NewOpenAPIService(config))

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	addr := fmt.Sprintf(":%s", port)
	log.Info().Str("address", addr).Msg("Starting server")

	server := http.Server{
		Addr:         addr,
		Handler:      corsHandler.Handler(container),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}
}

// buildChunkStore picks the pgvector store when a database host is
// configured, the in-memory store otherwise.
func buildChunkStore(ctx context.Context) (index.Store, func()) {
	host := os.Getenv("KITAB_DB_HOST")
	if host == "" {
		log.Info().Msg("No database configured, using in-memory chunk store")
		return index.NewMemoryStore(), func() {}
	}

	config := database.Config{
		Host:     host,
		Port:     os.Getenv("KITAB_DB_PORT"),
		User:     os.Getenv("KITAB_DB_USER"),
		Password: os.Getenv("KITAB_DB_PASSWORD"),
		Database: os.Getenv("KITAB_DB_DATABASE"),
		SSLMode:  os.Getenv("KITAB_DB_SSLMODE"),
	}

	db, err := database.NewWithBackoff(ctx, config, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	store := index.NewPgVectorStore(db.Pool)
	if err := store.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize chunk table")
	}

	log.Info().Str("host", host).Msg("Database connected")
	return store, db.Close
}

// prepareIndex adopts a persisted generation when one exists, otherwise
// ingests the knowledge base file.
func prepareIndex(ctx context.Context, ix *index.Index, pipeline *ingestion.Pipeline, knowledgePath string) {
	adopted, err := ix.Adopt(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to adopt stored generation")
	}
	if adopted > 0 {
		return
	}

	count, err := pipeline.IngestFile(ctx, knowledgePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", knowledgePath).Msg("Failed to ingest knowledge base")
	}
	log.Info().Int("chunks", count).Msg("Knowledge base ingested")
}

func buildConversationStore(ctx context.Context) conversation.Store {
	maxExchanges := conversation.DefaultMaxExchanges

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		log.Info().Msg("No Redis configured, using in-memory conversation store")
		return conversation.NewMemoryStore(maxExchanges)
	}

	redisDB := 0
	if configured := os.Getenv("REDIS_DB"); configured != "" {
		if parsed, err := strconv.Atoi(configured); err == nil {
			redisDB = parsed
		}
	}

	redisClient, err := redis.Connect(
		ctx,
		redis.Config{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		5, // max retries
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	ttl := 30 * time.Minute
	if configured := os.Getenv("REDIS_TTL"); configured != "" {
		if parsed, err := time.ParseDuration(configured); err == nil {
			ttl = parsed
		}
	}

	return conversation.NewRedisStore(redisClient, ttl, maxExchanges)
}
