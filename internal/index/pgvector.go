package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
)

// PgVectorStore persists chunk embeddings in Postgres with the pgvector
// extension, so the index survives restarts. A generation swap runs as
// one transaction: delete everything, insert the new entries, commit.
type PgVectorStore struct {
	pool *pgxpool.Pool
}

func NewPgVectorStore(pool *pgxpool.Pool) *PgVectorStore {
	return &PgVectorStore{pool: pool}
}

// Init creates the chunk table if it does not exist yet.
func (s *PgVectorStore) Init(ctx context.Context) error {
	ddl := `
        CREATE EXTENSION IF NOT EXISTS vector;
        CREATE TABLE IF NOT EXISTS kitab_chunks (
            id         TEXT NOT NULL,
            generation TEXT NOT NULL,
            ord        INT NOT NULL,
            content    TEXT NOT NULL,
            metadata   JSONB NOT NULL,
            embedding  VECTOR NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (generation, id)
        )`

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create chunk table: %w", err)
	}
	return nil
}

func (s *PgVectorStore) Replace(ctx context.Context, generation string, entries []Entry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // Rollback if we don't commit

	if _, err := tx.Exec(ctx, `DELETE FROM kitab_chunks`); err != nil {
		return fmt.Errorf("failed to delete prior generation: %w", err)
	}

	insertQuery := `
        INSERT INTO kitab_chunks (id, generation, ord, content, metadata, embedding)
        VALUES ($1, $2, $3, $4, $5, $6)
    `

	for i, entry := range entries {
		metadataJSON, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for chunk %s: %w", entry.ID, err)
		}

		vector := pgvector.NewVector(entry.Vector)

		_, err = tx.Exec(ctx, insertQuery,
			entry.ID,
			generation,
			i, // insertion order, the distance tie-break
			entry.Content,
			metadataJSON,
			vector,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", entry.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().Str("generation", generation).Int("chunks", len(entries)).Msg("Chunk generation stored")
	return nil
}

// filterColumns whitelists the metadata keys that may appear in a WHERE
// clause; filter keys are interpolated into the SQL text.
var filterColumns = map[string]bool{
	"school":    true,
	"category":  true,
	"topic":     true,
	"imam_name": true,
}

func (s *PgVectorStore) Query(ctx context.Context, vector []float32, k int, filters Filters) ([]StoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString(`
        SELECT
          id,
          content,
          metadata,
          embedding <=> $1 AS distance
        FROM kitab_chunks`)

	args := []any{pgvector.NewVector(vector)}

	for _, key := range sortedFilterKeys(filters) {
		if !filterColumns[key] {
			return nil, fmt.Errorf("unsupported filter key %q", key)
		}
		if len(args) == 1 {
			sb.WriteString("\n        WHERE ")
		} else {
			sb.WriteString("\n          AND ")
		}
		args = append(args, filters[key])
		fmt.Fprintf(&sb, "metadata->>'%s' = $%d", key, len(args))
	}

	args = append(args, k)
	fmt.Fprintf(&sb, "\n        ORDER BY distance ASC, ord ASC\n        LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var results []StoredChunk
	for rows.Next() {
		var chunk StoredChunk
		var metadataJSON []byte

		if err := rows.Scan(&chunk.ID, &chunk.Content, &metadataJSON, &chunk.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata for chunk %s: %w", chunk.ID, err)
		}

		results = append(results, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return results, nil
}

func (s *PgVectorStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM kitab_chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// Generation returns the generation ID of the stored chunks, empty when
// the table is empty.
func (s *PgVectorStore) Generation(ctx context.Context) (string, error) {
	var generation string
	err := s.pool.QueryRow(ctx, `SELECT generation FROM kitab_chunks LIMIT 1`).Scan(&generation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read generation: %w", err)
	}
	return generation, nil
}

func sortedFilterKeys(filters Filters) []string {
	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	// Deterministic SQL for identical filter sets.
	sort.Strings(keys)
	return keys
}
