package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/kmw/qualcoder/internal/models"
	"github.com/kmw/qualcoder/internal/types"
)

type PgIndexConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	BatchSize  int
}

// PgIndex persists embedded chunks in PostgreSQL with pgvector and
// serves cosine-similarity queries against them. It is the optional
// durable layer behind the in-memory index.
type PgIndex struct {
	config PgIndexConfig
	pool   *pgxpool.Pool
}

func NewPgIndex(ctx context.Context, config PgIndexConfig) (*PgIndex, error) {
	if config.TableName == "" {
		config.TableName = "chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	idx := &PgIndex{
		config: config,
		pool:   pool,
	}

	if err := idx.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return idx, nil
}

func (x *PgIndex) initialize(ctx context.Context) error {
	_, err := x.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d),
			metadata JSONB
		)`, x.config.TableName, x.config.VectorDim)

	if _, err = x.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		x.config.TableName, x.config.TableName)

	if _, err = x.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

// Upsert writes vectors with their ids and metadata in batches of
// BatchSize, one transaction per batch.
func (x *PgIndex) Upsert(ctx context.Context, vectors [][]float32, ids []string, metadata []map[string]string) error {
	if len(vectors) != len(ids) {
		return fmt.Errorf("vectors and ids length mismatch")
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, metadata)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		x.config.TableName)

	for start := 0; start < len(vectors); start += x.config.BatchSize {
		end := start + x.config.BatchSize
		if end > len(vectors) {
			end = len(vectors)
		}

		tx, err := x.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %v", err)
		}

		for i := start; i < end; i++ {
			var meta map[string]string
			if i < len(metadata) {
				meta = metadata[i]
			}
			if _, err := tx.Exec(ctx, stmt, ids[i], pgvector.NewVector(vectors[i]), meta); err != nil {
				tx.Rollback(ctx)
				return fmt.Errorf("failed to upsert vector %s: %v", ids[i], err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit batch: %v", err)
		}
	}

	return nil
}

// Query returns the topK nearest stored vectors by cosine distance.
func (x *PgIndex) Query(ctx context.Context, vector []float32, topK int) ([]types.SearchMatch, error) {
	if topK <= 0 {
		topK = 10
	}

	query := fmt.Sprintf(`
		SELECT id, 1 - (embedding <=> $1) AS score, metadata
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		x.config.TableName)

	rows, err := x.pool.Query(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %v", err)
	}
	defer rows.Close()

	var matches []types.SearchMatch
	for rows.Next() {
		var m types.SearchMatch
		if err := rows.Scan(&m.ID, &m.Score, &m.Metadata); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Delete removes the given ids.
func (x *PgIndex) Delete(ctx context.Context, ids []string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", x.config.TableName)
	if _, err := x.pool.Exec(ctx, stmt, ids); err != nil {
		return fmt.Errorf("failed to delete vectors: %v", err)
	}
	return nil
}

// Stats reports row and distinct-id counts.
func (x *PgIndex) Stats(ctx context.Context) (models.IndexStats, error) {
	query := fmt.Sprintf("SELECT count(*), count(DISTINCT id) FROM %s", x.config.TableName)

	var stats models.IndexStats
	if err := x.pool.QueryRow(ctx, query).Scan(&stats.Size, &stats.UniqueIDs); err != nil {
		return models.IndexStats{}, fmt.Errorf("failed to read index stats: %v", err)
	}
	stats.Dimensions = x.config.VectorDim
	return stats, nil
}

func (x *PgIndex) Close() {
	if x.pool != nil {
		x.pool.Close()
	}
}
