// Package vecstore provides the vector store gateway backed by
// PostgreSQL + pgvector.
//
// Each collection is a dedicated table with a fixed-dimensionality
// embedding column. Collection bootstrap is detect-or-create and never
// destructive: an existing collection with the wrong dimensionality is
// reported as ErrSchemaMismatch, not dropped. The only destructive
// operation is Reset, which callers must invoke explicitly.
package vecstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// searchTimeout bounds a single similarity query so a slow store cannot
// block callers indefinitely.
const searchTimeout = 10 * time.Second

// collectionNameRe restricts collection names to safe SQL identifiers.
// Names are interpolated (sanitized) into DDL and queries, so anything
// outside this alphabet is rejected up front.
var collectionNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// Item is one embedded chunk to store in a collection.
type Item struct {
	// ID identifies the item. Empty means a random UUID is assigned.
	ID string

	// Text is the original chunk content.
	Text string

	// Vector is the embedding for Text. Its length must match the
	// collection's dimensionality; the store enforces this.
	Vector []float32

	// Payload holds filterable metadata (source path, user ID, kind).
	Payload map[string]string
}

// Result is one similarity search hit.
type Result struct {
	ID         string
	Text       string
	Payload    map[string]string
	Similarity float64
}

// Gateway mediates all vector store access.
//
// Gateway is safe for concurrent use by multiple goroutines.
type Gateway struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	retries int
}

// NewGateway creates a Gateway over an existing connection pool.
// retries is the number of additional attempts made on transient
// connectivity failures before an operation reports ErrUnavailable;
// zero disables retrying.
func NewGateway(pool *pgxpool.Pool, logger *slog.Logger, retries int) (*Gateway, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if retries < 0 {
		return nil, fmt.Errorf("retries must not be negative, got %d", retries)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{pool: pool, logger: logger, retries: retries}, nil
}

func validateCollection(name string) error {
	if !collectionNameRe.MatchString(name) {
		return fmt.Errorf("invalid collection name %q: must match %s", name, collectionNameRe)
	}
	return nil
}

func tableIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// parseVectorType extracts the dimensionality from a pgvector column
// type such as "vector(768)".
func parseVectorType(typ string) (int, error) {
	rest, ok := strings.CutPrefix(typ, "vector(")
	if !ok {
		return 0, fmt.Errorf("column type %q is not a pgvector type", typ)
	}
	rest, ok = strings.CutSuffix(rest, ")")
	if !ok {
		return 0, fmt.Errorf("column type %q is not a pgvector type", typ)
	}
	dim, err := strconv.Atoi(rest)
	if err != nil || dim <= 0 {
		return 0, fmt.Errorf("column type %q has invalid dimensionality", typ)
	}
	return dim, nil
}

// collectionDim reads the embedding column's declared dimensionality.
// found is false when the collection does not exist.
func (g *Gateway) collectionDim(ctx context.Context, name string) (dim int, found bool, err error) {
	const q = `SELECT format_type(a.atttypid, a.atttypmod)
		 FROM pg_attribute a
		 JOIN pg_class c ON a.attrelid = c.oid
		 JOIN pg_namespace n ON c.relnamespace = n.oid
		 WHERE n.nspname = current_schema()
		   AND c.relname = $1
		   AND a.attname = 'embedding'
		   AND NOT a.attisdropped`

	var typ string
	err = g.pool.QueryRow(ctx, q, name).Scan(&typ)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the table or its embedding column is missing. A table
		// without the column is a foreign table squatting on the name.
		var exists bool
		if err := g.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM pg_class c
			   JOIN pg_namespace n ON c.relnamespace = n.oid
			  WHERE n.nspname = current_schema() AND c.relname = $1 AND c.relkind = 'r')`,
			name).Scan(&exists); err != nil {
			return 0, false, classify("checking collection", err)
		}
		if exists {
			return 0, true, fmt.Errorf("%w: table %q has no embedding column", ErrSchemaMismatch, name)
		}
		return 0, false, nil
	}
	if err != nil {
		return 0, false, classify("reading collection schema", err)
	}

	dim, err = parseVectorType(typ)
	if err != nil {
		return 0, true, fmt.Errorf("%w: collection %q: %v", ErrSchemaMismatch, name, err)
	}
	return dim, true, nil
}

// EnsureCollection makes sure the named collection exists with the
// given dimensionality. It is idempotent and safe to call from
// concurrent processes; a pre-existing collection is verified, never
// recreated. A dimensionality conflict returns ErrSchemaMismatch.
func (g *Gateway) EnsureCollection(ctx context.Context, name string, dim int) error {
	if err := validateCollection(name); err != nil {
		return err
	}
	if dim <= 0 {
		return fmt.Errorf("invalid dimensionality %d", dim)
	}

	existing, found, err := g.collectionDim(ctx, name)
	if err != nil {
		return err
	}
	if found {
		if existing != dim {
			return fmt.Errorf("%w: collection %q stores vector(%d), need vector(%d)",
				ErrSchemaMismatch, name, existing, dim)
		}
		return nil
	}

	ident := tableIdent(name)
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id UUID PRIMARY KEY,
		content TEXT NOT NULL,
		embedding vector(%d) NOT NULL,
		payload JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, ident, dim)

	if _, err := g.pool.Exec(ctx, ddl); err != nil {
		// A concurrent bootstrap may have created the table between the
		// probe and the DDL. Fall through to re-verify instead of failing.
		var pgErr *pgconn.PgError
		if !errors.As(err, &pgErr) || (pgErr.Code != pgerrcode.DuplicateTable && pgErr.Code != pgerrcode.UniqueViolation) {
			return classify("creating collection", err)
		}
	}

	idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`,
		tableIdent(name+"_embedding_idx"), ident)
	if _, err := g.pool.Exec(ctx, idx); err != nil {
		return classify("creating vector index", err)
	}
	pidx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING gin (payload)`,
		tableIdent(name+"_payload_idx"), ident)
	if _, err := g.pool.Exec(ctx, pidx); err != nil {
		return classify("creating payload index", err)
	}

	// Re-verify after the race window: a concurrent creator may have
	// won with a different dimensionality.
	existing, found, err = g.collectionDim(ctx, name)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: collection %q missing after create", ErrUnavailable, name)
	}
	if existing != dim {
		return fmt.Errorf("%w: collection %q stores vector(%d), need vector(%d)",
			ErrSchemaMismatch, name, existing, dim)
	}

	g.logger.Info("collection ready", "collection", name, "dim", dim)
	return nil
}

// Dim returns the dimensionality of an existing collection.
func (g *Gateway) Dim(ctx context.Context, name string) (int, error) {
	if err := validateCollection(name); err != nil {
		return 0, err
	}
	dim, found, err := g.collectionDim(ctx, name)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	return dim, nil
}

// Add upserts items into a collection in a single batch round trip.
func (g *Gateway) Add(ctx context.Context, name string, items []Item) error {
	if err := validateCollection(name); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	const upsert = `INSERT INTO %s (id, content, embedding, payload)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET content = EXCLUDED.content,
		     embedding = EXCLUDED.embedding,
		     payload = EXCLUDED.payload`
	q := fmt.Sprintf(upsert, tableIdent(name))

	batch := &pgx.Batch{}
	for i, item := range items {
		if len(item.Vector) == 0 {
			return fmt.Errorf("item %d has an empty vector", i)
		}
		id := item.ID
		if id == "" {
			id = uuid.NewString()
		}
		payload, err := json.Marshal(item.Payload)
		if err != nil {
			return fmt.Errorf("marshaling payload for item %d: %w", i, err)
		}
		vec := pgvector.NewVector(item.Vector)
		batch.Queue(q, id, item.Text, &vec, payload)
	}

	// The whole batch is an idempotent upsert, so a transient failure
	// can be replayed wholesale.
	send := func() error {
		results := g.pool.SendBatch(ctx, batch)
		var execErr error
		for range items {
			if _, err := results.Exec(); err != nil {
				execErr = err
				break
			}
		}
		if err := results.Close(); err != nil && execErr == nil {
			execErr = err
		}
		return execErr
	}
	if err := g.withRetry(ctx, "adding items", send); err != nil {
		return classify("adding items", err)
	}

	g.logger.Debug("added items", "collection", name, "count", len(items))
	return nil
}

// Search returns the topK most similar items by cosine similarity,
// descending. A non-empty filter restricts results to items whose
// payload contains every given key/value pair.
func (g *Gateway) Search(ctx context.Context, name string, vector []float32, topK int, filter map[string]string) ([]Result, error) {
	if err := validateCollection(name); err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	// The timeout bounds the whole operation, retries included.
	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	vec := pgvector.NewVector(vector)
	ident := tableIdent(name)

	var filterJSON []byte
	if len(filter) > 0 {
		// The filter is always produced by json.Marshal and matched
		// with the parameterized @> operator, never interpolated.
		var err error
		filterJSON, err = json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("marshaling filter: %w", err)
		}
	}

	var results []Result
	query := func() error {
		var rows pgx.Rows
		var err error
		if filterJSON != nil {
			q := fmt.Sprintf(`SELECT id, content, payload, 1 - (embedding <=> $1) AS similarity
				 FROM %s
				 WHERE payload @> $2
				 ORDER BY embedding <=> $1
				 LIMIT $3`, ident)
			rows, err = g.pool.Query(queryCtx, q, &vec, filterJSON, topK)
		} else {
			q := fmt.Sprintf(`SELECT id, content, payload, 1 - (embedding <=> $1) AS similarity
				 FROM %s
				 ORDER BY embedding <=> $1
				 LIMIT $2`, ident)
			rows, err = g.pool.Query(queryCtx, q, &vec, topK)
		}
		if err != nil {
			return err
		}
		defer rows.Close()

		results = make([]Result, 0, topK)
		for rows.Next() {
			var (
				id          uuid.UUID
				content     string
				payloadJSON []byte
				similarity  float64
			)
			if err := rows.Scan(&id, &content, &payloadJSON, &similarity); err != nil {
				return err
			}
			var payload map[string]string
			if err := json.Unmarshal(payloadJSON, &payload); err != nil {
				g.logger.Warn("unparsable payload", "collection", name, "id", id, "error", err)
				payload = map[string]string{}
			}
			results = append(results, Result{
				ID:         id.String(),
				Text:       content,
				Payload:    payload,
				Similarity: similarity,
			})
		}
		return rows.Err()
	}
	if err := g.withRetry(queryCtx, "searching", query); err != nil {
		return nil, classify("searching", err)
	}
	return results, nil
}

// Count returns the number of items matching the filter. A nil or empty
// filter counts the whole collection.
func (g *Gateway) Count(ctx context.Context, name string, filter map[string]string) (int, error) {
	if err := validateCollection(name); err != nil {
		return 0, err
	}

	ident := tableIdent(name)
	var count int64
	var err error
	if len(filter) > 0 {
		filterJSON, marshalErr := json.Marshal(filter)
		if marshalErr != nil {
			return 0, fmt.Errorf("marshaling filter: %w", marshalErr)
		}
		err = g.pool.QueryRow(ctx,
			fmt.Sprintf(`SELECT count(*) FROM %s WHERE payload @> $1`, ident),
			filterJSON).Scan(&count)
	} else {
		err = g.pool.QueryRow(ctx,
			fmt.Sprintf(`SELECT count(*) FROM %s`, ident)).Scan(&count)
	}
	if err != nil {
		return 0, classify("counting items", err)
	}
	return int(count), nil
}

// DeleteOldest removes the n oldest items matching the filter and
// returns how many were deleted.
func (g *Gateway) DeleteOldest(ctx context.Context, name string, filter map[string]string, n int) (int, error) {
	if err := validateCollection(name); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, nil
	}
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return 0, fmt.Errorf("marshaling filter: %w", err)
	}

	ident := tableIdent(name)
	q := fmt.Sprintf(`DELETE FROM %s
		 WHERE id IN (
		   SELECT id FROM %s
		   WHERE payload @> $1
		   ORDER BY created_at ASC
		   LIMIT $2
		 )`, ident, ident)

	tag, err := g.pool.Exec(ctx, q, filterJSON, n)
	if err != nil {
		return 0, classify("deleting oldest items", err)
	}
	return int(tag.RowsAffected()), nil
}

// Reset drops the collection and all its items. This is the only
// destructive operation in the package and is never called by the
// bootstrap path.
func (g *Gateway) Reset(ctx context.Context, name string) error {
	if err := validateCollection(name); err != nil {
		return err
	}
	q := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableIdent(name))
	if _, err := g.pool.Exec(ctx, q); err != nil {
		return classify("dropping collection", err)
	}
	g.logger.Warn("collection dropped", "collection", name)
	return nil
}
