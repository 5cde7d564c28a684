// Package graph records ingested documents and CAD parts in Neo4j.
//
// The graph is a secondary index over what has been ingested: Document
// nodes keyed by source path and Part nodes keyed by part ID. Upserts
// use MERGE so re-ingesting the same source updates in place instead of
// duplicating nodes.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ErrUnavailable indicates the graph store is unreachable or rejected
// the operation.
var ErrUnavailable = errors.New("graph store unavailable")

// Document is an ingested source recorded in the graph, keyed by its
// source path (or URL).
type Document struct {
	Source     string
	Collection string
	Chunks     int
	IngestedAt time.Time
}

// Part is a CAD part extracted from a model file, keyed by its part ID.
type Part struct {
	PartID     string
	Source     string
	Volume     float64
	Properties string
}

// Store manages graph upserts over a Neo4j driver.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	driver neo4j.DriverWithContext
	logger *slog.Logger
}

// NewStore connects to Neo4j and verifies connectivity before
// returning.
func NewStore(ctx context.Context, uri, user, password string, logger *slog.Logger) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("neo4j URI is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		if closeErr := driver.Close(ctx); closeErr != nil {
			logger.Warn("closing neo4j driver", "error", closeErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &Store{driver: driver, logger: logger}, nil
}

// Close releases the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// EnsureSchema creates the uniqueness constraints the upserts rely on.
// Safe to call repeatedly.
func (s *Store) EnsureSchema(ctx context.Context) error {
	constraints := []string{
		`CREATE CONSTRAINT document_source IF NOT EXISTS
		 FOR (d:Document) REQUIRE d.source IS UNIQUE`,
		`CREATE CONSTRAINT part_id IF NOT EXISTS
		 FOR (p:Part) REQUIRE p.part_id IS UNIQUE`,
		`CREATE CONSTRAINT material_name IF NOT EXISTS
		 FOR (m:Material) REQUIRE m.name IS UNIQUE`,
		`CREATE CONSTRAINT standard_code IF NOT EXISTS
		 FOR (st:Standard) REQUIRE st.code IS UNIQUE`,
	}
	for _, c := range constraints {
		if _, err := neo4j.ExecuteQuery(ctx, s.driver, c, nil,
			neo4j.EagerResultTransformer); err != nil {
			return fmt.Errorf("%w: creating constraint: %v", ErrUnavailable, err)
		}
	}
	s.logger.Debug("graph schema ready")
	return nil
}

// UpsertDocument records an ingested source. The source path is the
// identity; repeated ingests update the chunk count and timestamp.
func (s *Store) UpsertDocument(ctx context.Context, doc Document) error {
	if doc.Source == "" {
		return fmt.Errorf("document source is required")
	}

	const q = `MERGE (d:Document {source: $source})
		 SET d.collection = $collection,
		     d.chunks = $chunks,
		     d.ingested_at = $ingested_at`
	params := map[string]any{
		"source":      doc.Source,
		"collection":  doc.Collection,
		"chunks":      doc.Chunks,
		"ingested_at": doc.IngestedAt.UTC().Format(time.RFC3339),
	}
	if _, err := neo4j.ExecuteQuery(ctx, s.driver, q, params,
		neo4j.EagerResultTransformer); err != nil {
		return fmt.Errorf("%w: upserting document %q: %v", ErrUnavailable, doc.Source, err)
	}

	s.logger.Debug("upserted document node", "source", doc.Source, "chunks", doc.Chunks)
	return nil
}

// UpsertPart records a CAD part and links it to the document it came
// from. The part ID is the identity.
func (s *Store) UpsertPart(ctx context.Context, part Part) error {
	if part.PartID == "" {
		return fmt.Errorf("part ID is required")
	}
	if part.Source == "" {
		return fmt.Errorf("part source is required")
	}

	const q = `MERGE (p:Part {part_id: $part_id})
		 SET p.volume = $volume,
		     p.properties_text = $properties
		 MERGE (d:Document {source: $source})
		 MERGE (d)-[:CONTAINS]->(p)`
	params := map[string]any{
		"part_id":    part.PartID,
		"volume":     part.Volume,
		"properties": part.Properties,
		"source":     part.Source,
	}
	if _, err := neo4j.ExecuteQuery(ctx, s.driver, q, params,
		neo4j.EagerResultTransformer); err != nil {
		return fmt.Errorf("%w: upserting part %q: %v", ErrUnavailable, part.PartID, err)
	}

	s.logger.Debug("upserted part node", "part_id", part.PartID, "source", part.Source)
	return nil
}
