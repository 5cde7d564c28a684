// Package ingest routes heterogeneous input files into the vector and
// graph stores.
//
// Each file is classified by extension and sent through the text
// pipeline (load, chunk, embed, store) or the CAD pipeline (parse
// parts, embed summaries, store). Failures are isolated per file: one
// bad file never aborts the batch. The target collection is
// bootstrapped once per batch with the dimensionality probed from the
// embedding provider.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/millwright/millwright/internal/embed"
	"github.com/millwright/millwright/internal/graph"
	"github.com/millwright/millwright/internal/vecstore"
)

// Payload type tags on vector records.
const (
	TypeTextChunk  = "text_chunk"
	TypeCADSummary = "cad_summary"
)

// documentLoader turns paths and URLs into normalized text.
type documentLoader interface {
	Load(ctx context.Context, path string) (string, error)
	LoadURL(ctx context.Context, rawURL string) (string, error)
}

// cadParser extracts structured parts from a CAD model file.
type cadParser interface {
	Parse(ctx context.Context, path string) ([]CADPart, error)
}

// vectorGateway is the slice of the vector store the dispatcher needs.
type vectorGateway interface {
	EnsureCollection(ctx context.Context, name string, dim int) error
	Add(ctx context.Context, name string, items []vecstore.Item) error
}

// graphStore records documents and parts in the graph database.
type graphStore interface {
	UpsertDocument(ctx context.Context, doc graph.Document) error
	UpsertPart(ctx context.Context, part graph.Part) error
}

// Dispatcher drives ingestion batches.
//
// Dispatcher is safe for concurrent use, though a single batch
// processes its files sequentially.
type Dispatcher struct {
	loader   documentLoader
	cad      cadParser
	gw       vectorGateway
	graph    graphStore
	provider embed.Provider
	splitter *Splitter
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher. All collaborators are required
// except the logger.
func NewDispatcher(loader documentLoader, cad cadParser, gw vectorGateway, gs graphStore, provider embed.Provider, splitter *Splitter, logger *slog.Logger) (*Dispatcher, error) {
	if loader == nil {
		return nil, fmt.Errorf("document loader is required")
	}
	if cad == nil {
		return nil, fmt.Errorf("CAD parser is required")
	}
	if gw == nil {
		return nil, fmt.Errorf("vector gateway is required")
	}
	if gs == nil {
		return nil, fmt.Errorf("graph store is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if splitter == nil {
		return nil, fmt.Errorf("splitter is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		loader:   loader,
		cad:      cad,
		gw:       gw,
		graph:    gs,
		provider: provider,
		splitter: splitter,
		logger:   logger,
	}, nil
}

// isURL reports whether the ingestion source is a web address rather
// than a filesystem path.
func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Run ingests a source (file, directory, or URL) into the named
// collection. Setup failures (collection bootstrap, unreadable root)
// fail the run; per-file failures are recorded in the result and the
// batch continues.
func (d *Dispatcher) Run(ctx context.Context, source, collection string) (*BatchResult, error) {
	result := &BatchResult{Collection: collection, Started: time.Now()}

	dim, err := embed.ProbeDimension(ctx, d.provider)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping collection %q: %w", collection, err)
	}
	if err := d.gw.EnsureCollection(ctx, collection, dim); err != nil {
		return nil, fmt.Errorf("bootstrapping collection %q: %w", collection, err)
	}

	paths, err := d.expand(source)
	if err != nil {
		return nil, err
	}

	for _, p := range paths {
		fr := d.processOne(ctx, p, collection)
		result.Files = append(result.Files, fr)

		switch fr.Status {
		case StatusSucceeded:
			d.logger.Info("ingested", "path", fr.Path, "kind", fr.Kind, "chunks", fr.Chunks)
		case StatusSkipped:
			d.logger.Info("skipped unsupported file", "path", fr.Path)
		case StatusFailed:
			d.logger.Error("ingestion failed", "path", fr.Path, "kind", fr.Kind, "error", fr.Err)
		}
	}

	result.Finished = time.Now()
	d.logger.Info("batch complete", "collection", collection, "summary", result.Summary())
	return result, nil
}

// expand resolves the source into the list of inputs to process. URLs
// and single files yield one entry; directories yield every non-hidden
// regular file, in directory order.
func (d *Dispatcher) expand(source string) ([]string, error) {
	if isURL(source) {
		return []string{source}, nil
	}

	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("reading source %q: %w", source, err)
	}
	if !info.IsDir() {
		return []string{source}, nil
	}

	entries, err := os.ReadDir(source)
	if err != nil {
		return nil, fmt.Errorf("reading directory %q: %w", source, err)
	}

	var paths []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		paths = append(paths, filepath.Join(source, entry.Name()))
	}
	return paths, nil
}

// processOne runs a single input through its pipeline, catching any
// failure into the FileResult.
func (d *Dispatcher) processOne(ctx context.Context, path, collection string) FileResult {
	if isURL(path) {
		chunks, err := d.ingestURL(ctx, path, collection)
		return fileResult(path, KindText, chunks, err)
	}

	kind := Classify(path)
	switch kind {
	case KindText:
		chunks, err := d.ingestText(ctx, path, collection)
		return fileResult(path, kind, chunks, err)
	case KindCAD:
		parts, err := d.ingestCAD(ctx, path, collection)
		return fileResult(path, kind, parts, err)
	default:
		return FileResult{
			Path:   path,
			Kind:   KindUnsupported,
			Status: StatusSkipped,
			Err:    fmt.Errorf("%w: %s", ErrUnsupportedInput, filepath.Ext(path)),
		}
	}
}

func fileResult(path string, kind Kind, chunks int, err error) FileResult {
	if err != nil {
		return FileResult{Path: path, Kind: kind, Status: StatusFailed, Err: err}
	}
	return FileResult{Path: path, Kind: kind, Status: StatusSucceeded, Chunks: chunks}
}

// ingestText runs the text pipeline for one file and returns the chunk
// count.
func (d *Dispatcher) ingestText(ctx context.Context, path, collection string) (int, error) {
	text, err := d.loader.Load(ctx, path)
	if err != nil {
		return 0, err
	}
	return d.storeText(ctx, path, text, collection)
}

// ingestURL runs the text pipeline for a fetched web page.
func (d *Dispatcher) ingestURL(ctx context.Context, rawURL, collection string) (int, error) {
	text, err := d.loader.LoadURL(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	return d.storeText(ctx, rawURL, text, collection)
}

// storeText chunks, records, embeds, and persists one text source.
func (d *Dispatcher) storeText(ctx context.Context, source, text, collection string) (int, error) {
	chunks := d.splitter.Split(strings.TrimSpace(text))
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: %s produced no text", ErrParseFailure, source)
	}

	docID := uuid.NewString()
	if err := d.graph.UpsertDocument(ctx, graph.Document{
		Source:     source,
		Collection: collection,
		Chunks:     len(chunks),
		IngestedAt: time.Now(),
	}); err != nil {
		return 0, err
	}

	vecs, err := d.provider.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, err
	}

	items := make([]vecstore.Item, len(chunks))
	for i, chunk := range chunks {
		items[i] = vecstore.Item{
			Text:   chunk,
			Vector: vecs[i],
			Payload: map[string]string{
				"source":      sourceName(source),
				"document_id": docID,
				"type":        TypeTextChunk,
			},
		}
	}
	if err := d.gw.Add(ctx, collection, items); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// ingestCAD runs the CAD pipeline for one file and returns the part
// count.
func (d *Dispatcher) ingestCAD(ctx context.Context, path, collection string) (int, error) {
	parts, err := d.cad.Parse(ctx, path)
	if err != nil {
		return 0, err
	}

	texts := make([]string, len(parts))
	for i, part := range parts {
		if err := d.graph.UpsertPart(ctx, graph.Part{
			PartID:     part.PartID,
			Source:     path,
			Volume:     part.Volume,
			Properties: part.Properties,
		}); err != nil {
			return 0, err
		}
		texts[i] = part.Properties
	}

	vecs, err := d.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}

	items := make([]vecstore.Item, len(parts))
	for i, part := range parts {
		items[i] = vecstore.Item{
			Text:   part.Properties,
			Vector: vecs[i],
			Payload: map[string]string{
				"source":  sourceName(path),
				"part_id": part.PartID,
				"type":    TypeCADSummary,
			},
		}
	}
	if err := d.gw.Add(ctx, collection, items); err != nil {
		return 0, err
	}
	return len(parts), nil
}

// sourceName is the provenance tag stored on vector records: the base
// filename for paths, the full address for URLs.
func sourceName(source string) string {
	if isURL(source) {
		return source
	}
	return filepath.Base(source)
}
