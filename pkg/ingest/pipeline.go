// Package ingest builds the vector index from a directory of markdown
// book content.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"bookassist/pkg/ai"
	"bookassist/pkg/chunker"
	"bookassist/pkg/domain"
	"bookassist/pkg/vectorindex"
)

// embedBatchSize bounds how many chunks go to the embedding API per call.
const embedBatchSize = 20

// Pipeline rebuilds a vector collection from markdown sources. A run is
// destructive: the collection is dropped and recreated before indexing.
type Pipeline struct {
	embedder ai.Embedder
	index    vectorindex.Gateway
	logger   *slog.Logger
}

func NewPipeline(embedder ai.Embedder, index vectorindex.Gateway, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{embedder: embedder, index: index, logger: logger}
}

// Run indexes every .md file under contentDir into the named collection.
// Files are visited in lexical path order so repeated runs produce the
// same points. Any batch failure aborts the run.
func (p *Pipeline) Run(ctx context.Context, contentDir, collection string, vectorSize int) error {
	chunks, err := p.collectChunks(contentDir)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("ingest: no markdown content found under %s", contentDir)
	}

	if err := p.index.EnsureCollection(ctx, collection, vectorSize); err != nil {
		return fmt.Errorf("ingest: prepare collection: %w", err)
	}

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		if err := p.indexBatch(ctx, collection, chunks[start:end], start); err != nil {
			return err
		}
		p.logger.Info("indexed batch",
			"collection", collection,
			"from", start,
			"to", end,
			"total", len(chunks))
	}

	p.logger.Info("ingest complete", "collection", collection, "chunks", len(chunks))
	return nil
}

func (p *Pipeline) collectChunks(contentDir string) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	err := filepath.WalkDir(contentDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		rel, err := filepath.Rel(contentDir, path)
		if err != nil {
			rel = d.Name()
		}
		fileChunks := chunker.Split(filepath.ToSlash(rel), string(content))
		p.logger.Info("chunked file", "file", rel, "chunks", len(fileChunks))
		chunks = append(chunks, fileChunks...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: walk %s: %w", contentDir, err)
	}
	return chunks, nil
}

func (p *Pipeline) indexBatch(ctx context.Context, collection string, batch []domain.Chunk, offset int) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("ingest: embed batch at %d: %w", offset, err)
	}

	points := make([]vectorindex.Point, len(batch))
	for i, c := range batch {
		points[i] = vectorindex.Point{
			ID:     ChunkID(c, offset+i),
			Vector: vectors[i],
			Payload: map[string]string{
				"text":    c.Text,
				"source":  c.SourceFile,
				"title":   c.Title,
				"heading": c.Heading,
			},
		}
	}

	if err := p.index.Upsert(ctx, collection, points); err != nil {
		return fmt.Errorf("ingest: upsert batch at %d: %w", offset, err)
	}
	return nil
}

// ChunkID derives a stable UUID from the chunk's source file and heading,
// so re-ingesting overwrites points in place instead of duplicating them.
// Chunks without a heading fall back to their global position.
func ChunkID(c domain.Chunk, globalIndex int) string {
	heading := c.Heading
	if heading == "" {
		heading = "intro_" + strconv.Itoa(globalIndex)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(c.SourceFile+"::"+heading)).String()
}
