package syncfsm

import (
	"context"
	"fmt"

	"docsync/internal/apperrors"
	"docsync/internal/domain"
	"docsync/internal/idcodec"
	"docsync/internal/splitter"
)

const chunkPageSize = 500

// split runs MarkdownSplitter over the document's source bytes and persists
// the resulting chunk rows (and their generated FTS column) via
// MetadataStore, matching §4.7's "writes chunk rows + FTS via MetadataStore
// inside a single transaction" step. It is only invoked when no chunk rows
// exist yet for the document — SPLIT_OK/EMBED_OK documents resuming after a
// crash already have their chunk rows in place.
func (m *Machine) split(ctx context.Context, doc *domain.Document) ([]*domain.Chunk, error) {
	raw, err := m.source.Read(ctx, doc.SourceKey)
	if err != nil {
		return nil, fmt.Errorf("syncfsm: read source bytes: %w", err)
	}

	pieces := splitter.Split(string(raw), doc.Name)
	chunks := make([]*domain.Chunk, 0, len(pieces))
	for i, p := range pieces {
		chunks = append(chunks, &domain.Chunk{
			PointID:      idcodec.PointID(doc.DocID, i),
			DocID:        doc.DocID,
			CollectionID: doc.CollectionID,
			ChunkIndex:   i,
			TitleChain:   p.TitleChain,
			ContentHash:  idcodec.ContentHash(p.Content),
			Content:      p.Content,
		})
	}

	if err := m.meta.InsertChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("syncfsm: persist split chunks: %w", err)
	}
	return chunks, nil
}

// fetchChunks loads every persisted chunk for a document, paging through
// MetadataStore.ListChunks so the result is complete regardless of how many
// chunks the document split into.
func (m *Machine) fetchChunks(ctx context.Context, docID string) ([]*domain.Chunk, error) {
	var all []*domain.Chunk
	for page := 1; ; page++ {
		chunks, total, err := m.meta.ListChunks(ctx, docID, page, chunkPageSize)
		if err != nil {
			return nil, fmt.Errorf("syncfsm: list chunks: %w", err)
		}
		all = append(all, chunks...)
		if len(all) >= total || len(chunks) == 0 {
			break
		}
	}
	return all, nil
}

// embed batches the document's chunk contents to the EmbeddingProvider and
// returns the resulting vector points, held only in memory until Upsert
// durably commits them — a crash between EMBED_OK and SYNCED loses nothing
// but the computed vectors, which the resumed attempt simply recomputes.
func (m *Machine) embed(ctx context.Context, chunks []*domain.Chunk) ([]domain.VectorPoint, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("syncfsm: embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, apperrors.Integrity(fmt.Sprintf("embedding count %d does not match chunk count %d", len(vectors), len(chunks)))
	}

	points := make([]domain.VectorPoint, len(chunks))
	for i, c := range chunks {
		points[i] = domain.VectorPoint{
			PointID:     c.PointID,
			Vector:      vectors[i],
			DocID:       c.DocID,
			Collection:  c.CollectionID,
			ChunkIndex:  c.ChunkIndex,
			TitleChain:  c.TitleChain,
			ContentHash: c.ContentHash,
		}
	}
	return points, nil
}

// upsert durably commits the embedded vector points via TransactionCoordinator.
func (m *Machine) upsert(ctx context.Context, collectionID string, points []domain.VectorPoint) error {
	if err := m.coord.UpsertVectors(ctx, collectionID, points); err != nil {
		return fmt.Errorf("syncfsm: upsert vectors: %w", err)
	}
	return nil
}
