package metadatastore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"docsync/internal/apperrors"
	"docsync/internal/domain"
)

// FTSResult is one full-text hit, ranked by postgres's ts_rank.
type FTSResult struct {
	Chunk *domain.Chunk
	Rank  float64
}

// FTSSearch runs query through plainto_tsquery against the generated fts
// column and returns results ordered by ts_rank descending, excluding
// soft-deleted documents. query is passed through unchanged; the store is
// the one that tokenizes it (§4.3). An empty, all-whitespace query is
// rejected with a Validation error rather than silently matching nothing.
func (s *Store) FTSSearch(ctx context.Context, query, collectionID string, limit int) ([]FTSResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.Validation("search query cannot be empty")
	}

	const q = `
		SELECT c.point_id, c.doc_id, c.collection_id, c.chunk_index, c.title_chain,
		       c.content_hash, c.content, ts_rank(c.fts, plainto_tsquery('english', $1)) AS rank
		FROM chunks c
		JOIN documents d ON d.doc_id = c.doc_id
		WHERE c.collection_id = $2
		  AND NOT d.is_deleted
		  AND c.fts @@ plainto_tsquery('english', $1)
		ORDER BY rank DESC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, q, query, collectionID, limit)
	if err != nil {
		return nil, fmt.Errorf("metadatastore: fts search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []FTSResult
	for rows.Next() {
		var c domain.Chunk
		var titleChainJSON []byte
		var rank float64
		if err := rows.Scan(&c.PointID, &c.DocID, &c.CollectionID, &c.ChunkIndex, &titleChainJSON, &c.ContentHash, &c.Content, &rank); err != nil {
			return nil, fmt.Errorf("metadatastore: scan fts result: %w", err)
		}
		if len(titleChainJSON) > 0 {
			if err := json.Unmarshal(titleChainJSON, &c.TitleChain); err != nil {
				return nil, fmt.Errorf("metadatastore: unmarshal title chain: %w", err)
			}
		}
		out = append(out, FTSResult{Chunk: &c, Rank: rank})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadatastore: fts search: %w", err)
	}
	return out, nil
}
