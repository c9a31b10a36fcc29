// Package hybridsearch implements HybridSearch (C9): a parallel full-text
// plus vector-similarity search fused by reciprocal rank fusion, grounded
// on the teacher's errgroup fan-out idiom for running independent adapter
// calls concurrently (e.g. internal/bulk/bulk_manager.go's worker
// semaphore, generalized here to a fixed two-way fan-out via
// golang.org/x/sync/errgroup rather than a pool).
package hybridsearch

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"docsync/internal/apperrors"
	"docsync/internal/domain"
	"docsync/internal/embeddings"
	"docsync/internal/metadatastore"
	"docsync/internal/vectorstore"
)

const rrfK = 60

// Source identifies which retrieval path produced (or agreed on) a hit.
type Source string

const (
	SourceKeyword  Source = "keyword"
	SourceSemantic Source = "semantic"
	SourceFused    Source = "fused"
)

// Hit is one ranked search result.
type Hit struct {
	PointID    string   `json:"pointId"`
	DocID      string   `json:"docId"`
	ChunkIndex int      `json:"chunkIndex"`
	TitleChain []string `json:"titleChain"`
	Content    string   `json:"content"`
	Score      float64  `json:"score"`
	Source     Source   `json:"source"`
}

// Engine implements HybridSearch.
type Engine struct {
	meta     *metadatastore.Store
	vectors  vectorstore.VectorStore
	embedder embeddings.Provider
}

// New constructs an Engine from its collaborators.
func New(meta *metadatastore.Store, vectors vectorstore.VectorStore, embedder embeddings.Provider) *Engine {
	return &Engine{meta: meta, vectors: vectors, embedder: embedder}
}

// Search runs §4.9's algorithm: fetch keyword and vector hits in parallel,
// enrich and filter the vector side, and fuse both rankings with
// reciprocal rank fusion. If embedding fails, keyword-only results are
// returned (best-effort semantic side) rather than failing the whole
// search.
func (e *Engine) Search(ctx context.Context, collectionID, query string, limit int) ([]Hit, error) {
	if limit < 1 || limit > 100 {
		return nil, apperrors.ValidationField("limit", "must be between 1 and 100")
	}

	var keyword []metadatastore.FTSResult
	var vectorPoints []string
	var embedErr error

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		keyword, err = e.meta.FTSSearch(gctx, query, collectionID, limit)
		return err
	})
	group.Go(func() error {
		vectors, err := e.embedder.Embed(gctx, []string{query})
		if err != nil {
			embedErr = err
			return nil
		}
		if len(vectors) == 0 {
			return nil
		}
		hits, err := e.vectors.Search(gctx, collectionID, vectors[0], limit)
		if err != nil {
			return err
		}
		for _, h := range hits {
			vectorPoints = append(vectorPoints, h.PointID)
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if embedErr != nil || len(vectorPoints) == 0 {
		return keywordOnly(keyword, limit), nil
	}

	enriched, err := e.meta.GetChunks(ctx, vectorPoints, collectionID)
	if err != nil {
		return nil, err
	}
	byPointID := make(map[string]*domain.Chunk, len(enriched))
	for _, c := range enriched {
		byPointID[c.PointID] = c
	}

	var semantic []*domain.Chunk
	for _, pointID := range vectorPoints {
		if c, ok := byPointID[pointID]; ok {
			semantic = append(semantic, c)
		}
	}

	return fuse(keyword, semantic, limit), nil
}

func keywordOnly(keyword []metadatastore.FTSResult, limit int) []Hit {
	out := make([]Hit, 0, len(keyword))
	for _, r := range keyword {
		out = append(out, Hit{
			PointID: r.Chunk.PointID, DocID: r.Chunk.DocID, ChunkIndex: r.Chunk.ChunkIndex,
			TitleChain: r.Chunk.TitleChain, Content: r.Chunk.Content, Score: r.Rank, Source: SourceKeyword,
		})
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

type fusedEntry struct {
	chunk        *domain.Chunk
	score        float64
	keywordRank  int // 1-based; 0 means absent from the keyword list
	bothSources  bool
}

// fuse combines the keyword and semantic rankings via RRF: score =
// sum(1/(k+rank)) across whichever list(s) a pointId appears in, rank
// 1-based. Ties break by higher keyword rank (lower rank number first,
// absent-from-keyword last), then by pointId ascending.
func fuse(keyword []metadatastore.FTSResult, semantic []*domain.Chunk, limit int) []Hit {
	entries := make(map[string]*fusedEntry)

	for i, r := range keyword {
		rank := i + 1
		entries[r.Chunk.PointID] = &fusedEntry{
			chunk:       r.Chunk,
			score:       1.0 / float64(rrfK+rank),
			keywordRank: rank,
		}
	}
	for i, c := range semantic {
		rank := i + 1
		if e, ok := entries[c.PointID]; ok {
			e.score += 1.0 / float64(rrfK+rank)
			e.bothSources = true
		} else {
			entries[c.PointID] = &fusedEntry{
				chunk: c,
				score: 1.0 / float64(rrfK+rank),
			}
		}
	}

	ordered := make([]*fusedEntry, 0, len(entries))
	for _, e := range entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].score != ordered[j].score {
			return ordered[i].score > ordered[j].score
		}
		ri, rj := ordered[i].keywordRank, ordered[j].keywordRank
		if ri == 0 {
			ri = int(^uint(0) >> 1)
		}
		if rj == 0 {
			rj = int(^uint(0) >> 1)
		}
		if ri != rj {
			return ri < rj
		}
		return ordered[i].chunk.PointID < ordered[j].chunk.PointID
	})

	if len(ordered) > limit {
		ordered = ordered[:limit]
	}

	out := make([]Hit, 0, len(ordered))
	for _, e := range ordered {
		source := SourceSemantic
		if e.keywordRank > 0 {
			source = SourceKeyword
			if e.bothSources {
				source = SourceFused
			}
		}
		out = append(out, Hit{
			PointID: e.chunk.PointID, DocID: e.chunk.DocID, ChunkIndex: e.chunk.ChunkIndex,
			TitleChain: e.chunk.TitleChain, Content: e.chunk.Content, Score: e.score, Source: source,
		})
	}
	return out
}
