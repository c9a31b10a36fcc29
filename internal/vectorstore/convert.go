package vectorstore

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"docsync/internal/domain"
)

// pointIDNamespace seeds the deterministic UUID derivation below. Qdrant's
// PointId wire type only accepts a uint64 or a string that parses as a
// UUID (qdrant.PointId_Uuid) - it does not accept an arbitrary string. Our
// content-addressable pointId ("<sha256hex>#<chunkIndex>") is neither, so
// each pointId is mapped to a stable UUIDv5 derived from it via
// uuid.NewSHA1, and the real pointId string travels in the point's payload
// under payloadKeyPointID for lookups and reconciliation. This mirrors the
// teacher's stringToPointID (internal/storage/qdrant.go), which assumes its
// own IDs are already UUID-shaped; ours are not, hence the extra mapping
// layer.
var pointIDNamespace = uuid.MustParse("6f7c6a9e-2b7b-4c2a-9a3e-1c6a5b6f9d1a")

const (
	payloadKeyPointID     = "point_id"
	payloadKeyDocID       = "doc_id"
	payloadKeyCollection  = "collection_id"
	payloadKeyChunkIndex  = "chunk_index"
	payloadKeyTitleChain  = "title_chain"
	payloadKeyContentHash = "content_hash"
)

func toQdrantID(pointID string) *qdrant.PointId {
	id := uuid.NewSHA1(pointIDNamespace, []byte(pointID))
	return &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: id.String()}}
}

// pointToQdrant converts a domain.VectorPoint into a Qdrant PointStruct,
// carrying every routing field the adapter needs back out of the payload.
func pointToQdrant(p domain.VectorPoint) (*qdrant.PointStruct, error) {
	titleChainJSON, err := json.Marshal(p.TitleChain)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: marshal title chain: %w", err)
	}

	payload := map[string]*qdrant.Value{
		payloadKeyPointID:     strValue(p.PointID),
		payloadKeyDocID:       strValue(p.DocID),
		payloadKeyCollection:  strValue(p.Collection),
		payloadKeyChunkIndex:  intValue(int64(p.ChunkIndex)),
		payloadKeyTitleChain:  strValue(string(titleChainJSON)),
		payloadKeyContentHash: strValue(p.ContentHash),
	}

	return &qdrant.PointStruct{
		Id:      toQdrantID(p.PointID),
		Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: p.Vector}}},
		Payload: payload,
	}, nil
}

func strValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func intValue(i int64) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: i}}
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

// collectionFilter scopes every multi-tenant operation to one logical
// docsync collection living inside the single physical Qdrant collection,
// replicating the teacher's buildFilter-by-repository pattern.
func collectionFilter(collectionID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{matchKeyword(payloadKeyCollection, collectionID)},
	}
}

func docFilter(collectionID, docID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			matchKeyword(payloadKeyCollection, collectionID),
			matchKeyword(payloadKeyDocID, docID),
		},
	}
}

func matchKeyword(key, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key:   key,
				Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: value}},
			},
		},
	}
}
