// Package idcodec provides the deterministic, content-addressable
// identifiers the rest of the pipeline relies on: document ids, point ids,
// and content hashes.
package idcodec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"docsync/internal/apperrors"
)

// DocID returns the lowercase hex SHA-256 digest of bytes. Identical content
// always produces the same docId, which is what makes re-uploads idempotent
// (P2).
func DocID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PointID returns the globally unique point id for chunk i of docID.
// i must be >= 0.
func PointID(docID string, i int) string {
	return docID + "#" + strconv.Itoa(i)
}

// ParsePointID splits a point id back into its docId and chunk index. It
// fails with a Validation *apperrors.AppError if s is not of the form
// "<docId>#<index>" with a non-negative decimal index.
func ParsePointID(s string) (docID string, i int, err error) {
	idx := strings.LastIndex(s, "#")
	if idx < 0 || idx == len(s)-1 {
		return "", 0, apperrors.Validation(fmt.Sprintf("malformed point id %q", s))
	}

	docID = s[:idx]
	if docID == "" {
		return "", 0, apperrors.Validation(fmt.Sprintf("malformed point id %q", s))
	}

	n, convErr := strconv.Atoi(s[idx+1:])
	if convErr != nil || n < 0 {
		return "", 0, apperrors.Validation(fmt.Sprintf("malformed point id %q", s))
	}

	return docID, n, nil
}

// ContentHash returns the SHA-256 digest of text after Unicode NFC
// normalization and newline normalization to LF. Two chunks with
// byte-different but semantically identical text (different line endings,
// different Unicode decomposition) hash identically.
func ContentHash(text string) string {
	normalized := normalizeNewlines(text)
	normalized = norm.NFC.String(normalized)

	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return text
}
