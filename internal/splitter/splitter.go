// Package splitter implements the Markdown heading-based chunker (C2):
// it turns a document's raw text into an ordered sequence of chunks, each
// carrying the chain of enclosing heading titles from root to leaf.
package splitter

import (
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Chunk is one piece of a split document, before any id or hash is
// assigned — that is the caller's job (see internal/idcodec).
type Chunk struct {
	Content    string
	TitleChain []string
}

var parser = goldmark.New()

// Split divides text into heading-delimited chunks. fileName, if non-empty,
// is used only as its base name and is prefixed onto every chunk's title
// chain; pass "" to omit the prefix.
//
// The algorithm normalizes line endings, walks the Markdown AST to find
// heading boundaries (both ATX "# Title" and Setext "Title\n===="
// headings, which goldmark's default parser both represent as
// *ast.Heading nodes), and slices the *original* normalized text between
// consecutive heading starts — so the concatenation of chunk bodies
// reproduces the normalized input up to whitespace trimming at chunk
// boundaries (P5). If the document has no headings at all, the whole text
// becomes a single chunk.
func Split(rawText string, fileName string) []Chunk {
	source := normalizeNewlines(rawText)
	if strings.TrimSpace(source) == "" {
		return nil
	}

	sourceBytes := []byte(source)
	reader := text.NewReader(sourceBytes)
	doc := parser.Parser().Parse(reader)

	var prefix []string
	if fileName != "" {
		prefix = []string{filepath.Base(fileName)}
	}

	type boundary struct {
		offset int
		title  string
		level  int
	}
	var boundaries []boundary

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}

		lines := heading.Lines()
		start := len(sourceBytes)
		if lines.Len() > 0 {
			start = lines.At(0).Start
			// An ATX heading's text segment begins after its "#" marker;
			// move back to the start of the line so the marker stays in
			// the heading's own chunk.
			for start > 0 && sourceBytes[start-1] != '\n' {
				start--
			}
		}

		boundaries = append(boundaries, boundary{
			offset: start,
			title:  headingText(heading, sourceBytes),
			level:  heading.Level,
		})
		return ast.WalkSkipChildren, nil
	})

	if len(boundaries) == 0 {
		return []Chunk{{
			Content:    strings.TrimSpace(source),
			TitleChain: append([]string{}, prefix...),
		}}
	}

	var chunks []Chunk
	stack := make([]string, 0, 8)

	// Leading content before the first heading, if any.
	if boundaries[0].offset > 0 {
		leading := strings.TrimSpace(source[:boundaries[0].offset])
		if leading != "" {
			chunks = append(chunks, Chunk{
				Content:    leading,
				TitleChain: append([]string{}, prefix...),
			})
		}
	}

	for i, b := range boundaries {
		if b.level >= 1 {
			if b.level-1 < len(stack) {
				stack = stack[:b.level-1]
			}
			stack = append(stack, b.title)
		}

		end := len(sourceBytes)
		if i+1 < len(boundaries) {
			end = boundaries[i+1].offset
		}

		content := strings.TrimSpace(source[b.offset:end])
		if content == "" {
			continue
		}

		titleChain := make([]string, 0, len(prefix)+len(stack))
		titleChain = append(titleChain, prefix...)
		titleChain = append(titleChain, stack...)

		chunks = append(chunks, Chunk{
			Content:    content,
			TitleChain: titleChain,
		})
	}

	return chunks
}

func headingText(heading *ast.Heading, source []byte) string {
	var sb strings.Builder
	for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
		if textNode, ok := child.(*ast.Text); ok {
			sb.Write(textNode.Segment.Value(source))
		}
	}
	return strings.TrimSpace(sb.String())
}

func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return text
}
