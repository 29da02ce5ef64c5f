package semantic

import (
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"semval/internal/domain"
)

// MaxContextChars is the serialized-size ceiling of a semantic model:
// 30980 tokens at 4 characters per token.
const MaxContextChars = 30980 * 4

// verifiedQueriesKey is excluded from the size measurement.
const verifiedQueriesKey = "verified_queries"

// CheckSize fails with *domain.SizeLimitError when the document, excluding its
// verified_queries block, exceeds MaxContextChars characters.
func CheckSize(text string) error {
	size := ContextSize(text)
	if size > MaxContextChars {
		return &domain.SizeLimitError{Size: size, Excess: size - MaxContextChars}
	}
	return nil
}

// ContextSize returns the number of characters of text that count against the
// ceiling. Documents that cannot be tokenized are measured whole.
func ContextSize(text string) int {
	total := utf8.RuneCountInString(text)
	start, end, ok := verifiedQueriesSpan(text)
	if !ok {
		return total
	}
	return total - utf8.RuneCountInString(text[start:end])
}

// verifiedQueriesSpan locates the byte range of the top-level verified_queries
// entry in a block-style root mapping. The range runs from the start of the
// key's line to the start of the next top-level key's line.
func verifiedQueriesSpan(text string) (start, end int, ok bool) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return 0, 0, false
	}
	if len(doc.Content) == 0 {
		return 0, 0, false
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode || root.Style&yaml.FlowStyle != 0 {
		return 0, 0, false
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		k := root.Content[i]
		if k.Value != verifiedQueriesKey {
			continue
		}
		lines := lineOffsets(text)
		if k.Line < 1 || k.Line > len(lines) {
			return 0, 0, false
		}
		start = lines[k.Line-1]
		end = len(text)
		if i+2 < len(root.Content) {
			next := root.Content[i+2]
			if next.Line > k.Line && next.Line <= len(lines) {
				end = lines[next.Line-1]
			}
		}
		return start, end, true
	}
	return 0, 0, false
}

// lineOffsets returns the byte offset at which each 1-based line starts.
func lineOffsets(text string) []int {
	offsets := []int{0}
	for i := 0; ; {
		j := strings.IndexByte(text[i:], '\n')
		if j < 0 {
			return offsets
		}
		i += j + 1
		offsets = append(offsets, i)
	}
}
