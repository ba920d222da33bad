package grounding

import (
	"math"

	"github.com/tidwall/gjson"
)

// DedupPrefixRunes is how much of the source text takes part in the
// duplicate key.
const DedupPrefixRunes = 100

// Citation is one cited source passage.
type Citation struct {
	Title      string `json:"title"`
	SourceText string `json:"source_text"`
	URI        string `json:"uri"`
}

// Branch names the path Assemble took.
type Branch string

const (
	BranchNone     Branch = "none"
	BranchChunks   Branch = "chunks"
	BranchSupports Branch = "supports"
)

// SelectBranch picks the assembly path. Any support record disables the
// plain chunk path, even when it references nothing usable.
func SelectBranch(chunks []ChunkInfo, supports []gjson.Result) Branch {
	switch {
	case len(supports) > 0:
		return BranchSupports
	case len(chunks) > 0:
		return BranchChunks
	default:
		return BranchNone
	}
}

// Assemble builds the deduplicated citation list. Without supports every
// citable chunk is cited in chunk order; with supports only the chunks they
// reference are cited, in support order. Unknown indices are skipped.
func Assemble(chunks []ChunkInfo, supports []gjson.Result) []Citation {
	var cited []Citation

	switch SelectBranch(chunks, supports) {
	case BranchChunks:
		for _, c := range chunks {
			if c.Citable() {
				cited = append(cited, c.Citation())
			}
		}
	case BranchSupports:
		byIndex := make(map[int]ChunkInfo, len(chunks))
		for _, c := range chunks {
			byIndex[c.Index] = c
		}
		for _, s := range supports {
			for _, idx := range ChunkIndices(s) {
				if c, ok := byIndex[idx]; ok {
					cited = append(cited, c.Citation())
				}
			}
		}
	}

	return Dedup(cited)
}

// ChunkIndices returns the chunk indices a support references, in order.
// Entries that are not non-negative integers are dropped.
func ChunkIndices(support gjson.Result) []int {
	list, ok := chunkIndicesField(support)
	if !ok {
		return nil
	}
	var out []int
	for _, r := range list.Array() {
		if r.Type != gjson.Number || r.Num < 0 || r.Num != math.Trunc(r.Num) || r.Num > math.MaxInt32 {
			continue
		}
		out = append(out, int(r.Num))
	}
	return out
}

// CitationKey is the duplicate identity of a citation.
type CitationKey struct {
	Title  string
	Prefix string
}

// DedupKey is the duplicate policy: same title and same leading
// DedupPrefixRunes of source text.
func DedupKey(c Citation) CitationKey {
	return CitationKey{Title: c.Title, Prefix: prefixRunes(c.SourceText, DedupPrefixRunes)}
}

// Dedup keeps the first citation for each DedupKey, preserving order.
func Dedup(citations []Citation) []Citation {
	seen := make(map[CitationKey]bool, len(citations))
	out := make([]Citation, 0, len(citations))
	for _, c := range citations {
		key := DedupKey(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func prefixRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
