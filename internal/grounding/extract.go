package grounding

// Result is everything extracted from one response.
type Result struct {
	Citations   []Citation
	Branch      Branch
	Diagnostics Diagnostics
	Raw         RawGrounding
}

// Extract runs the full pipeline with the default Normalizer.
func Extract(raw []byte) Result {
	return defaultNormalizer.Extract(raw)
}

// Extract normalizes the response, resolves its chunks and assembles the
// deduplicated citations.
func (n *Normalizer) Extract(raw []byte) Result {
	norm := n.Normalize(raw)
	chunks := ResolveChunks(norm.Chunks)
	return Result{
		Citations:   Assemble(chunks, norm.Supports),
		Branch:      SelectBranch(chunks, norm.Supports),
		Diagnostics: norm.Diagnostics,
		Raw:         norm.Raw(),
	}
}
