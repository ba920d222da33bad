package grounding

import "github.com/tidwall/gjson"

// UnknownSource is the title given to chunks that carry no title field.
const UnknownSource = "Unknown Source"

// ChunkInfo is the resolved view of one retrieved chunk.
type ChunkInfo struct {
	Index int
	Title string
	URI   string
	Text  string

	// HasTitle is false when Title is the UnknownSource placeholder.
	HasTitle bool
}

// Citable reports whether the chunk can be cited on its own: its resolved
// title or text is non-empty. The UnknownSource placeholder counts as a title.
func (c ChunkInfo) Citable() bool {
	return c.Title != "" || c.Text != ""
}

// Citation converts the chunk into an output record.
func (c ChunkInfo) Citation() Citation {
	return Citation{Title: c.Title, SourceText: c.Text, URI: c.URI}
}

// ResolveChunk extracts title, URI and excerpt text from a raw chunk.
//
// Titles are looked up on the retrieved context first and on the chunk itself
// second. Text comes from the chunk's own text or content field only.
func ResolveChunk(chunk gjson.Result, index int) ChunkInfo {
	info := ChunkInfo{Index: index, Title: UnknownSource}

	ctx, hasCtx := contextField(chunk)

	title, ok := gjson.Result{}, false
	if hasCtx {
		title, ok = titleField(ctx)
		if uri, found := uriField(ctx); found {
			info.URI = uri.Str
		}
	}
	if !ok {
		title, ok = titleField(chunk)
	}
	if ok {
		info.Title = title.Str
		info.HasTitle = true
	}

	if text, found := textField(chunk); found {
		info.Text = text.Str
	}
	return info
}

// ResolveChunks resolves every chunk, keyed by its position.
func ResolveChunks(chunks []gjson.Result) []ChunkInfo {
	out := make([]ChunkInfo, len(chunks))
	for i, c := range chunks {
		out[i] = ResolveChunk(c, i)
	}
	return out
}
