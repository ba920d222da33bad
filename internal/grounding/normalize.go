package grounding

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Diagnostic messages surfaced when no grounding could be located.
const (
	NoteInvalidResponse = "Response is not valid JSON"
	NoteNoCandidates    = "No candidates in response"
	NoteNoMetadata      = "No grounding_metadata in candidate"
)

// Diagnostics is a free-form trace of what the normalizer saw. It is safe to
// display raw or to discard.
type Diagnostics map[string]any

// Normalized holds the chunk and support lists located in a response.
type Normalized struct {
	Chunks      []gjson.Result
	Supports    []gjson.Result
	Diagnostics Diagnostics
}

// RawGrounding is the unprocessed chunk and support JSON, kept for debug views.
type RawGrounding struct {
	Chunks   []json.RawMessage `json:"grounding_chunks"`
	Supports []json.RawMessage `json:"grounding_supports"`
}

// Raw returns the located chunks and supports as raw JSON.
func (n Normalized) Raw() RawGrounding {
	return RawGrounding{
		Chunks:   rawList(n.Chunks),
		Supports: rawList(n.Supports),
	}
}

func rawList(items []gjson.Result) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for _, it := range items {
		out = append(out, json.RawMessage(it.Raw))
	}
	return out
}

// Normalizer locates grounding data in a generateContent response.
type Normalizer struct {
	Describer Describer
}

// NewNormalizer returns a Normalizer that describes values by their JSON keys.
func NewNormalizer() *Normalizer {
	return &Normalizer{Describer: KeyDescriber{}}
}

var defaultNormalizer = NewNormalizer()

// Normalize locates grounding data using the default Normalizer.
func Normalize(raw []byte) Normalized {
	return defaultNormalizer.Normalize(raw)
}

// Normalize finds the chunk and support lists on the first candidate of a raw
// response. It never fails: anything missing yields empty lists and a note in
// the diagnostics.
func (n *Normalizer) Normalize(raw []byte) Normalized {
	out := Normalized{
		Chunks:      []gjson.Result{},
		Supports:    []gjson.Result{},
		Diagnostics: Diagnostics{},
	}
	d := n.describer()

	if !gjson.ValidBytes(raw) {
		out.Diagnostics["error"] = NoteInvalidResponse
		return out
	}
	root := gjson.ParseBytes(raw)

	candidates, ok := candidatesField(root)
	if !ok {
		out.Diagnostics["error"] = NoteNoCandidates
		return out
	}
	candidate := candidates.Array()[0]

	metadata, ok := metadataField(candidate)
	if !ok {
		out.Diagnostics["error"] = NoteNoMetadata
		out.Diagnostics["candidate_attrs"] = describe(d, candidate)
		return out
	}
	out.Diagnostics["metadata_attrs"] = describe(d, metadata)

	if chunks, ok := chunksField(metadata); ok {
		out.Chunks = chunks.Array()
	}
	if supports, ok := supportsField(metadata); ok {
		out.Supports = supports.Array()
	}

	if rm, ok := retrievalMetadataField(metadata); ok {
		out.Diagnostics["has_retrieval_metadata"] = true
		out.Diagnostics["retrieval_metadata_attrs"] = describe(d, rm)
	}

	out.Diagnostics["grounding_chunks_count"] = len(out.Chunks)
	out.Diagnostics["grounding_supports_count"] = len(out.Supports)
	for i, c := range out.Chunks {
		out.Diagnostics[fmt.Sprintf("chunk_%d_attrs", i)] = describe(d, c)
	}
	return out
}

func (n *Normalizer) describer() Describer {
	if n == nil || n.Describer == nil {
		return KeyDescriber{}
	}
	return n.Describer
}
