// Package grounding recovers citations from the grounding metadata that the
// Gemini generateContent endpoint attaches to an answer.
//
// The metadata shape drifts between API versions and client libraries: field
// names come in snake_case or camelCase, lists may be missing or empty, and
// titles live either on the retrieved context or on the chunk itself. Every
// lookup therefore goes through an ordered list of Accessors, and every missing
// piece degrades to an empty value instead of an error.
package grounding

import "github.com/tidwall/gjson"

// Accessor looks up one spelling of a field on a JSON value. It reports false
// when the field is absent or falsy.
type Accessor func(v gjson.Result) (gjson.Result, bool)

// FirstOf composes accessors in priority order. The first one that reports a
// value wins; later accessors are never consulted and values are never merged.
func FirstOf(accessors ...Accessor) Accessor {
	return func(v gjson.Result) (gjson.Result, bool) {
		for _, get := range accessors {
			if r, ok := get(v); ok {
				return r, true
			}
		}
		return gjson.Result{}, false
	}
}

// Field reads a key of an object and accepts any truthy value.
func Field(name string) Accessor {
	return fieldWhere(name, truthy)
}

// StringField reads a key of an object and accepts only a non-empty string.
func StringField(name string) Accessor {
	return fieldWhere(name, func(r gjson.Result) bool {
		return r.Type == gjson.String && r.Str != ""
	})
}

// ArrayField reads a key of an object and accepts only a non-empty array.
func ArrayField(name string) Accessor {
	return fieldWhere(name, func(r gjson.Result) bool {
		return r.IsArray() && truthy(r)
	})
}

// ObjectField reads a key of an object and accepts only a non-empty object.
func ObjectField(name string) Accessor {
	return fieldWhere(name, func(r gjson.Result) bool {
		return r.IsObject() && truthy(r)
	})
}

func fieldWhere(name string, accept func(gjson.Result) bool) Accessor {
	return func(v gjson.Result) (gjson.Result, bool) {
		if !v.IsObject() {
			return gjson.Result{}, false
		}
		r := v.Get(name)
		if !accept(r) {
			return gjson.Result{}, false
		}
		return r, true
	}
}

// truthy mirrors the usual "empty means absent" rule: null, false, 0, "",
// [] and {} are all treated as missing.
func truthy(r gjson.Result) bool {
	if !r.Exists() {
		return false
	}
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	}
	found := false
	r.ForEach(func(_, _ gjson.Result) bool {
		found = true
		return false
	})
	return found
}

// Field spellings, in priority order.
var (
	candidatesField = ArrayField("candidates")

	metadataField = FirstOf(
		ObjectField("grounding_metadata"),
		ObjectField("groundingMetadata"),
	)
	retrievalMetadataField = FirstOf(
		ObjectField("retrieval_metadata"),
		ObjectField("retrievalMetadata"),
	)

	chunksField = FirstOf(
		ArrayField("grounding_chunks"),
		ArrayField("groundingChunks"),
	)
	supportsField = FirstOf(
		ArrayField("grounding_supports"),
		ArrayField("groundingSupports"),
	)

	contextField = FirstOf(
		ObjectField("retrieved_context"),
		ObjectField("retrievedContext"),
	)
	titleField = FirstOf(
		StringField("title"),
		StringField("displayName"),
		StringField("display_name"),
	)
	uriField  = StringField("uri")
	textField = FirstOf(
		StringField("text"),
		StringField("content"),
	)

	chunkIndicesField = FirstOf(
		ArrayField("grounding_chunk_indices"),
		ArrayField("groundingChunkIndices"),
	)
)
