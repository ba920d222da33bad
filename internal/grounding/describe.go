package grounding

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Describer lists the attribute names present on a value. It only feeds
// diagnostics and must never influence which citations are produced.
type Describer interface {
	Describe(v gjson.Result) []string
}

// KeyDescriber lists the public keys of a JSON object in sorted order.
// Non-objects have no attributes.
type KeyDescriber struct{}

// Describe implements Describer.
func (KeyDescriber) Describe(v gjson.Result) []string {
	if !v.IsObject() {
		return []string{}
	}
	keys := make([]string, 0)
	v.ForEach(func(k, _ gjson.Result) bool {
		if !strings.HasPrefix(k.String(), "_") {
			keys = append(keys, k.String())
		}
		return true
	})
	sort.Strings(keys)
	return keys
}

// describe runs d and swallows any panic: diagnostics are advisory.
func describe(d Describer, v gjson.Result) (attrs []string) {
	defer func() {
		if recover() != nil {
			attrs = []string{}
		}
	}()
	attrs = d.Describe(v)
	if attrs == nil {
		attrs = []string{}
	}
	return attrs
}
