package handler

import (
	"net/http"

	"github.com/jharjadi/guides-search/internal/access"
	"github.com/jharjadi/guides-search/internal/descriptor"
	storemw "github.com/jharjadi/guides-search/internal/middleware"
	"github.com/jharjadi/guides-search/internal/model"
)

// ModeDocumentationOnly is the only answering mode: replies come from the
// guides or not at all.
const ModeDocumentationOnly = "documentation-only"

// GuidesHandler serves the sidebar information for the bound store.
type GuidesHandler struct {
	configured       *descriptor.Descriptor
	resolver         *access.Resolver
	model            string
	exampleQuestions []string
}

// NewGuidesHandler creates a new GuidesHandler. configured may be nil.
func NewGuidesHandler(configured *descriptor.Descriptor, resolver *access.Resolver, model string, exampleQuestions []string) *GuidesHandler {
	return &GuidesHandler{
		configured:       configured,
		resolver:         resolver,
		model:            model,
		exampleQuestions: exampleQuestions,
	}
}

// Get handles GET /v1/guides.
func (h *GuidesHandler) Get(w http.ResponseWriter, r *http.Request) {
	storeName := storemw.StoreNameFromContext(r.Context())
	if storeName == "" {
		writeError(w, http.StatusUnauthorized, "access_required", "no store is bound to this request")
		return
	}

	d := h.configured
	if d == nil || d.StoreName != storeName {
		d = h.resolver.ForStore(storeName)
	}

	docs := d.DisplayNames()
	if docs == nil {
		docs = []string{}
	}
	examples := h.exampleQuestions
	if examples == nil {
		examples = []string{}
	}
	writeJSON(w, http.StatusOK, model.GuidesResponse{
		StoreName:        d.StoreName,
		StoreDisplayName: d.StoreDisplayName,
		Documents:        docs,
		Model:            h.model,
		Mode:             ModeDocumentationOnly,
		ExampleQuestions: examples,
	})
}
