package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// GenerateRequest is one grounded question.
type GenerateRequest struct {
	Model             string
	Question          string
	SystemInstruction string
	StoreNames        []string
}

// GenerateResponse keeps the raw JSON for grounding extraction alongside the
// decoded answer text.
type GenerateResponse struct {
	Text             string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
	Raw              []byte
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type fileSearchTool struct {
	FileSearchStoreNames []string `json:"fileSearchStoreNames"`
}

type tool struct {
	FileSearch *fileSearchTool `json:"fileSearch,omitempty"`
}

type generateContentRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
	Tools             []tool    `json:"tools,omitempty"`
}

// GenerateContent asks the model a question with the fileSearch tool bound to
// the given stores.
func (c *Client) GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("generate content: model is required")
	}

	body := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Question}}}},
	}
	if req.SystemInstruction != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.SystemInstruction}}}
	}
	if len(req.StoreNames) > 0 {
		body.Tools = []tool{{FileSearch: &fileSearchTool{FileSearchStoreNames: req.StoreNames}}}
	}

	model := strings.TrimPrefix(req.Model, "models/")
	raw, err := c.doJSON(ctx, http.MethodPost, c.apiURL("models/"+model+":generateContent"), body, nil)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	return &GenerateResponse{
		Text:             AnswerText(raw),
		FinishReason:     gjson.GetBytes(raw, "candidates.0.finishReason").String(),
		PromptTokens:     int(gjson.GetBytes(raw, "usageMetadata.promptTokenCount").Int()),
		CompletionTokens: int(gjson.GetBytes(raw, "usageMetadata.candidatesTokenCount").Int()),
		Raw:              raw,
	}, nil
}

// AnswerText concatenates the text parts of the first candidate, skipping
// thought parts.
func AnswerText(raw []byte) string {
	var sb strings.Builder
	gjson.GetBytes(raw, "candidates.0.content.parts").ForEach(func(_, p gjson.Result) bool {
		if p.Get("thought").Bool() {
			return true
		}
		sb.WriteString(p.Get("text").String())
		return true
	})
	return sb.String()
}
