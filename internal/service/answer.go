// Package service answers questions against a File Search store.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jharjadi/guides-search/internal/gemini"
	"github.com/jharjadi/guides-search/internal/grounding"
)

// ErrEmptyQuestion is returned for blank questions.
var ErrEmptyQuestion = errors.New("question is required")

// Generator is the grounded generate call.
type Generator interface {
	GenerateContent(ctx context.Context, req gemini.GenerateRequest) (*gemini.GenerateResponse, error)
}

// Answer is one grounded reply.
type Answer struct {
	Text      string
	Citations []grounding.Citation
	Abstained bool

	Grounding        grounding.Result
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
}

// AnswerService asks questions and extracts citations.
type AnswerService struct {
	gen         Generator
	model       string
	instruction string
	normalizer  *grounding.Normalizer
}

// NewAnswerService creates an AnswerService. An empty systemInstruction
// selects DefaultSystemInstruction.
func NewAnswerService(gen Generator, model, systemInstruction string) *AnswerService {
	return &AnswerService{
		gen:         gen,
		model:       model,
		instruction: SystemInstruction(systemInstruction),
		normalizer:  grounding.NewNormalizer(),
	}
}

// Model returns the generation model name.
func (s *AnswerService) Model() string {
	return s.model
}

// Ask sends one question to the model with the store bound as its only
// retrieval source. Grounding problems never fail the call; only the remote
// call itself can.
func (s *AnswerService) Ask(ctx context.Context, storeName, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	start := time.Now()
	resp, err := s.gen.GenerateContent(ctx, gemini.GenerateRequest{
		Model:             s.model,
		Question:          question,
		SystemInstruction: s.instruction,
		StoreNames:        []string{storeName},
	})
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}

	res := s.normalizer.Extract(resp.Raw)
	ans := &Answer{
		Text:             resp.Text,
		Citations:        res.Citations,
		Grounding:        res,
		FinishReason:     resp.FinishReason,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		Latency:          latency,
	}
	if IsAbstention(resp.Text) {
		ans.Abstained = true
		if strings.TrimSpace(resp.Text) == "" {
			ans.Text = AbstainMessage
		}
	}
	return ans, nil
}
