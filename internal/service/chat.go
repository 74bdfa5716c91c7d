package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sie-engine/siechat/internal/domain"
)

const (
	// RelevanceThreshold is the minimum similarity score for a retrieved
	// match to contribute context. Matches below it are dropped.
	RelevanceThreshold = 0.6
	// SnippetMaxChars caps how much of a match's text makes it into the
	// prompt. Plain byte truncation, no word-boundary awareness.
	SnippetMaxChars = 800
	// NoContextSentinel stands in for the context block when nothing
	// relevant was retrieved.
	NoContextSentinel = "No relevant context found in the knowledge base."
)

// DefaultSystemPrompt is used when no prompt is configured.
const DefaultSystemPrompt = "You are a helpful assistant for a knowledge base. " +
	"Answer the question using only the provided context. " +
	"If the context does not contain the answer, say that you don't know. " +
	"Cite the source URLs from the context when they support your answer."

// Embedder converts text into a fixed-dimensionality vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever fetches the nearest stored neighbors for a vector.
type Retriever interface {
	Query(ctx context.Context, vector []float32) ([]domain.RetrievalMatch, error)
}

// Generator produces an answer from a system prompt and a user message.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// ChatSettings carries the provider configuration the pipeline depends on.
// The credential values are only inspected for presence; the actual clients
// are injected separately so tests can count calls.
type ChatSettings struct {
	OpenAIAPIKey   string
	PineconeAPIKey string
	PineconeHost   string
	SystemPrompt   string
}

// ChatService runs the retrieval-augmented chat pipeline:
// embed the query, retrieve neighbors, build a context block, generate an
// answer. Strictly sequential; the first failing stage aborts the run.
type ChatService struct {
	settings  ChatSettings
	embedder  Embedder
	retriever Retriever
	generator Generator
}

// NewChatService creates a ChatService.
func NewChatService(settings ChatSettings, embedder Embedder, retriever Retriever, generator Generator) *ChatService {
	return &ChatService{
		settings:  settings,
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
	}
}

// Ask answers a user query from the knowledge base. Returns ErrNotConfigured
// before any outbound call when provider settings are incomplete. Stage
// errors propagate untouched; there is no retry and no partial answer.
func (s *ChatService) Ask(ctx context.Context, query string) (string, error) {
	query = domain.NormalizeQuery(query)
	if query == "" {
		return "", domain.ErrEmptyQuery
	}

	if s.settings.OpenAIAPIKey == "" || s.settings.PineconeAPIKey == "" || s.settings.PineconeHost == "" {
		return "", domain.ErrNotConfigured
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return "", err
	}

	matches, err := s.retriever.Query(ctx, vector)
	if err != nil {
		return "", err
	}

	contextBlock := BuildContext(matches)

	prompt := s.settings.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}

	answer, err := s.generator.Generate(ctx, prompt, BuildUserMessage(contextBlock, query))
	if err != nil {
		return "", err
	}

	return answer, nil
}

// BuildContext turns retrieval matches into a single prompt-ready text
// block. Matches below RelevanceThreshold are dropped; text is truncated to
// SnippetMaxChars; matches with no text after truncation contribute nothing.
// Always succeeds; an empty result becomes NoContextSentinel.
func BuildContext(matches []domain.RetrievalMatch) string {
	var b strings.Builder
	for _, m := range matches {
		if m.Score < RelevanceThreshold {
			continue
		}
		text := m.Text()
		if len(text) > SnippetMaxChars {
			text = text[:SnippetMaxChars]
		}
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n%s\n[Source: %s]\n\n", m.Title(), text, m.URL())
	}
	if b.Len() == 0 {
		return NoContextSentinel
	}
	return b.String()
}

// BuildUserMessage templates the user-role message sent to the generator.
func BuildUserMessage(contextBlock, query string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, query)
}
