package openai

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sie-engine/siechat/internal/domain"
)

const (
	// EmbeddingModel is the model used for query and document embeddings.
	EmbeddingModel = openai.SmallEmbedding3
	// EmbeddingDimensions is the reduced dimensionality requested from
	// text-embedding-3-small. The vector index is built with the same value.
	EmbeddingDimensions = 512

	// DefaultChatModel answers chat queries unless overridden in config.
	DefaultChatModel = "gpt-4o-mini"
	// MaxAnswerTokens bounds generated answer length.
	MaxAnswerTokens = 800

	embedTimeout    = 15 * time.Second
	generateTimeout = 30 * time.Second
)

var (
	// ErrNoEmbedding is returned when the provider response carries no vector.
	ErrNoEmbedding = errors.New("no embedding data returned")
	// ErrNoAnswer is returned when the provider response carries no message content.
	ErrNoAnswer = errors.New("no answer content returned")
)

// API is the slice of the OpenAI client the wrapper uses, extracted so tests
// can substitute a stub.
type API interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client wraps the OpenAI API for the two calls the pipeline makes.
type Client struct {
	api       API
	chatModel string
}

// NewClient creates a new OpenAI client.
func NewClient(apiKey, chatModel string) *Client {
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	return &Client{
		api:       openai.NewClient(apiKey),
		chatModel: chatModel,
	}
}

// NewClientWithAPI creates a client backed by a custom API implementation.
func NewClientWithAPI(api API, chatModel string) *Client {
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	return &Client{api: api, chatModel: chatModel}
}

// Embed converts text into a 512-dimensional vector. A single call, no
// retries; any failure surfaces as an EmbeddingError.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, domain.ErrEmptyQuery
	}

	ctx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      EmbeddingModel,
		Dimensions: EmbeddingDimensions,
	})
	if err != nil {
		return nil, domain.NewEmbeddingError("embedding request failed", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, domain.NewEmbeddingError("embedding response is empty", ErrNoEmbedding)
	}

	return resp.Data[0].Embedding, nil
}

// Generate asks the chat model for an answer given a system prompt and a
// user message. A single call, no retries; any failure surfaces as a
// GenerationError.
func (c *Client) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		MaxTokens: MaxAnswerTokens,
	})
	if err != nil {
		return "", domain.NewGenerationError("chat completion request failed", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", domain.NewGenerationError("chat completion response is empty", ErrNoAnswer)
	}

	return resp.Choices[0].Message.Content, nil
}
