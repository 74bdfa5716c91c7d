package openai

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sie-engine/siechat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAPI records the last request of each kind and returns canned responses.
type stubAPI struct {
	embeddingReq  openai.EmbeddingRequest
	embeddingResp openai.EmbeddingResponse
	embeddingErr  error

	chatReq  openai.ChatCompletionRequest
	chatResp openai.ChatCompletionResponse
	chatErr  error
}

func (s *stubAPI) CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	s.embeddingReq = req.(openai.EmbeddingRequest)
	return s.embeddingResp, s.embeddingErr
}

func (s *stubAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.chatReq = req
	return s.chatResp, s.chatErr
}

func TestClient_Embed_Success(t *testing.T) {
	vector := make([]float32, EmbeddingDimensions)
	for i := range vector {
		vector[i] = float32(i) * 0.001
	}
	api := &stubAPI{
		embeddingResp: openai.EmbeddingResponse{
			Data: []openai.Embedding{{Embedding: vector}},
		},
	}
	client := NewClientWithAPI(api, "")

	got, err := client.Embed(context.Background(), "what is pgvector?")

	require.NoError(t, err)
	assert.Equal(t, vector, got)
	assert.Equal(t, []string{"what is pgvector?"}, api.embeddingReq.Input)
	assert.Equal(t, EmbeddingModel, api.embeddingReq.Model)
	assert.Equal(t, EmbeddingDimensions, api.embeddingReq.Dimensions)
}

func TestClient_Embed_EmptyText(t *testing.T) {
	client := NewClientWithAPI(&stubAPI{}, "")

	_, err := client.Embed(context.Background(), "")

	assert.Equal(t, domain.ErrEmptyQuery, err)
}

func TestClient_Embed_APIError(t *testing.T) {
	api := &stubAPI{embeddingErr: errors.New("rate limit exceeded")}
	client := NewClientWithAPI(api, "")

	_, err := client.Embed(context.Background(), "test")

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeEmbedding, domainErr.Code)
}

func TestClient_Embed_EmptyResponse(t *testing.T) {
	api := &stubAPI{embeddingResp: openai.EmbeddingResponse{}}
	client := NewClientWithAPI(api, "")

	_, err := client.Embed(context.Background(), "test")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoEmbedding)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeEmbedding, domainErr.Code)
}

func TestClient_Generate_Success(t *testing.T) {
	api := &stubAPI{
		chatResp: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "The answer is 42."}},
			},
		},
	}
	client := NewClientWithAPI(api, "gpt-4o")

	answer, err := client.Generate(context.Background(), "You are helpful.", "Context:\n...\n\nQuestion: why?")

	require.NoError(t, err)
	assert.Equal(t, "The answer is 42.", answer)
	assert.Equal(t, "gpt-4o", api.chatReq.Model)
	assert.Equal(t, MaxAnswerTokens, api.chatReq.MaxTokens)
	require.Len(t, api.chatReq.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, api.chatReq.Messages[0].Role)
	assert.Equal(t, "You are helpful.", api.chatReq.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, api.chatReq.Messages[1].Role)
	assert.Equal(t, "Context:\n...\n\nQuestion: why?", api.chatReq.Messages[1].Content)
}

func TestClient_Generate_DefaultModel(t *testing.T) {
	api := &stubAPI{
		chatResp: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "ok"}},
			},
		},
	}
	client := NewClientWithAPI(api, "")

	_, err := client.Generate(context.Background(), "sys", "user")

	require.NoError(t, err)
	assert.Equal(t, DefaultChatModel, api.chatReq.Model)
}

func TestClient_Generate_APIError(t *testing.T) {
	api := &stubAPI{chatErr: errors.New("server overloaded")}
	client := NewClientWithAPI(api, "")

	_, err := client.Generate(context.Background(), "sys", "user")

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeGeneration, domainErr.Code)
}

func TestClient_Generate_EmptyResponse(t *testing.T) {
	api := &stubAPI{chatResp: openai.ChatCompletionResponse{}}
	client := NewClientWithAPI(api, "")

	_, err := client.Generate(context.Background(), "sys", "user")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoAnswer)
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key", "")

	assert.NotNil(t, client)
	assert.NotNil(t, client.api)
	assert.Equal(t, DefaultChatModel, client.chatModel)
}
