//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sie-engine/siechat/internal/api/handlers"
	"github.com/sie-engine/siechat/internal/repository"
	"github.com/sie-engine/siechat/internal/server"
	"github.com/sie-engine/siechat/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestE2E_ChatPipeline runs the full embed, retrieve, generate flow against
// the fake providers.
func TestE2E_ChatPipeline(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("answer built from retrieved context", func(t *testing.T) {
		env.Pinecone.SetMatches([]FakeMatch{
			{ID: "doc-1-0", Score: 0.92, Metadata: map[string]string{
				"title": "Install Guide",
				"text":  "Run the installer and follow the prompts.",
				"url":   "https://kb.example.com/install",
			}},
			{ID: "doc-2-0", Score: 0.3, Metadata: map[string]string{
				"title": "Unrelated",
				"text":  "Low relevance content.",
				"url":   "https://kb.example.com/other",
			}},
		})
		env.OpenAI.SetAnswer("Run the installer.")

		resp, err := env.Post("/chat", map[string]string{"query": "How do I install?"}, "")
		require.NoError(t, err)

		var chat struct {
			Response string `json:"response"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &chat))
		assert.Equal(t, "Run the installer.", chat.Response)

		// The prompt carries the high-scoring match and drops the low one.
		req := env.OpenAI.LastChatRequest()
		require.NotNil(t, req)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		userMsg := req.Messages[1].Content
		assert.Contains(t, userMsg, "## Install Guide\nRun the installer and follow the prompts.\n[Source: https://kb.example.com/install]")
		assert.NotContains(t, userMsg, "Unrelated")
		assert.True(t, strings.HasPrefix(userMsg, "Context:\n"))
		assert.Contains(t, userMsg, "Question: How do I install?")
	})

	t.Run("no matches still answers with sentinel context", func(t *testing.T) {
		env.Pinecone.SetMatches(nil)
		env.OpenAI.SetAnswer("I don't know.")

		resp, err := env.Post("/chat", map[string]string{"query": "Anything?"}, "")
		require.NoError(t, err)

		var chat struct {
			Response string `json:"response"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &chat))
		assert.Equal(t, "I don't know.", chat.Response)

		req := env.OpenAI.LastChatRequest()
		require.NotNil(t, req)
		assert.Contains(t, req.Messages[1].Content, "No relevant context found in the knowledge base.")
	})

	t.Run("blank query rejected without provider calls", func(t *testing.T) {
		embedBefore := env.OpenAI.EmbedCalls()

		status, body, err := env.PostRaw("/chat", map[string]string{"query": "   "}, "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body, "error")
		assert.Equal(t, embedBefore, env.OpenAI.EmbedCalls())
	})
}

// TestE2E_Chat_NotConfigured verifies missing provider settings short-circuit
// before any outbound call.
func TestE2E_Chat_NotConfigured(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	// A second router whose chat service has no provider settings. The other
	// handlers are wired as usual.
	topicSvc := service.NewTopicService(repository.NewTopicTermRepository(env.Pool), &service.DefaultUUIDGenerator{})
	policy := service.NewAccessPolicy("public", "")
	chatSvc := service.NewChatService(service.ChatSettings{}, nil, nil, nil)

	router := server.NewRouter(server.RouterConfig{
		KeyValidator:     env.AuthSvc,
		ChatHandler:      handlers.NewChatHandler(chatSvc, policy),
		TopicHandler:     handlers.NewTopicHandler(topicSvc),
		KnowledgeHandler: handlers.NewKnowledgeHandler(env.SyncSvc),
		WidgetHandler:    handlers.NewWidgetHandler("Knowledge Base Chat", policy),
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	embedBefore := env.OpenAI.EmbedCalls()
	queryBefore := env.Pinecone.QueryCalls()

	resp, err := env.HTTPClient.Post(srv.URL+"/chat", "application/json",
		strings.NewReader(`{"query":"Is anyone there?"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, embedBefore, env.OpenAI.EmbedCalls())
	assert.Equal(t, queryBefore, env.Pinecone.QueryCalls())
}

// TestE2E_TopicMapping covers the topic term lifecycle and the ordered
// mapping contract over HTTP.
func TestE2E_TopicMapping(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	t.Run("anonymous cannot edit topics", func(t *testing.T) {
		status, _, err := env.GetRaw("/topics", "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	var termID string

	t.Run("create terms", func(t *testing.T) {
		for _, tc := range []struct {
			pattern string
			topicID int
		}{
			{"/AI/", 10},
			{"/AI/Prompting/Claude/", 30},
			{"/AI/Prompting/", 20},
		} {
			resp, err := env.Post("/topics", map[string]interface{}{
				"pattern":  tc.pattern,
				"topic_id": tc.topicID,
			}, env.EditorToken)
			require.NoError(t, err)

			var term struct {
				ID      string `json:"id"`
				Pattern string `json:"pattern"`
			}
			require.NoError(t, json.Unmarshal(resp.Data, &term))
			assert.NotEmpty(t, term.ID)
			if tc.pattern == "/AI/" {
				termID = term.ID
			}
		}
	})

	t.Run("mapping is a single object ordered longest first", func(t *testing.T) {
		status, body, err := env.GetRaw("/topics", env.EditorToken)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, `{"/AI/Prompting/Claude/":30,"/AI/Prompting/":20,"/AI/":10}`+"\n", body)
	})

	t.Run("duplicate pattern conflicts", func(t *testing.T) {
		status, _, err := env.PostRaw("/topics", map[string]interface{}{
			"pattern":  "/AI/",
			"topic_id": 99,
		}, env.EditorToken)
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("delete term removes it from the mapping", func(t *testing.T) {
		_, err := env.Delete("/topics/"+termID, env.EditorToken)
		require.NoError(t, err)

		_, body, err := env.GetRaw("/topics", env.EditorToken)
		require.NoError(t, err)
		assert.NotContains(t, body, `"/AI/":10`)
	})
}

// TestE2E_KnowledgeLifecycle pushes a document through queueing, indexing,
// and removal.
func TestE2E_KnowledgeLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	var docID string

	t.Run("push queues the document", func(t *testing.T) {
		resp, err := env.Post("/knowledge", map[string]interface{}{
			"title": "Install Guide",
			"body":  "Download it first.\n\n## Setup\nRun the installer.",
			"url":   "https://kb.example.com/install",
			"topic": "setup",
		}, env.EditorToken)
		require.NoError(t, err)

		var push struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &push))
		assert.NotEmpty(t, push.ID)
		assert.Equal(t, "queued", push.Status)
		docID = push.ID

		var status string
		require.NoError(t, env.Pool.QueryRow(env.Ctx,
			`SELECT status FROM sync_jobs WHERE document_id = $1`, docID,
		).Scan(&status))
		assert.Equal(t, "pending", status)
	})

	t.Run("processing embeds chunks into the index", func(t *testing.T) {
		require.NoError(t, env.SyncSvc.ProcessJobs(env.Ctx))

		ids := env.Pinecone.StoredVectorIDs()
		assert.Len(t, ids, 2)
		assert.Contains(t, ids, docID+"-0")
		assert.Contains(t, ids, docID+"-1")

		vec, ok := env.Pinecone.StoredVector(docID + "-1")
		require.True(t, ok)
		assert.Equal(t, "Install Guide", vec.Metadata["title"])
		assert.Equal(t, "https://kb.example.com/install", vec.Metadata["url"])
		assert.Equal(t, "setup", vec.Metadata["topic"])
		assert.Contains(t, vec.Metadata["text"], "Run the installer.")

		var chunkCount int
		require.NoError(t, env.Pool.QueryRow(env.Ctx,
			`SELECT count(*) FROM document_chunks WHERE document_id = $1`, docID,
		).Scan(&chunkCount))
		assert.Equal(t, 2, chunkCount)

		var jobStatus string
		require.NoError(t, env.Pool.QueryRow(env.Ctx,
			`SELECT status FROM sync_jobs WHERE document_id = $1`, docID,
		).Scan(&jobStatus))
		assert.Equal(t, "completed", jobStatus)
	})

	t.Run("re-push replaces stale vectors", func(t *testing.T) {
		_, err := env.Post("/knowledge", map[string]interface{}{
			"id":    docID,
			"title": "Install Guide",
			"body":  "Just run the installer.",
			"url":   "https://kb.example.com/install",
			"topic": "setup",
		}, env.EditorToken)
		require.NoError(t, err)

		require.NoError(t, env.SyncSvc.ProcessJobs(env.Ctx))

		ids := env.Pinecone.StoredVectorIDs()
		assert.Len(t, ids, 1)
		assert.Contains(t, ids, docID+"-0")
	})

	t.Run("delete removes document, chunks, and vectors", func(t *testing.T) {
		_, err := env.Delete("/knowledge/"+docID, env.EditorToken)
		require.NoError(t, err)

		assert.Empty(t, env.Pinecone.StoredVectorIDs())

		var docCount int
		require.NoError(t, env.Pool.QueryRow(env.Ctx,
			`SELECT count(*) FROM documents WHERE id = $1`, docID,
		).Scan(&docCount))
		assert.Zero(t, docCount)
	})

	t.Run("delete unknown document returns 404", func(t *testing.T) {
		_, err := env.Delete("/knowledge/"+docID, env.EditorToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}

// TestE2E_Widget verifies the widget config endpoint and static assets.
func TestE2E_Widget(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("config reports title and access mode", func(t *testing.T) {
		resp, err := env.Get("/widget/config", "")
		require.NoError(t, err)

		var cfg struct {
			Title      string `json:"title"`
			AccessMode string `json:"access_mode"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &cfg))
		assert.Equal(t, "Knowledge Base Chat", cfg.Title)
		assert.Equal(t, "public", cfg.AccessMode)
	})

	t.Run("widget assets are served", func(t *testing.T) {
		status, body, err := env.GetRaw("/widget/widget.js", "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, "Thinking...")
	})
}

// TestE2E_InvalidToken verifies a present but invalid bearer token is
// rejected even on public routes.
func TestE2E_InvalidToken(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	status, _, err := env.PostRaw("/chat", map[string]string{"query": "q"}, "not-a-real-token")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
}
