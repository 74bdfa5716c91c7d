//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/sie-engine/siechat/internal/api/handlers"
	"github.com/sie-engine/siechat/internal/domain"
	"github.com/sie-engine/siechat/internal/openai"
	"github.com/sie-engine/siechat/internal/pinecone"
	"github.com/sie-engine/siechat/internal/repository"
	"github.com/sie-engine/siechat/internal/server"
	"github.com/sie-engine/siechat/internal/service"
	"github.com/sie-engine/siechat/internal/testutil"
)

// E2ETestEnv holds all resources needed for E2E tests. The OpenAI and
// Pinecone providers are replaced with in-process fakes so the full pipeline
// runs without external credentials.
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	OpenAI       *FakeOpenAI
	Pinecone     *FakePinecone
	SyncSvc      *service.SyncService
	AuthSvc      *service.AuthService
	EditorToken  string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with a database container,
// fake providers, and the HTTP server.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	fakeOpenAI := NewFakeOpenAI()
	fakePinecone := NewFakePinecone()

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		OpenAI:     fakeOpenAI,
		Pinecone:   fakePinecone,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	env.ServerURL, env.ServerCloser = startServer(t, env, port)
	return env
}

// Cleanup releases all resources.
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.OpenAI != nil {
		e.OpenAI.Close()
	}
	if e.Pinecone != nil {
		e.Pinecone.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Bootstrap mints an editor API key for authenticated requests.
func (e *E2ETestEnv) Bootstrap() {
	_, token, err := e.AuthSvc.CreateAPIKey(e.Ctx, "e2e-editor", domain.RoleEditor)
	if err != nil {
		e.T.Fatalf("failed to create API key: %v", err)
	}
	e.EditorToken = token
}

// APIResponse represents a standard API response.
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request.
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, authToken)
}

// Post performs a POST request.
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, authToken)
}

// Delete performs a DELETE request.
func (e *E2ETestEnv) Delete(path, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodDelete, path, nil, authToken)
}

// GetRaw performs a GET request and returns the status code and the raw body.
// Used for endpoints that do not wrap their payload in the data envelope.
func (e *E2ETestEnv) GetRaw(path, authToken string) (int, string, error) {
	req, err := http.NewRequest(http.MethodGet, e.ServerURL+path, nil)
	if err != nil {
		return 0, "", err
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(body), nil
}

// PostRaw performs a POST request and returns the status code and the raw body
// without treating error statuses as request failures.
func (e *E2ETestEnv) PostRaw(path string, body interface{}, authToken string) (int, string, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return 0, "", err
	}

	req, err := http.NewRequest(http.MethodPost, e.ServerURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(respBody), nil
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// startServer wires the full application against the fake providers and
// starts the HTTP server.
func startServer(t *testing.T, env *E2ETestEnv, port int) (string, func()) {
	topicRepo := repository.NewTopicTermRepository(env.Pool)
	apiKeyRepo := repository.NewAPIKeyRepository(env.Pool)
	docRepo := repository.NewDocumentRepository(env.Pool)
	jobRepo := repository.NewSyncJobRepository(env.Pool)
	chunkRepo := repository.NewChunkRepository(env.Pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(apiKeyRepo, uuidGen)
	topicSvc := service.NewTopicService(topicRepo, uuidGen)

	ocfg := goopenai.DefaultConfig("test-key")
	ocfg.BaseURL = env.OpenAI.URL() + "/v1"
	oaClient := openai.NewClientWithAPI(goopenai.NewClientWithConfig(ocfg), "")
	pcClient := pinecone.NewClient(env.Pinecone.URL(), "test-key")

	syncSvc := service.NewSyncService(docRepo, jobRepo, chunkRepo, oaClient,
		&pineconeVectorAdapter{client: pcClient}, uuidGen)

	chatSvc := service.NewChatService(service.ChatSettings{
		OpenAIAPIKey:   "test-key",
		PineconeAPIKey: "test-key",
		PineconeHost:   env.Pinecone.URL(),
	}, oaClient, pcClient, oaClient)

	policy := service.NewAccessPolicy("public", "")

	router := server.NewRouter(server.RouterConfig{
		KeyValidator:     authSvc,
		ChatHandler:      handlers.NewChatHandler(chatSvc, policy),
		TopicHandler:     handlers.NewTopicHandler(topicSvc),
		KnowledgeHandler: handlers.NewKnowledgeHandler(syncSvc),
		WidgetHandler:    handlers.NewWidgetHandler("Knowledge Base Chat", policy),
	})

	env.SyncSvc = syncSvc
	env.AuthSvc = authSvc

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// pineconeVectorAdapter adapts the Pinecone client to the VectorWriter
// interface the sync service expects.
type pineconeVectorAdapter struct {
	client *pinecone.Client
}

func (a *pineconeVectorAdapter) Upsert(ctx context.Context, records []service.VectorRecord) error {
	vectors := make([]pinecone.Vector, len(records))
	for i, r := range records {
		vectors[i] = pinecone.Vector{ID: r.ID, Values: r.Values, Metadata: r.Metadata}
	}
	return a.client.Upsert(ctx, vectors)
}

func (a *pineconeVectorAdapter) DeleteVectors(ctx context.Context, ids []string) error {
	return a.client.Delete(ctx, ids)
}

// FakeOpenAI serves the two OpenAI endpoints the pipeline calls. It records
// the last chat completion request so tests can inspect the prompt.
type FakeOpenAI struct {
	server *httptest.Server

	mu              sync.Mutex
	embedCalls      int
	chatCalls       int
	answer          string
	lastChatRequest *goopenai.ChatCompletionRequest
}

func NewFakeOpenAI() *FakeOpenAI {
	f := &FakeOpenAI{answer: "Here is the answer."}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.embedCalls++
		f.mu.Unlock()

		embedding := make([]float32, openai.EmbeddingDimensions)
		for i := range embedding {
			embedding[i] = 0.01
		}
		writeJSON(w, map[string]interface{}{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]interface{}{
				{"object": "embedding", "index": 0, "embedding": embedding},
			},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req goopenai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.chatCalls++
		f.lastChatRequest = &req
		answer := f.answer
		f.mu.Unlock()

		writeJSON(w, map[string]interface{}{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]string{"role": "assistant", "content": answer},
				},
			},
		})
	})

	f.server = httptest.NewServer(mux)
	return f
}

func (f *FakeOpenAI) URL() string { return f.server.URL }
func (f *FakeOpenAI) Close()      { f.server.Close() }

func (f *FakeOpenAI) SetAnswer(answer string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answer = answer
}

func (f *FakeOpenAI) EmbedCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embedCalls
}

func (f *FakeOpenAI) ChatCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chatCalls
}

func (f *FakeOpenAI) LastChatRequest() *goopenai.ChatCompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastChatRequest
}

// FakeMatch is one canned retrieval match served by FakePinecone.
type FakeMatch struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata"`
}

// FakePinecone serves the Pinecone data plane endpoints. Upserted vectors are
// stored in memory; query results are canned via SetMatches.
type FakePinecone struct {
	server *httptest.Server

	mu         sync.Mutex
	queryCalls int
	matches    []FakeMatch
	vectors    map[string]pinecone.Vector
}

func NewFakePinecone() *FakePinecone {
	f := &FakePinecone{vectors: make(map[string]pinecone.Vector)}

	mux := http.NewServeMux()
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.queryCalls++
		matches := f.matches
		f.mu.Unlock()

		if matches == nil {
			matches = []FakeMatch{}
		}
		writeJSON(w, map[string]interface{}{"matches": matches})
	})
	mux.HandleFunc("/vectors/upsert", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Vectors []pinecone.Vector `json:"vectors"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		for _, v := range req.Vectors {
			f.vectors[v.ID] = v
		}
		f.mu.Unlock()

		writeJSON(w, map[string]int{"upsertedCount": len(req.Vectors)})
	})
	mux.HandleFunc("/vectors/delete", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		for _, id := range req.IDs {
			delete(f.vectors, id)
		}
		f.mu.Unlock()

		writeJSON(w, map[string]interface{}{})
	})

	f.server = httptest.NewServer(mux)
	return f
}

func (f *FakePinecone) URL() string { return f.server.URL }
func (f *FakePinecone) Close()      { f.server.Close() }

func (f *FakePinecone) SetMatches(matches []FakeMatch) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches = matches
}

func (f *FakePinecone) QueryCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queryCalls
}

// StoredVectorIDs returns the IDs of all vectors currently in the index.
func (f *FakePinecone) StoredVectorIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.vectors))
	for id := range f.vectors {
		ids = append(ids, id)
	}
	return ids
}

// StoredVector returns a stored vector by ID.
func (f *FakePinecone) StoredVector(id string) (pinecone.Vector, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vectors[id]
	return v, ok
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
