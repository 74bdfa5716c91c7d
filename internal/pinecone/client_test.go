package pinecone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sie-engine/siechat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Query_Success(t *testing.T) {
	var gotPath, gotAPIKey string
	var gotBody queryRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(queryResponse{
			Matches: []queryMatch{
				{
					ID:    "doc-1-0",
					Score: 0.91,
					Metadata: map[string]interface{}{
						"title": "Billing FAQ",
						"text":  "Invoices are sent monthly.",
						"url":   "https://kb.example.com/billing",
						"count": 3.0,
					},
				},
				{ID: "doc-2-1", Score: 0.42, Metadata: map[string]interface{}{"title": "Old doc"}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "pc-key")
	vector := []float32{0.1, 0.2, 0.3}

	matches, err := client.Query(context.Background(), vector)

	require.NoError(t, err)
	assert.Equal(t, "/query", gotPath)
	assert.Equal(t, "pc-key", gotAPIKey)
	assert.Equal(t, vector, gotBody.Vector)
	assert.Equal(t, TopK, gotBody.TopK)
	assert.True(t, gotBody.IncludeMetadata)

	require.Len(t, matches, 2)
	assert.Equal(t, 0.91, matches[0].Score)
	assert.Equal(t, "Billing FAQ", matches[0].Metadata["title"])
	assert.Equal(t, "Invoices are sent monthly.", matches[0].Metadata["text"])
	// Non-string metadata values are dropped.
	_, hasCount := matches[0].Metadata["count"]
	assert.False(t, hasCount)
	assert.Equal(t, 0.42, matches[1].Score)
}

func TestClient_Query_EmptyMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(queryResponse{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "pc-key")
	matches, err := client.Query(context.Background(), []float32{0.1})

	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestClient_Query_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "pc-key")
	_, err := client.Query(context.Background(), []float32{0.1})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeRetrieval, domainErr.Code)
	assert.Contains(t, err.Error(), "index unavailable")
}

func TestClient_Query_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, "pc-key")
	_, err := client.Query(context.Background(), []float32{0.1})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeRetrieval, domainErr.Code)
}

func TestClient_Upsert(t *testing.T) {
	var gotPath string
	var gotBody upsertRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", "pc-key")
	err := client.Upsert(context.Background(), []Vector{
		{ID: "doc-1-0", Values: []float32{0.1, 0.2}, Metadata: map[string]string{"title": "T"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "/vectors/upsert", gotPath)
	require.Len(t, gotBody.Vectors, 1)
	assert.Equal(t, "doc-1-0", gotBody.Vectors[0].ID)
}

func TestClient_Upsert_Empty(t *testing.T) {
	client := NewClient("http://unused.invalid", "pc-key")
	assert.NoError(t, client.Upsert(context.Background(), nil))
}

func TestClient_Delete(t *testing.T) {
	var gotPath string
	var gotBody deleteRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "pc-key")
	err := client.Delete(context.Background(), []string{"doc-1-0", "doc-1-1"})

	require.NoError(t, err)
	assert.Equal(t, "/vectors/delete", gotPath)
	assert.Equal(t, []string{"doc-1-0", "doc-1-1"}, gotBody.IDs)
}

func TestClient_Delete_Empty(t *testing.T) {
	client := NewClient("http://unused.invalid", "pc-key")
	assert.NoError(t, client.Delete(context.Background(), nil))
}
