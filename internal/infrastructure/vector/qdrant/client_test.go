package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/rxverify/internal/core/domain"
	"github.com/kirillkom/rxverify/internal/infrastructure/resilience"
)

func testExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    1,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     1,
	})
}

func sampleDocs() []domain.RetrievedDocument {
	return []domain.RetrievedDocument{
		{DrugIdentity: "161", Source: domain.SourceDailyMed, ExternalID: "set-1", Title: "Tylenol", Text: "acetaminophen 500 mg"},
		{DrugIdentity: "161", Source: domain.SourceRxNorm, ExternalID: "161", Title: "acetaminophen", Text: "acetaminophen"},
	}
}

func TestIndexDocumentsEnsuresCollectionOncePerVectorSize(t *testing.T) {
	var ensureCalls int32
	var upsertIDs []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/drugs":
			atomic.AddInt32(&ensureCalls, 1)
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if _, ok := body["sparse_vectors"]; !ok {
				t.Errorf("expected sparse vector config")
			}
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/drugs/points":
			var body struct {
				Points []struct {
					ID     string         `json:"id"`
					Vector map[string]any `json:"vector"`
				} `json:"points"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			for _, p := range body.Points {
				upsertIDs = append(upsertIDs, p.ID)
				if _, ok := p.Vector["text"]; !ok {
					t.Errorf("expected sparse vector on point")
				}
			}
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "drugs", testExecutor())
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}
	for i := 0; i < 2; i++ {
		if err := client.IndexDocuments(context.Background(), sampleDocs(), vectors); err != nil {
			t.Fatalf("IndexDocuments() error = %v", err)
		}
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
	if len(upsertIDs) != 4 || upsertIDs[0] != upsertIDs[2] || upsertIDs[0] == upsertIDs[1] {
		t.Fatalf("expected stable per-document point ids, got %v", upsertIDs)
	}
}

func TestEnsureCollectionToleratesConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/drugs" {
			http.Error(w, "already exists", http.StatusConflict)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := New(server.URL, "drugs", testExecutor())
	if err := client.IndexDocuments(context.Background(), sampleDocs()[:1], [][]float32{{1}}); err != nil {
		t.Fatalf("IndexDocuments() error = %v", err)
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, "drugs", testExecutor())
	err := client.IndexDocuments(context.Background(), sampleDocs()[:1], [][]float32{{0.1, 0.2}})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected 5xx to be temporary, got %v", err)
	}
}

func TestSearchMapsPayloadToHits(t *testing.T) {
	var requested map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/drugs/points/search" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&requested)
		_, _ = w.Write([]byte(`{"result":[{"score":0.87,"payload":{"identity":"161","source":"dailymed","external_id":"set-1","title":"Tylenol","text":"label"}}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "drugs", testExecutor())
	hits, err := client.Search(context.Background(), []float32{0.1}, 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 || hits[0].Source != "dailymed" || hits[0].ExternalID != "set-1" || hits[0].Score != 0.87 {
		t.Fatalf("unexpected hits %+v", hits)
	}
	vector, _ := requested["vector"].(map[string]any)
	if vector["name"] != "dense" || requested["limit"] != float64(10) {
		t.Fatalf("unexpected request %+v", requested)
	}

	hits, err = client.SearchLexical(context.Background(), "tylenol", 5)
	if err != nil || len(hits) != 1 {
		t.Fatalf("SearchLexical() = %v, %v", hits, err)
	}
	vector, _ = requested["vector"].(map[string]any)
	if vector["name"] != "text" {
		t.Fatalf("expected sparse vector query, got %+v", requested)
	}
}

func TestSearchLexicalSkipsEmptyQuery(t *testing.T) {
	client := New("http://127.0.0.1:0", "drugs", testExecutor())
	hits, err := client.SearchLexical(context.Background(), "what is the", 5)
	if err != nil || hits != nil {
		t.Fatalf("expected no call for noise-only query, got %v %v", hits, err)
	}
}
