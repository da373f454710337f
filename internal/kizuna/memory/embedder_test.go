package memory

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(0)
	if e.Dimensions() != DefaultHashDimensions {
		t.Fatalf("Dimensions() = %d, want %d", e.Dimensions(), DefaultHashDimensions)
	}

	a, err := e.Embed(context.Background(), "Mom's name is Sarah")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	b, _ := e.Embed(context.Background(), "mom’s name is sarah")
	if len(a) != DefaultHashDimensions {
		t.Fatalf("len(vec) = %d, want %d", len(a), DefaultHashDimensions)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestHashEmbedder_UnitLength(t *testing.T) {
	e := NewHashEmbedder(64)
	for _, text := range []string{"the", "dinner at the lake house", "?"} {
		vec, err := e.Embed(context.Background(), text)
		if err != nil {
			t.Fatalf("Embed(%q) error: %v", text, err)
		}
		var sum float64
		for _, v := range vec {
			sum += float64(v) * float64(v)
		}
		if math.Abs(sum-1) > 1e-5 {
			t.Errorf("Embed(%q) norm^2 = %f, want 1", text, sum)
		}
	}
}

func TestHashEmbedder_SubjectSimilarity(t *testing.T) {
	e := NewHashEmbedder(0)
	ctx := context.Background()

	subject, _ := e.Embed(ctx, "mom")
	related, _ := e.Embed(ctx, "Mom's name is Sarah")
	unrelated, _ := e.Embed(ctx, "We both love hiking in autumn")

	if sim := CosineSimilarity(subject, related); sim < CorrectionSimilarityThreshold {
		t.Errorf("similarity(mom, mom's name) = %f, want >= %f", sim, CorrectionSimilarityThreshold)
	}
	if sim := CosineSimilarity(subject, unrelated); sim >= CorrectionSimilarityThreshold {
		t.Errorf("similarity(mom, hiking) = %f, want < %f", sim, CorrectionSimilarityThreshold)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestOpenAIEmbedder_EmptyText(t *testing.T) {
	e := NewOpenAIEmbedder(OpenAIEmbedderConfig{APIKey: "test-key", BaseURL: "http://127.0.0.1:0"})
	vec, err := e.Embed(context.Background(), "  ")
	if err != nil {
		t.Fatalf("Embed(blank) error: %v", err)
	}
	if vec != nil {
		t.Errorf("expected nil for blank text, got %v", vec)
	}
}

func TestOpenAIEmbedder_SuccessfulEmbedding(t *testing.T) {
	want := []float32{0.1, 0.2, 0.3}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/embeddings" {
			t.Errorf("expected /embeddings, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-123" {
			t.Errorf("unexpected Authorization header: %s", got)
		}

		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "custom-model" || req.Dimensions != 3 {
			t.Errorf("unexpected request %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(embeddingResponse{Data: []embeddingData{{Embedding: want}}})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIEmbedderConfig{
		APIKey:     "key-123",
		BaseURL:    srv.URL,
		Model:      "custom-model",
		Dimensions: 3,
		Timeout:    5 * time.Second,
	})
	got, err := e.Embed(context.Background(), "our anniversary is in May")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestOpenAIEmbedder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(embeddingResponse{
			Error: &embeddingError{Message: "bad key", Type: "invalid_request_error"},
		})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIEmbedderConfig{APIKey: "nope", BaseURL: srv.URL})
	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for API error response")
	}
}

func TestOpenAIEmbedder_NoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIEmbedderConfig{BaseURL: srv.URL})
	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected error when no data is returned")
	}
}

type countingEmbedder struct {
	calls atomic.Int32
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func TestCachedEmbedder_HitsCache(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCachedEmbedder(inner, 1<<20)
	if err != nil {
		t.Fatalf("NewCachedEmbedder() error: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	first, err := c.Embed(ctx, "dinner plans")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	c.cache.Wait()

	second, err := c.Embed(ctx, "dinner plans")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if inner.calls.Load() != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls.Load())
	}
	if second[0] != first[0] {
		t.Errorf("cached vector differs: %v vs %v", second, first)
	}

	// Callers may mutate the returned slice without corrupting the cache.
	second[0] = -1
	third, _ := c.Embed(ctx, "dinner plans")
	if third[0] == -1 {
		t.Error("cache returned a shared slice")
	}
}

func TestCachedEmbedder_ErrorsNotCached(t *testing.T) {
	boom := errors.New("boom")
	inner := &countingEmbedder{err: boom}
	c, err := NewCachedEmbedder(inner, 1<<20)
	if err != nil {
		t.Fatalf("NewCachedEmbedder() error: %v", err)
	}
	defer c.Close()

	for i := 0; i < 2; i++ {
		if _, err := c.Embed(context.Background(), "x"); !errors.Is(err, boom) {
			t.Fatalf("Embed() error = %v, want %v", err, boom)
		}
		c.cache.Wait()
	}
	if inner.calls.Load() != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls.Load())
	}
}

func TestNewCachedEmbedder_RejectsNonPositiveCost(t *testing.T) {
	if _, err := NewCachedEmbedder(&countingEmbedder{}, 0); err == nil {
		t.Fatal("expected error for zero max cost")
	}
}
