package detect

// Embedding-backed exemplar engine. Where the vector tier uses plain
// term-frequency cosine, this engine embeds the text with a real model
// and searches an in-process chromem collection of seeded exemplars,
// catching paraphrases the lexical tiers miss. Optional: wired only
// when an embedding endpoint is configured.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/satyamahesh03/misuseguard/pkg/httputil"
	"github.com/satyamahesh03/misuseguard/pkg/patterns"
)

// ExemplarEngine scores text by nearest-exemplar similarity in
// embedding space.
type ExemplarEngine struct {
	db         *chromem.DB
	collection *chromem.Collection
	threshold  float32
	mu         sync.RWMutex
	ready      bool
}

// newEmbeddingFunc builds a chromem embedding function that calls an
// Ollama-compatible /api/embeddings endpoint.
func newEmbeddingFunc(model, baseURL string) chromem.EmbeddingFunc {
	client := httputil.MediumClient()

	return func(ctx context.Context, text string) ([]float32, error) {
		reqBody, err := json.Marshal(map[string]string{
			"model":  model,
			"prompt": text,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal embedding request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/embeddings", bytes.NewReader(reqBody))
		if err != nil {
			return nil, fmt.Errorf("build embedding request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		defer httputil.DrainAndClose(resp.Body)

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("embedding endpoint returned status %d", resp.StatusCode)
		}

		var result struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("decode embedding response: %w", err)
		}
		return result.Embedding, nil
	}
}

// NewExemplarEngine creates the engine against an embedding endpoint.
// Call Seed before wiring it into the ensemble.
func NewExemplarEngine(embedderURL, model string) (*ExemplarEngine, error) {
	if embedderURL == "" {
		return nil, fmt.Errorf("no embedder URL configured")
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection("misuse_exemplars", nil, newEmbeddingFunc(model, embedderURL))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ExemplarEngine{
		db:         db,
		collection: collection,
		threshold:  0.75,
	}, nil
}

// Seed embeds the built-in malicious and safe exemplars into the
// collection. Sequential (1 worker) to avoid overwhelming the
// embedding endpoint.
func (e *ExemplarEngine) Seed(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var docs []chromem.Document
	i := 0
	for cat, texts := range maliciousExemplars() {
		for _, t := range texts {
			docs = append(docs, chromem.Document{
				ID:      fmt.Sprintf("malicious_%d", i),
				Content: t,
				Metadata: map[string]string{
					"category": string(cat),
				},
			})
			i++
		}
	}
	for j, t := range safeExemplars() {
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("safe_%d", j),
			Content: t,
			Metadata: map[string]string{
				"category": string(patterns.CategoryNone),
			},
		})
	}

	if err := e.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("seed exemplars: %w", err)
	}
	e.ready = true
	return nil
}

func (e *ExemplarEngine) Name() string { return "exemplar" }

// IsReady reports whether the exemplars have been seeded.
func (e *ExemplarEngine) IsReady() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ready
}

// Score embeds text and reports the nearest exemplar's category when
// similarity clears the threshold.
func (e *ExemplarEngine) Score(ctx context.Context, text string) (*Verdict, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.ready {
		return nil, fmt.Errorf("%w: exemplar engine not seeded", ErrAnalysisFailure)
	}

	results, err := e.collection.Query(ctx, patterns.Normalize(text), 1, nil, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrAnalysisTimeout, ctx.Err())
		}
		return nil, fmt.Errorf("%w: query: %v", ErrAnalysisFailure, err)
	}
	if len(results) == 0 {
		v := newVerdict(patterns.CategoryNone, 0.3, e.Name(), "no exemplar match")
		return &v, nil
	}

	best := results[0]
	cat := patterns.Category(best.Metadata["category"])
	if !cat.Valid() {
		cat = patterns.CategoryNone
	}
	if best.Similarity < e.threshold || cat == patterns.CategoryNone {
		v := newVerdict(patterns.CategoryNone, float64(best.Similarity), e.Name(),
			fmt.Sprintf("nearest exemplar %q (%.3f) below threshold or safe", best.Content, best.Similarity))
		return &v, nil
	}

	v := newVerdict(cat, float64(best.Similarity), e.Name(),
		fmt.Sprintf("embedding similarity %.3f with exemplar %q", best.Similarity, best.Content))
	return &v, nil
}
