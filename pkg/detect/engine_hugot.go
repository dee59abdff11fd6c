package detect

// Local ML scoring engine backed by Hugot/ONNX text classification.
// Runs fully offline and participates in the ensemble like any remote
// engine. Gracefully degrades: if no model or runtime is available the
// engine is simply not wired.
//
// Build:
// - Standard: go build (pure Go backend, slower)
// - With ORT: go build -tags ORT (ONNX Runtime, faster)

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/satyamahesh03/misuseguard/pkg/patterns"
)

// HugotEngine wraps a local text-classification pipeline as a scoring
// engine. Models classify into a safe/unsafe label pair; unsafe maps
// to the harmful-content category since the model carries no
// finer-grained taxonomy.
type HugotEngine struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
	mu       sync.RWMutex
	ready    bool
}

// threatLabels covers the label conventions of the supported models.
var threatLabels = map[string]bool{
	"unsafe":    true,
	"malicious": true,
	"INJECTION": true,
	"jailbreak": true,
	"LABEL_1":   true,
}

// NewHugotEngine initializes the local classifier from a model
// directory. onnxLibPath may be empty; the pure Go backend is used as
// a fallback when ONNX Runtime is unavailable.
func NewHugotEngine(modelPath, onnxLibPath string) (*HugotEngine, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("no model path configured")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model path %s: %w", modelPath, err)
	}

	session, err := newHugotSession(onnxLibPath)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "misuse-classifier",
	})
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	log.Printf("[STARTUP] local ML engine initialized (model: %s)", modelPath)
	return &HugotEngine{session: session, pipeline: pipeline, ready: true}, nil
}

func newHugotSession(onnxLibPath string) (*hugot.Session, error) {
	if onnxLibPath != "" {
		session, err := hugot.NewORTSession(options.WithOnnxLibraryPath(onnxLibPath))
		if err == nil {
			log.Printf("[STARTUP] local ML engine using ONNX Runtime backend")
			return session, nil
		}
		log.Printf("[WARN] ONNX Runtime unavailable, falling back to Go backend: %v", err)
	}
	return hugot.NewGoSession()
}

func (h *HugotEngine) Name() string { return "local-ml" }

// IsReady reports whether the pipeline is usable.
func (h *HugotEngine) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// Score classifies text with the local model.
func (h *HugotEngine) Score(ctx context.Context, text string) (*Verdict, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.ready || h.pipeline == nil {
		return nil, fmt.Errorf("%w: local ML engine not ready", ErrAnalysisFailure)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisTimeout, err)
	}

	result, err := h.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: inference: %v", ErrAnalysisFailure, err)
	}
	if len(result.ClassificationOutputs) == 0 || len(result.ClassificationOutputs[0]) == 0 {
		return nil, fmt.Errorf("%w: empty classification output", ErrAnalysisFailure)
	}

	out := result.ClassificationOutputs[0][0]
	cat := patterns.CategoryNone
	if threatLabels[out.Label] {
		cat = patterns.CategoryHarmful
	}
	v := newVerdict(cat, float64(out.Score), h.Name(),
		fmt.Sprintf("model label %q (%.3f)", out.Label, out.Score))
	return &v, nil
}

// Close releases the ONNX session.
func (h *HugotEngine) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = false
	if h.session != nil {
		return h.session.Destroy()
	}
	return nil
}
