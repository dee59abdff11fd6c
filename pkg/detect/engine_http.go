package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/satyamahesh03/misuseguard/pkg/httputil"
	"github.com/satyamahesh03/misuseguard/pkg/patterns"
)

// HTTPEngine adapts a remote scoring service speaking the simple
// score-request protocol: POST {"text": ...} returning category,
// confidence and an optional reason plus suggestions.
type HTTPEngine struct {
	name   string
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPEngine creates an engine for the given endpoint. apiKey may
// be empty for unauthenticated backends.
func NewHTTPEngine(name, url, apiKey string) *HTTPEngine {
	return &HTTPEngine{
		name:   name,
		url:    url,
		apiKey: apiKey,
		client: httputil.FastClient(),
	}
}

func (h *HTTPEngine) Name() string { return h.name }

type scoreRequest struct {
	Text string `json:"text"`
}

type scoreResponse struct {
	Category    string   `json:"category"`
	Confidence  float64  `json:"confidence"`
	Reason      string   `json:"reason,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Score posts the text and maps the response onto a verdict.
// Timeouts surface as ErrAnalysisTimeout, everything else as
// ErrAnalysisFailure; the ensemble excludes both.
func (h *HTTPEngine) Score(ctx context.Context, text string) (*Verdict, error) {
	body, err := json.Marshal(scoreRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrAnalysisFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrAnalysisFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", ErrAnalysisTimeout, h.name)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrAnalysisFailure, h.name, err)
	}
	defer httputil.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrAnalysisFailure, h.name, resp.StatusCode)
	}

	data, err := httputil.ReadResponseBody(resp.Body, httputil.MaxResponseSize)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrAnalysisFailure, err)
	}

	var sr scoreResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		return nil, fmt.Errorf("%w: malformed response from %s: %v", ErrAnalysisFailure, h.name, err)
	}

	cat := patterns.Category(sr.Category)
	if !cat.Valid() {
		return nil, fmt.Errorf("%w: %s reported unknown category %q", ErrAnalysisFailure, h.name, sr.Category)
	}

	v := newVerdict(cat, sr.Confidence, h.name)
	if sr.Reason != "" {
		v.Rationale = []string{sr.Reason}
	}
	v.Suggestions = sr.Suggestions
	return &v, nil
}
