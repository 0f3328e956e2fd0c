// Package crossencoder calls an external pairwise relevance model over
// HTTP (Jina/TEI-style rerank endpoint). Scores come back min-max
// normalized per batch; transport failures are classified and retried
// through the shared resilience executor, and the caller degrades to
// neutral scores when the model stays unreachable.
package crossencoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/startupscout/scout/internal/core/domain"
	"github.com/startupscout/scout/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	model      string
	batchSize  int
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout   time.Duration
	BatchSize int
	Executor  *resilience.Executor
}

func New(baseURL, model string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	batchSize := options.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		batchSize:  batchSize,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.Executor,
	}
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank scores every (title, blob) pair against the question. Batches
// are sized by configuration; raw model scores are min-max normalized
// across the whole candidate set.
func (c *Client) Rerank(ctx context.Context, question string, inputs []domain.RerankInput) ([]float64, error) {
	if len(inputs) == 0 {
		return []float64{}, nil
	}

	raw := make([]float64, len(inputs))
	for start := 0; start < len(inputs); start += c.batchSize {
		end := start + c.batchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		if err := c.rerankBatch(ctx, question, inputs[start:end], raw[start:end]); err != nil {
			return nil, err
		}
	}
	return normalizeBatch(raw), nil
}

func (c *Client) rerankBatch(ctx context.Context, question string, inputs []domain.RerankInput, out []float64) error {
	documents := make([]string, len(inputs))
	for i, in := range inputs {
		documents[i] = in.Title + "\n" + in.Blob
	}

	body := rerankRequest{Model: c.model, Query: question, Documents: documents}

	call := func(callCtx context.Context) error {
		response, err := c.post(callCtx, "/rerank", body)
		if err != nil {
			return err
		}
		var parsed rerankResponse
		if err := json.Unmarshal(response, &parsed); err != nil {
			return fmt.Errorf("parse rerank response: %w", err)
		}
		if len(parsed.Results) != len(inputs) {
			return fmt.Errorf("rerank result length %d does not match batch size %d", len(parsed.Results), len(inputs))
		}
		for _, r := range parsed.Results {
			if r.Index < 0 || r.Index >= len(out) {
				return fmt.Errorf("rerank result index %d out of range", r.Index)
			}
			out[r.Index] = r.RelevanceScore
		}
		return nil
	}

	if c.executor != nil {
		return c.executor.Execute(ctx, "crossencoder.rerank", call, classifyRerankError)
	}
	return call(ctx)
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read rerank response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}
	return body, nil
}

// normalizeBatch rescales raw model scores to [0,1]; a batch with no
// spread collapses to zeros, signalling the model found nothing to
// discriminate on.
func normalizeBatch(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}
	minScore, maxScore := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}
	span := maxScore - minScore
	if span <= 0 {
		return make([]float64, len(scores))
	}
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = (s - minScore) / span
	}
	return out
}
