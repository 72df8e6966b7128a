// ABOUTME: Gemini generateContent client for threat-intel batch generation.
// ABOUTME: One attempt per call, search-grounded prompt, rate-limited upstream.
package intel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// prompt requests a search-grounded, strictly-shaped batch. The model is told
// to answer with nothing but the JSON array; ExtractJSONArray tolerates the
// prose it adds anyway.
const promptTemplate = `You are a threat intelligence analyst. Using live web search, compile the %d most significant cybersecurity threats active as of %s.

Respond with ONLY a JSON array of exactly %d objects, no other text. Each object must have these fields:
- "id": short unique string
- "category": one of "ransomware", "apt", "vulnerabilities", "malware", "data-breach"
- "severity": one of "critical", "high", "medium", "low"
- "title": concise headline
- "summary": 1-2 sentence overview
- "details": 2-4 sentence technical description
- "affectedSectors": array of industry names
- "threatActors": attributed group name, or "Unknown"
- "iocs": array of indicator strings (may be empty)
- "mitreTactics": array of MITRE ATT&CK tactic names
- "source": publication or advisory name
- "date": ISO date (YYYY-MM-DD)`

// Generator calls the Gemini generateContent endpoint with the google_search
// tool enabled and decodes the response into a validated article batch.
//
// Upstream calls are rate-limited at the client level so that the inline
// maybe-regenerate-on-read path cannot multiply API spend beyond what the
// CDN cache already bounds. A Wait that outlives the caller's deadline
// surfaces as ErrUpstreamTransport, i.e. fallback.
type Generator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// NewGenerator creates a Generator. Pass nil client to use a default with no
// total timeout — callers bound each attempt via context.
func NewGenerator(apiKey, model string, client *http.Client) *Generator {
	if client == nil {
		client = &http.Client{}
	}
	return &Generator{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(15*time.Second), 4),
		now:     time.Now,
	}
}

// Configured reports whether an upstream API key is present.
func (g *Generator) Configured() bool { return g.apiKey != "" }

// geminiRequest is the subset of the generateContent request body we send.
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
	Tools    []geminiTool    `json:"tools,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiTool struct {
	GoogleSearch struct{} `json:"google_search"`
}

// geminiResponse is the subset of the generateContent response we read.
// A search-grounded answer frequently arrives split across multiple parts.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate performs one generation attempt: a single upstream call, balanced
// JSON-array extraction, structured decode, and batch validation. No retries —
// the caller's policy on failure is fallback, not backoff.
func (g *Generator) Generate(ctx context.Context) ([]Article, error) {
	if !g.Configured() {
		return nil, ErrNotConfigured
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit: %v", ErrUpstreamTransport, err)
	}

	prompt := fmt.Sprintf(promptTemplate,
		FreshBatchSize, g.now().UTC().Format("January 2, 2006"), FreshBatchSize)

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		Tools:    []geminiTool{{}},
	})
	if err != nil {
		return nil, fmt.Errorf("intel: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("intel: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamTransport, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		// Cap the error body read; upstream error pages can be large.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck
		return nil, fmt.Errorf("%w: HTTP %d", ErrUpstreamTransport, resp.StatusCode)
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstreamFormat, err)
	}
	if len(gr.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrUpstreamFormat)
	}

	// Concatenate every text part of the first candidate before extraction:
	// search grounding splits the array across blocks often enough to matter.
	var sb strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}

	raw, err := ExtractJSONArray(sb.String())
	if err != nil {
		return nil, err
	}

	var articles []Article
	if err := json.Unmarshal([]byte(raw), &articles); err != nil {
		return nil, fmt.Errorf("%w: decode articles: %v", ErrUpstreamFormat, err)
	}
	if err := ValidateBatch(articles, FreshBatchSize); err != nil {
		return nil, err
	}
	return articles, nil
}
