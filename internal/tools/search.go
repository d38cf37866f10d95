package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockpilot/internal/logger"
)

// SearchResult is one entry returned to the model by the search tool.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at,omitempty"`
}

// SearchConfig holds configuration for the search tool backend.
type SearchConfig struct {
	APIKey     string
	Endpoint   string // Brave web search API endpoint
	MaxResults int
	Timeout    time.Duration
}

// SearchTool performs an authenticated web search through the Brave Search
// API and returns result metadata as JSON. Zero results is a valid outcome,
// not an error.
type SearchTool struct {
	cfg        SearchConfig
	logger     *logger.Logger
	httpClient *http.Client
}

// NewSearchTool creates a new search tool.
func NewSearchTool(cfg SearchConfig, log *logger.Logger) *SearchTool {
	if cfg.MaxResults == 0 {
		cfg.MaxResults = 5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SearchTool{
		cfg:    cfg,
		logger: log,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (t *SearchTool) Name() string {
	return "search"
}

func (t *SearchTool) Description() string {
	return "Search the web for recent news and articles. Returns a JSON array of results with title, url and published_at."
}

func (t *SearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"keywords": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Search keywords, combined into one query",
			},
			"max_results": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of results to return",
			},
		},
		"required": []string{"keywords"},
	}
}

type searchArgs struct {
	Keywords   []string `json:"keywords"`
	MaxResults int      `json:"max_results"`
}

// Execute runs the search. The response to the model is always a JSON array,
// "[]" when nothing was found.
func (t *SearchTool) Execute(ctx context.Context, args string) (string, error) {
	var parsed searchArgs
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return "", fmt.Errorf("invalid search arguments: %w", err)
	}
	if len(parsed.Keywords) == 0 {
		return "", fmt.Errorf("keywords cannot be empty")
	}

	k := parsed.MaxResults
	if k <= 0 || k > t.cfg.MaxResults {
		k = t.cfg.MaxResults
	}

	query := strings.Join(parsed.Keywords, " ")
	results, err := t.search(ctx, query, k)
	if err != nil {
		return "", err
	}

	t.logger.DebugCtx(ctx, "search executed",
		logger.Field{Key: "query", Value: query},
		logger.Field{Key: "results", Value: len(results)})

	if len(results) == 0 {
		return "[]", nil
	}

	data, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to marshal search results: %w", err)
	}
	return string(data), nil
}

// search calls the Brave web search API.
// https://api.search.brave.com/app/documentation/web-search
func (t *SearchTool) search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	endpoint := fmt.Sprintf("%s?q=%s&count=%d", t.cfg.Endpoint, url.QueryEscape(query), k)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", t.cfg.APIKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	var raw struct {
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				PageAge string `json:"page_age"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	var out []SearchResult
	for i, r := range raw.Web.Results {
		if i >= k {
			break
		}
		out = append(out, SearchResult{Title: r.Title, URL: r.URL, PublishedAt: r.PageAge})
	}
	return out, nil
}
