package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"stockpilot/internal/llm"
	"stockpilot/internal/logger"
)

// PageConfig holds configuration for the fetch-and-summarize tool.
type PageConfig struct {
	Timeout   time.Duration
	MaxChars  int
	UserAgent string
}

// PageTool fetches a web page, extracts its primary textual body and asks the
// language model for a short summary of it. Fetch failures are reported back
// to the model as tool output so it can pick a different source; they never
// abort the synthesis loop.
type PageTool struct {
	cfg        PageConfig
	provider   llm.Provider
	logger     *logger.Logger
	httpClient *http.Client
}

// NewPageTool creates a new fetch-and-summarize tool.
func NewPageTool(cfg PageConfig, provider llm.Provider, log *logger.Logger) *PageTool {
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxChars == 0 {
		cfg.MaxChars = 8000
	}
	return &PageTool{
		cfg:      cfg,
		provider: provider,
		logger:   log,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (t *PageTool) Name() string {
	return "fetch_page"
}

func (t *PageTool) Description() string {
	return "Fetch a web page and return a 2-3 sentence summary of its main content. Use it to read an article found via search."
}

func (t *PageTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "The URL of the page to fetch. Must start with http:// or https://",
			},
		},
		"required": []string{"url"},
	}
}

type pageArgs struct {
	URL string `json:"url"`
}

// Execute fetches the page and returns the summary.
func (t *PageTool) Execute(ctx context.Context, args string) (string, error) {
	var parsed pageArgs
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return "", fmt.Errorf("invalid fetch_page arguments: %w", err)
	}
	target := strings.TrimSpace(parsed.URL)
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return "", fmt.Errorf("invalid url: %q", parsed.URL)
	}

	html, err := t.fetch(ctx, target)
	if err != nil {
		t.logger.WarnCtx(ctx, "page fetch failed",
			logger.Field{Key: "url", Value: target},
			logger.Field{Key: "error", Value: err.Error()})
		return fmt.Sprintf("fetch failed: %v", err), nil
	}

	body := t.extractBody(html, target)
	if body == "" {
		return "fetch failed: page has no readable content", nil
	}
	if len(body) > t.cfg.MaxChars {
		// Back off to a rune boundary so the cut never leaves a broken
		// multi-byte sequence at the tail.
		cut := t.cfg.MaxChars
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}

	summary, err := t.summarize(ctx, body)
	if err != nil {
		return fmt.Sprintf("summarization failed: %v", err), nil
	}
	return summary, nil
}

func (t *PageTool) fetch(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", t.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// extractBody pulls the primary textual body out of the page, discarding
// navigation and boilerplate. Readability is tried first; when it produces
// nothing usable the raw document is stripped with goquery instead.
func (t *PageTool) extractBody(html, target string) string {
	pageURL, err := url.Parse(target)
	if err != nil {
		pageURL = &url.URL{}
	}

	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		if markdown := t.htmlToMarkdown(article.Content); markdown != "" {
			return markdown
		}
		return strings.TrimSpace(article.TextContent)
	}

	return t.stripBoilerplate(html)
}

// htmlToMarkdown converts the extracted article HTML to markdown, dropping
// the elements readability sometimes leaves behind.
func (t *PageTool) htmlToMarkdown(html string) string {
	opts := &md.Options{
		HeadingStyle:    "atx",
		CodeBlockStyle:  "fenced",
		EmDelimiter:     "*",
		StrongDelimiter: "**",
	}

	converter := md.NewConverter("", true, opts)
	converter.AddRules(md.Rule{
		Filter: []string{"nav", "footer", "aside", "script", "style", "img"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			empty := ""
			return &empty
		},
	})

	markdown, err := converter.ConvertString(html)
	if err != nil {
		t.logger.Error("failed to convert page to markdown", err)
		return ""
	}

	reBlank := regexp.MustCompile(`\n{3,}`)
	markdown = reBlank.ReplaceAllString(markdown, "\n\n")
	return strings.TrimSpace(markdown)
}

// stripBoilerplate is the fallback extraction path for pages readability
// cannot parse.
func (t *PageTool) stripBoilerplate(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, nav, footer, aside, header, form").Remove()
	text := doc.Find("body").Text()
	reSpace := regexp.MustCompile(`\s+`)
	return strings.TrimSpace(reSpace.ReplaceAllString(text, " "))
}

// summarize asks the model for a 2-3 sentence summary of the extracted body.
func (t *PageTool) summarize(ctx context.Context, body string) (string, error) {
	resp, err := t.provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{
				Role:    llm.RoleSystem,
				Content: "You summarize article text. Respond with a 2-3 sentence summary of the key facts. No preamble, no commentary.",
			},
			{
				Role:    llm.RoleUser,
				Content: body,
			},
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}
