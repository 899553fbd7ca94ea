package contentsafety

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const apiVersion = "2023-10-01"

type Config struct {
	Endpoint string        `split_words:"true"`
	Key      string        `split_words:"true"`
	Timeout  time.Duration `split_words:"true" default:"10s"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != "" && strings.TrimSpace(c.Key) != ""
}

// Client calls the Azure AI Content Safety text:analyze operation.
type Client struct {
	endpoint   string
	key        string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid content safety endpoint: %w", err)
	}
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, errors.New("content safety key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		key:        strings.TrimSpace(cfg.Key),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

type analyzeResponse struct {
	CategoriesAnalysis []struct {
		Category string `json:"category"`
		Severity int    `json:"severity"`
	} `json:"categoriesAnalysis"`
}

// Analyze returns the severity (0 to 7) reported for each harm category.
func (c *Client) Analyze(ctx context.Context, text string) (map[string]int, error) {
	body, err := json.Marshal(map[string]any{"text": text})
	if err != nil {
		return nil, fmt.Errorf("marshal analyze request: %w", err)
	}
	endpoint := c.endpoint + "/contentsafety/text:analyze?api-version=" + apiVersion
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call content safety: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read analyze response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content safety http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed analyzeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode analyze response: %w", err)
	}
	out := make(map[string]int, len(parsed.CategoriesAnalysis))
	for _, ca := range parsed.CategoriesAnalysis {
		out[ca.Category] = ca.Severity
	}
	return out, nil
}
