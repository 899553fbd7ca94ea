package bing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Endpoint string        `split_words:"true" default:"https://api.bing.microsoft.com"`
	Key      string        `split_words:"true"`
	Count    int           `split_words:"true" default:"5"`
	Timeout  time.Duration `split_words:"true" default:"10s"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Key) != ""
}

type Page struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type searchResponse struct {
	WebPages struct {
		Value []Page `json:"value"`
	} `json:"webPages"`
}

// Client queries the Bing Web Search v7 API.
type Client struct {
	endpoint   string
	key        string
	count      int
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid bing endpoint: %w", err)
	}
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, errors.New("bing key is required")
	}
	count := cfg.Count
	if count <= 0 {
		count = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		key:        strings.TrimSpace(cfg.Key),
		count:      count,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// Search runs a web query. market is a Bing market code such as "en-US".
func (c *Client) Search(ctx context.Context, query, market string) ([]Page, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(c.count))
	if market = strings.TrimSpace(market); market != "" {
		q.Set("mkt", market)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/v7.0/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build bing request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call bing: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read bing response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bing http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode bing response: %w", err)
	}
	return parsed.WebPages.Value, nil
}

// Market maps a short language code to the market Bing expects.
func Market(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "es":
		return "es-US"
	case "":
		return "en-US"
	default:
		l := strings.ToLower(strings.TrimSpace(lang))
		if strings.Contains(l, "-") {
			return lang
		}
		return l + "-US"
	}
}
