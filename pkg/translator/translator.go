package translator

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

const apiVersion = "3.0"

type Config struct {
	Endpoint string        `split_words:"true" default:"https://api.cognitive.microsofttranslator.com"`
	Key      string        `split_words:"true"`
	Region   string        `split_words:"true"`
	Timeout  time.Duration `split_words:"true" default:"10s"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Key) != ""
}

// Client calls the Azure Translator text REST API.
type Client struct {
	endpoint   string
	key        string
	region     string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid translator endpoint: %w", err)
	}
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, errors.New("translator key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		key:        strings.TrimSpace(cfg.Key),
		region:     strings.TrimSpace(cfg.Region),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

type textItem struct {
	Text string `json:"Text"`
}

type translateItem struct {
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

type detectItem struct {
	Language string  `json:"language"`
	Score    float64 `json:"score"`
}

// Translate translates text into target. An empty or "auto" source lets the
// service detect the input language.
func (c *Client) Translate(ctx context.Context, text, target, source string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", errors.New("target language is required")
	}
	q := url.Values{}
	q.Set("api-version", apiVersion)
	q.Set("to", target)
	if s := strings.TrimSpace(source); s != "" && !strings.EqualFold(s, "auto") {
		q.Set("from", s)
	}

	var out []translateItem
	if err := c.post(ctx, "/translate", q, []textItem{{Text: text}}, &out); err != nil {
		return "", err
	}
	if len(out) == 0 || len(out[0].Translations) == 0 {
		return "", errors.New("translator returned no translations")
	}
	return out[0].Translations[0].Text, nil
}

func (c *Client) Detect(ctx context.Context, text string) (string, error) {
	q := url.Values{}
	q.Set("api-version", apiVersion)

	var out []detectItem
	if err := c.post(ctx, "/detect", q, []textItem{{Text: text}}, &out); err != nil {
		return "", err
	}
	if len(out) == 0 || out[0].Language == "" {
		return "", errors.New("translator returned no language")
	}
	return out[0].Language, nil
}

func (c *Client) post(ctx context.Context, path string, q url.Values, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal translator request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path+"?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build translator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	if c.region != "" {
		req.Header.Set("Ocp-Apim-Subscription-Region", c.region)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call translator: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read translator response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("translator http status=%d body=%s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode translator response: %w", err)
	}
	return nil
}
