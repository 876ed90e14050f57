package elevenlabs

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
	"sync/atomic"
	"time"

	"srtvoice/internal/speech"
	"srtvoice/pkg/httputil"
)

const (
	baseURL = "https://api.elevenlabs.io/v1"
	timeout = 120 * time.Second

	DefaultModel        = "eleven_multilingual_v2"
	DefaultOutputFormat = "mp3_44100_128"
)

var ErrQuota = errors.New("elevenlabs quota exceeded")

type Client struct {
	apiKeys    []string
	keyIndex   uint64
	httpClient httputil.Doer
	baseURL    string
	cfg        Config
}

type Config struct {
	APIKeys      []string
	BaseURL      string
	VoiceID      string
	Model        string
	OutputFormat string
	LanguageCode string
	Speed        float64
	Stability    float64
	Similarity   float64
}

type option func(*Client)

func withBaseURL(url string) option {
	return func(c *Client) {
		c.baseURL = url
	}
}

func withHTTPClient(client httputil.Doer) option {
	return func(c *Client) {
		c.httpClient = client
	}
}

func NewClient(cfg Config) *Client {
	return newClient(cfg, withHTTPClient(httputil.NewRetryClient(&http.Client{Timeout: timeout}, httputil.DefaultRetryConfig())))
}

func newClient(cfg Config, opts ...option) *Client {
	keys := cfg.APIKeys
	if len(keys) == 0 {
		keys = []string{""}
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = DefaultOutputFormat
	}

	c := &Client{
		apiKeys:    keys,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		cfg:        cfg,
	}
	if cfg.BaseURL != "" {
		c.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CacheKey identifies everything besides the text that shapes the audio.
func (c *Client) CacheKey() string {
	return fmt.Sprintf("elevenlabs|%s|%s|%s|%s|%.2f|%.2f|%.2f",
		c.cfg.VoiceID, c.cfg.Model, c.cfg.OutputFormat, c.cfg.LanguageCode,
		c.cfg.Speed, c.cfg.Stability, c.cfg.Similarity)
}

// Synthesize rotates to the next API key when one runs out of quota.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	endpoint := c.buildURL()

	startKey := c.nextAPIKey()
	data, err := c.doRequestWithKey(ctx, endpoint, text, startKey)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, ErrQuota) {
		return nil, err
	}

	for i := 1; i < len(c.apiKeys); i++ {
		key := c.getKeyAtOffset(i)
		if key == startKey {
			continue
		}
		data, err = c.doRequestWithKey(ctx, endpoint, text, key)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrQuota) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("all API keys exhausted: %w", err)
}

func (c *Client) nextAPIKey() string {
	if len(c.apiKeys) == 1 {
		return c.apiKeys[0]
	}
	idx := atomic.AddUint64(&c.keyIndex, 1)
	return c.apiKeys[idx%uint64(len(c.apiKeys))]
}

func (c *Client) getKeyAtOffset(offset int) string {
	idx := atomic.LoadUint64(&c.keyIndex)
	return c.apiKeys[(idx+uint64(offset))%uint64(len(c.apiKeys))]
}

func (c *Client) doRequestWithKey(ctx context.Context, endpoint, text, apiKey string) ([]byte, error) {
	req, err := c.buildRequest(ctx, endpoint, text, apiKey)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if isQuotaResponse(resp.StatusCode, body) {
			return nil, fmt.Errorf("%w: %s - %s", ErrQuota, resp.Status, string(body))
		}
		return nil, fmt.Errorf("elevenlabs: %s - %s", resp.Status, string(body))
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("elevenlabs: empty audio response")
	}

	return body, nil
}

func isQuotaResponse(status int, body []byte) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	msg := string(body)
	return strings.Contains(msg, "quota_exceeded") || strings.Contains(msg, "rate_limit")
}

func (c *Client) buildURL() string {
	q := url.Values{}
	q.Set("output_format", c.cfg.OutputFormat)
	return fmt.Sprintf("%s/text-to-speech/%s?%s", c.baseURL, url.PathEscape(c.cfg.VoiceID), q.Encode())
}

type voiceSettings struct {
	Stability  float64 `json:"stability"`
	Similarity float64 `json:"similarity_boost"`
	Speed      float64 `json:"speed,omitempty"`
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	LanguageCode  string        `json:"language_code,omitempty"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

func (c *Client) buildRequest(ctx context.Context, endpoint, text, apiKey string) (*http.Request, error) {
	data, err := json.Marshal(synthesisRequest{
		Text:         text,
		ModelID:      c.cfg.Model,
		LanguageCode: c.cfg.LanguageCode,
		VoiceSettings: voiceSettings{
			Stability:  c.cfg.Stability,
			Similarity: c.cfg.Similarity,
			Speed:      c.cfg.Speed,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", apiKey)

	return req, nil
}

var _ speech.NamedProvider = (*Client)(nil)
