package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// Vision is the black-box image understanding capability.
type Vision interface {
	ExtractText(ctx context.Context, imageURL string) (string, error)
	JudgeLocation(ctx context.Context, imageURL, expected string) (LocationJudgment, error)
}

// LocationJudgment is the model's answer about where a photo was taken.
// IsValid is nil when no expected location was asked about, or the model omitted it.
type LocationJudgment struct {
	IsValid  *bool
	Location string
}

const (
	textPrompt             = `Extract all text from this image. Format as JSON with extracted text in a "text" field.`
	locationPromptExpected = `Analyze this image and determine if it shows %s. Return JSON with "isValid" (boolean) and "detectedLocation" (string).`
	locationPromptOpen     = `Analyze this image and identify the location shown. Return JSON with "location" (string describing the place).`

	textMaxTokens     = 1000
	locationMaxTokens = 300
)

type VisionClientConfig struct {
	URL           string
	APIKey        string
	Model         string
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
}

// VisionClient talks to an OpenAI-compatible chat completions endpoint.
type VisionClient struct {
	url     string
	apiKey  string
	model   string
	http    *http.Client
	limiter *rate.Limiter
}

func NewVisionClient(cfg VisionClientConfig) *VisionClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &VisionClient{
		url:     cfg.URL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
	}
}

type chatContent struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []chatContent `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

func (c *VisionClient) ExtractText(ctx context.Context, imageURL string) (string, error) {
	content, err := c.complete(ctx, textPrompt, imageURL, textMaxTokens)
	if err != nil {
		return "", err
	}
	body := stripCodeFence(content)
	if gjson.Valid(body) {
		if text := gjson.Get(body, "text"); text.Exists() && text.String() != "" {
			return text.String(), nil
		}
	}
	return content, nil
}

func (c *VisionClient) JudgeLocation(ctx context.Context, imageURL, expected string) (LocationJudgment, error) {
	prompt := locationPromptOpen
	if expected != "" {
		prompt = fmt.Sprintf(locationPromptExpected, expected)
	}
	content, err := c.complete(ctx, prompt, imageURL, locationMaxTokens)
	if err != nil {
		return LocationJudgment{}, err
	}

	body := stripCodeFence(content)
	if !gjson.Valid(body) {
		// Prose answer; keep it as the description.
		return LocationJudgment{Location: strings.TrimSpace(content)}, nil
	}

	var j LocationJudgment
	if expected != "" {
		if v := gjson.Get(body, "isValid"); v.IsBool() {
			b := v.Bool()
			j.IsValid = &b
		}
	}
	j.Location = gjson.Get(body, "detectedLocation").String()
	if j.Location == "" {
		j.Location = gjson.Get(body, "location").String()
	}
	return j, nil
}

func (c *VisionClient) complete(ctx context.Context, prompt, imageURL string, maxTokens int) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("vision rate limit: %w", err)
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatContent{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageRef{URL: imageURL}},
			},
		}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal vision request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read vision response: %w", err)
	}
	if msg := gjson.GetBytes(raw, "error.message"); msg.Exists() {
		return "", fmt.Errorf("vision error (status %d): %s", resp.StatusCode, msg.String())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("vision returned status %d", resp.StatusCode)
	}

	content := gjson.GetBytes(raw, "choices.0.message.content").String()
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("vision returned no content")
	}
	return content, nil
}

// stripCodeFence unwraps ```json ... ``` blocks models like to emit.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
