package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Additional-Code/tenzai/internal/config"
)

// ErrNoCredential is returned when the model API key is missing.
var ErrNoCredential = errors.New("assistant: model api key not configured")

// SystemPrompt frames every model call.
const SystemPrompt = `คุณคือผู้ช่วยร้านอาหารญี่ปุ่น Tenzai Sushi
- ตอบสั้นๆ กะทัดรัด ไม่เกิน 2-3 ประโยค
- พูดแบบเป็นมิตร ใช้ "ค่ะ/ครับ"
- ถ้าเกี่ยวกับเมนูหรือการสั่งอาหาร ให้แนะนำให้กด "สั่งอาหาร"
- ถ้าไม่เข้าใจคำถาม ให้ตอบว่า "ขออภัยค่ะ ไม่เข้าใจคำถาม ลองถามใหม่นะคะ"
- เวลาเปิด: 10:00-21:00 น. รับออเดอร์ล่าสุด 20:30 น.
- ที่อยู่: 123 ถนนสุขุมวิท แขวงคลองตัน เขตวัฒนา กรุงเทพฯ`

// Generator produces a completion for a prompt.
type Generator interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// StatusError is a non-200 answer from the model API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("assistant: model api returned %d: %s", e.StatusCode, e.Body)
}

// OpenRouterGenerator calls an OpenAI-compatible chat completions endpoint.
type OpenRouterGenerator struct {
	baseURL     string
	apiKey      string
	model       string
	referer     string
	title       string
	maxTokens   int
	temperature float64
	http        *http.Client
}

// NewOpenRouterGenerator builds a generator from the AI config section.
func NewOpenRouterGenerator(cfg config.AI) *OpenRouterGenerator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &OpenRouterGenerator{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		referer:     cfg.Referer,
		title:       cfg.Title,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		http:        &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one system and one user message and returns the first choice.
func (g *OpenRouterGenerator) Complete(ctx context.Context, system, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", ErrNoCredential
	}
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if g.referer != "" {
		req.Header.Set("HTTP-Referer", g.referer)
	}
	if g.title != "" {
		req.Header.Set("X-Title", g.title)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("assistant: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("assistant: empty choices")
	}
	return out.Choices[0].Message.Content, nil
}

// MockGenerator answers without a network call, for local runs and tests.
type MockGenerator struct {
	Reply string
	Err   error
}

// Complete returns the canned reply or error.
func (m MockGenerator) Complete(_ context.Context, _ string, prompt string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if m.Reply != "" {
		return m.Reply, nil
	}
	return "🍣 ขอบคุณที่สอบถามค่ะ: " + prompt, nil
}
