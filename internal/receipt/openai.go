package receipt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/expense-claims/internal"
)

const scanPrompt = `You extract expense report fields from receipts.
Answer with ONLY a JSON object, no markdown and no commentary.
Fields:
- title (string)
- amount (number)
- date (YYYY-MM-DD)
- category (transport|meals|lodging|other)
- description (string)
- merchant (string)
- currency (string, e.g. EUR)
- confidence (number 0..1)
- warnings (array of strings)
When a value is uncertain leave it empty or 0 and add a warning.`

// OpenAIScanner calls an OpenAI compatible chat completions endpoint with the
// receipt attached as a data URL.
type OpenAIScanner struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	logger     *slog.Logger
}

func NewOpenAIScanner(cfg internal.OCRConfig, logger *slog.Logger) *OpenAIScanner {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIScanner{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		logger:     logger,
	}
}

// NewScanner picks the OpenAI adapter when a key is configured.
func NewScanner(cfg internal.OCRConfig, logger *slog.Logger) Scanner {
	if cfg.APIKey == "" {
		logger.Warn("no OCR api key configured, receipt scanning disabled")
		return NoopScanner{}
	}
	return NewOpenAIScanner(cfg, logger)
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (s *OpenAIScanner) Scan(ctx context.Context, upload *Upload, mimeType string) (*Draft, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(upload.Data))

	body, err := json.Marshal(chatRequest{
		Model:       s.model,
		Temperature: 0,
		Messages: []chatMessage{
			{Role: "system", Content: scanPrompt},
			{Role: "user", Content: []map[string]interface{}{
				{"type": "text", "text": "Read this receipt and extract the fields."},
				{"type": "image_url", "image_url": map[string]string{"url": dataURL}},
			}},
		},
	})
	if err != nil {
		return nil, internal.NewInternalError("failed to encode scan request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, internal.NewInternalError("failed to build scan request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, internal.ErrScanFailed.WithCause(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, internal.ErrScanFailed.WithCause(err)
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Error("ocr provider returned an error", "status", resp.StatusCode)
		return nil, internal.ErrScanFailed.WithCause(fmt.Errorf("status %d", resp.StatusCode))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Choices) == 0 {
		return emptyDraft(errNotJSON), nil
	}
	return ParseDraft(parsed.Choices[0].Message.Content), nil
}
