package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidtools/internal/subtitles"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com"
	defaultOpenAIModel   = "whisper-1"
	openAIAPITimeout     = 10 * time.Minute
	openAITranscribePath = "/v1/audio/transcriptions"
)

type openAIResponse struct {
	Text     string          `json:"text"`
	Language string          `json:"language"`
	Duration float64         `json:"duration"`
	Segments []openAISegment `json:"segments"`
}

type openAISegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// OpenAIClient calls the OpenAI audio transcription API.
type OpenAIClient struct {
	baseURL  string
	apiKey   string
	model    string
	language string
	http     *http.Client
}

// OpenAIOption customizes a client.
type OpenAIOption func(*OpenAIClient)

// WithOpenAIHTTPClient overrides the HTTP client used for requests.
func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(c *OpenAIClient) {
		if client != nil {
			c.http = client
		}
	}
}

// WithOpenAIBaseURL overrides the default base URL.
func WithOpenAIBaseURL(baseURL string) OpenAIOption {
	return func(c *OpenAIClient) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithOpenAIModel overrides the transcription model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		if strings.TrimSpace(model) != "" {
			c.model = strings.TrimSpace(model)
		}
	}
}

// WithOpenAILanguage sets an ISO 639-1 language hint.
func WithOpenAILanguage(language string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.language = strings.TrimSpace(language)
	}
}

// NewOpenAIClient constructs a client for the OpenAI transcription API.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	client := &OpenAIClient{
		baseURL: defaultOpenAIBaseURL,
		apiKey:  strings.TrimSpace(apiKey),
		model:   defaultOpenAIModel,
		http:    &http.Client{Timeout: openAIAPITimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Name implements Provider.
func (c *OpenAIClient) Name() string { return "openai" }

// Transcribe uploads the audio file and converts the returned segments.
func (c *OpenAIClient) Transcribe(ctx context.Context, audioPath string) ([]subtitles.Utterance, error) {
	if c == nil {
		return nil, fmt.Errorf("openai client: nil client")
	}
	audioPath = strings.TrimSpace(audioPath)
	if audioPath == "" {
		return nil, fmt.Errorf("openai client: empty file path")
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("openai client: missing api key")
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("openai client: open audio: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fields := [][2]string{
		{"model", c.model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "segment"},
	}
	if c.language != "" {
		fields = append(fields, [2]string{"language", c.language})
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("openai client: write %s field: %w", f[0], err)
		}
	}
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("openai client: create file field: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("openai client: copy audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("openai client: close multipart writer: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+openAITranscribePath, body)
	if err != nil {
		return nil, fmt.Errorf("openai client: build request: %w", err)
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())
	request.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(request)
	if err != nil {
		return nil, fmt.Errorf("openai client: http request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai client: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai client: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("openai client: decode response: %w", err)
	}
	return parsed.utterances(), nil
}

func (r openAIResponse) utterances() []subtitles.Utterance {
	if len(r.Segments) == 0 {
		return linesToUtterances(r.Text)
	}
	out := make([]subtitles.Utterance, 0, len(r.Segments))
	for _, seg := range r.Segments {
		out = append(out, subtitles.Utterance{
			Text:  strings.TrimSpace(seg.Text),
			Start: seg.Start,
			End:   seg.End,
		})
	}
	return out
}
