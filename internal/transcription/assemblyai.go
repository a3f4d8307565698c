package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"vidtools/internal/logging"
	"vidtools/internal/subtitles"
)

const (
	defaultAssemblyAIBaseURL = "https://api.assemblyai.com"
	defaultPollInterval      = 3 * time.Second
	defaultAssemblyAITimeout = 10 * time.Minute
	assemblyAIRequestTimeout = 5 * time.Minute

	statusCompleted = "completed"
	statusError     = "error"
)

type assemblyUploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type assemblyTranscriptRequest struct {
	AudioURL      string `json:"audio_url"`
	SpeakerLabels bool   `json:"speaker_labels"`
	LanguageCode  string `json:"language_code,omitempty"`
}

type assemblyTranscript struct {
	ID         string              `json:"id"`
	Status     string              `json:"status"`
	Error      string              `json:"error"`
	Text       string              `json:"text"`
	Utterances []assemblyUtterance `json:"utterances"`
}

type assemblyUtterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
}

// AssemblyAIClient uploads audio to AssemblyAI and polls until the
// transcript is ready.
type AssemblyAIClient struct {
	baseURL  string
	apiKey   string
	language string
	interval time.Duration
	timeout  time.Duration
	http     *http.Client
	logger   *slog.Logger
}

// AssemblyAIOption customizes a client.
type AssemblyAIOption func(*AssemblyAIClient)

// WithAssemblyAIHTTPClient overrides the HTTP client used for requests.
func WithAssemblyAIHTTPClient(client *http.Client) AssemblyAIOption {
	return func(c *AssemblyAIClient) {
		if client != nil {
			c.http = client
		}
	}
}

// WithAssemblyAIBaseURL overrides the default base URL.
func WithAssemblyAIBaseURL(baseURL string) AssemblyAIOption {
	return func(c *AssemblyAIClient) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithPollInterval sets how often transcript status is polled.
func WithPollInterval(interval time.Duration) AssemblyAIOption {
	return func(c *AssemblyAIClient) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithAssemblyAITimeout bounds the whole upload-and-poll cycle.
func WithAssemblyAITimeout(timeout time.Duration) AssemblyAIOption {
	return func(c *AssemblyAIClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithAssemblyAILanguage sets an ISO 639-1 language hint.
func WithAssemblyAILanguage(language string) AssemblyAIOption {
	return func(c *AssemblyAIClient) {
		c.language = strings.TrimSpace(language)
	}
}

// WithAssemblyAILogger sets the logger used for poll progress.
func WithAssemblyAILogger(logger *slog.Logger) AssemblyAIOption {
	return func(c *AssemblyAIClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewAssemblyAIClient constructs an AssemblyAI client.
func NewAssemblyAIClient(apiKey string, opts ...AssemblyAIOption) *AssemblyAIClient {
	client := &AssemblyAIClient{
		baseURL:  defaultAssemblyAIBaseURL,
		apiKey:   strings.TrimSpace(apiKey),
		interval: defaultPollInterval,
		timeout:  defaultAssemblyAITimeout,
		http:     &http.Client{Timeout: assemblyAIRequestTimeout},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Name implements Provider.
func (c *AssemblyAIClient) Name() string { return "assemblyai" }

// Transcribe uploads audioPath, requests a speaker-labelled transcript and
// waits for it.
func (c *AssemblyAIClient) Transcribe(ctx context.Context, audioPath string) ([]subtitles.Utterance, error) {
	if c == nil {
		return nil, fmt.Errorf("assemblyai client: nil client")
	}
	if strings.TrimSpace(audioPath) == "" {
		return nil, fmt.Errorf("assemblyai client: empty file path")
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("assemblyai client: missing api key")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	uploadURL, err := c.upload(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	var created assemblyTranscript
	req := assemblyTranscriptRequest{AudioURL: uploadURL, SpeakerLabels: true, LanguageCode: c.language}
	if err := c.doJSON(ctx, http.MethodPost, "/v2/transcript", req, &created); err != nil {
		return nil, fmt.Errorf("assemblyai client: create transcript: %w", err)
	}
	if created.ID == "" {
		return nil, fmt.Errorf("assemblyai client: create transcript: empty id")
	}

	transcript, err := c.poll(ctx, created.ID)
	if err != nil {
		return nil, err
	}
	return transcript.utterances(), nil
}

func (c *AssemblyAIClient) upload(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("assemblyai client: open audio: %w", err)
	}
	defer file.Close()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/upload", file)
	if err != nil {
		return "", fmt.Errorf("assemblyai client: build upload request: %w", err)
	}
	request.Header.Set("Content-Type", "application/octet-stream")
	request.Header.Set("Authorization", c.apiKey)

	var parsed assemblyUploadResponse
	if err := c.send(request, &parsed); err != nil {
		return "", fmt.Errorf("assemblyai client: upload: %w", err)
	}
	if parsed.UploadURL == "" {
		return "", fmt.Errorf("assemblyai client: upload: empty upload_url")
	}
	return parsed.UploadURL, nil
}

func (c *AssemblyAIClient) poll(ctx context.Context, id string) (assemblyTranscript, error) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	attempts := 0
	for {
		var transcript assemblyTranscript
		if err := c.doJSON(ctx, http.MethodGet, "/v2/transcript/"+id, nil, &transcript); err != nil {
			return transcript, fmt.Errorf("assemblyai client: poll transcript %s: %w", id, err)
		}
		attempts++
		switch transcript.Status {
		case statusCompleted:
			return transcript, nil
		case statusError:
			return transcript, fmt.Errorf("assemblyai client: transcript %s failed: %s", id, strings.TrimSpace(transcript.Error))
		}
		c.logger.Debug("assemblyai transcript pending",
			logging.String("transcript_id", id),
			logging.String("status", transcript.Status),
			logging.Int("attempt", attempts),
		)

		select {
		case <-ctx.Done():
			return transcript, fmt.Errorf("assemblyai client: waiting for transcript %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *AssemblyAIClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Authorization", c.apiKey)
	return c.send(request, out)
}

func (c *AssemblyAIClient) send(request *http.Request, out any) error {
	resp, err := c.http.Do(request)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (t assemblyTranscript) utterances() []subtitles.Utterance {
	if len(t.Utterances) == 0 {
		return linesToUtterances(t.Text)
	}
	out := make([]subtitles.Utterance, 0, len(t.Utterances))
	for _, u := range t.Utterances {
		out = append(out, subtitles.Utterance{
			Text:    strings.TrimSpace(u.Text),
			Start:   float64(u.Start) / 1000,
			End:     float64(u.End) / 1000,
			Speaker: u.Speaker,
		})
	}
	return out
}
