package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements Completer using Google's Gemini models.
type GeminiProvider struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	logger    *zap.Logger
}

// NewGeminiProvider initializes a new Gemini client.
// apiKey should be provided from environment variables.
func NewGeminiProvider(ctx context.Context, apiKey, modelName string, logger *zap.Logger) (*GeminiProvider, error) {
	return newGeminiProvider(ctx, apiKey, modelName, http.DefaultTransport, logger)
}

func newGeminiProvider(ctx context.Context, apiKey, modelName string, base http.RoundTripper, logger *zap.Logger) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: missing api key")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// The SDK ignores WithAPIKey for REST calls once an HTTP client is set, so the
	// transport adds the key itself. The key option still authenticates the
	// clients the SDK builds without the HTTP client.
	httpClient := &http.Client{Transport: &geminiTransport{apiKey: apiKey, base: base}}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey), option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	// Force JSON response for structured parsing.
	model.ResponseMIMEType = "application/json"

	// Trip plans should vary between runs but keep the requested shape.
	model.SetTemperature(0.7)

	return &GeminiProvider{
		client:    client,
		model:     model,
		modelName: modelName,
		logger:    logger.Named("gemini"),
	}, nil
}

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() {
	p.client.Close()
}

func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates from gemini", ErrEmptyResponse)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("%w: gemini returned no text parts", ErrEmptyResponse)
	}

	if resp.UsageMetadata != nil {
		p.logger.Debug("gemini completion",
			zap.String("model", p.modelName),
			zap.Int32("prompt_tokens", resp.UsageMetadata.PromptTokenCount),
			zap.Int32("completion_tokens", resp.UsageMetadata.CandidatesTokenCount),
		)
	}
	return text.String(), nil
}

// geminiTransport authenticates REST calls and reports 503 answers as transport
// errors. The SDK retries GenerateContent on a 503 response until the context
// ends, but never retries a transport error, so a completion is one request.
type geminiTransport struct {
	apiKey string
	base   http.RoundTripper
}

func (t *geminiTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	q := r.URL.Query()
	q.Set("key", t.apiKey)
	r.URL.RawQuery = q.Encode()

	resp, err := t.base.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		return resp, nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	_ = resp.Body.Close()
	return nil, fmt.Errorf("gemini: %s: %s", resp.Status, strings.TrimSpace(string(body)))
}
