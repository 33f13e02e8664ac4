package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ollama/ollama/api"
	"github.com/raterly/backend/internal/config"
	"github.com/raterly/backend/pkg/logger"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// neutralSentiment is the default assigned when scoring is unavailable.
const neutralSentiment = 0.5

// topicVocabulary is the closed label set topics are matched against.
// Free-form model output outside this list is discarded.
var topicVocabulary = []string{
	"service", "food", "cleanliness", "price", "wait time",
	"atmosphere", "staff", "quality", "location", "selection",
}

// Enricher scores and labels review text via an external model.
type Enricher interface {
	ScoreSentiment(ctx context.Context, text string) (float64, error)
	ExtractTopics(ctx context.Context, text string) ([]string, error)
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// AIEnricher dispatches to the configured provider. The provider switch
// mirrors the chat-completion shape of each vendor SDK; transcription is
// only available on OpenAI-compatible endpoints.
type AIEnricher struct {
	cfg *config.EnrichmentConfig
}

func NewAIEnricher(cfg *config.EnrichmentConfig) *AIEnricher {
	return &AIEnricher{cfg: cfg}
}

// ScoreSentiment asks the model for a 0..1 sentiment value.
func (e *AIEnricher) ScoreSentiment(ctx context.Context, text string) (float64, error) {
	prompt := fmt.Sprintf(
		"Rate the sentiment of this customer review on a scale from 0.0 (very negative) to 1.0 (very positive). "+
			"Respond with only the number.\n\nReview: %s", text)
	content, err := e.complete(ctx, prompt)
	if err != nil {
		return 0, err
	}
	score, err := parseSentiment(content)
	if err != nil {
		return 0, fmt.Errorf("unparseable sentiment response %q: %w", content, err)
	}
	return score, nil
}

// ExtractTopics asks the model to pick labels from the fixed vocabulary.
func (e *AIEnricher) ExtractTopics(ctx context.Context, text string) ([]string, error) {
	prompt := fmt.Sprintf(
		"Which of these topics does the customer review mention: %s? "+
			"Respond with a comma-separated list of matching topics only, or 'none'.\n\nReview: %s",
		strings.Join(topicVocabulary, ", "), text)
	content, err := e.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseTopics(content), nil
}

// Transcribe converts review audio to text through the Whisper endpoint.
func (e *AIEnricher) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	switch e.cfg.Provider {
	case "", "openai":
	default:
		return "", fmt.Errorf("transcription not supported on provider %q", e.cfg.Provider)
	}

	clientConfig := openai.DefaultConfig(e.cfg.APIKey)
	if e.cfg.BaseURL != "" {
		clientConfig.BaseURL = e.cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	model := e.cfg.WhisperModel
	if model == "" {
		model = "whisper-1"
	}
	resp, err := client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		Reader:   bytes.NewReader(audio),
		FilePath: filename,
	})
	if err != nil {
		return "", fmt.Errorf("transcription error: %w", err)
	}
	return resp.Text, nil
}

// complete dispatches a single-turn prompt to the configured provider.
func (e *AIEnricher) complete(ctx context.Context, prompt string) (string, error) {
	switch e.cfg.Provider {
	case "anthropic":
		return e.completeAnthropic(ctx, prompt)
	case "ollama":
		return e.completeOllama(ctx, prompt)
	case "gemini":
		return e.completeGemini(ctx, prompt)
	default:
		// openai and OpenAI-compatible services
		return e.completeOpenAI(ctx, prompt)
	}
}

func (e *AIEnricher) completeOpenAI(ctx context.Context, prompt string) (string, error) {
	clientConfig := openai.DefaultConfig(e.cfg.APIKey)
	if e.cfg.BaseURL != "" {
		clientConfig.BaseURL = e.cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

func (e *AIEnricher) completeAnthropic(ctx context.Context, prompt string) (string, error) {
	client := anthropic.NewClient(
		option.WithAPIKey(e.cfg.APIKey),
	)

	model := e.cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 256,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	return content, nil
}

func (e *AIEnricher) completeOllama(ctx context.Context, prompt string) (string, error) {
	baseURL := e.cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid Ollama base URL: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	model := e.cfg.Model
	if model == "" {
		model = "llama3"
	}

	var content strings.Builder
	err = client.Chat(ctx, &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("Ollama API error: %w", err)
	}
	return content.String(), nil
}

func (e *AIEnricher) completeGemini(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: e.cfg.APIKey,
	})
	if err != nil {
		return "", fmt.Errorf("Gemini client error: %w", err)
	}

	model := e.cfg.Model
	if model == "" {
		model = "gemini-3.0-flash"
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	return resp.Text(), nil
}

var sentimentPattern = regexp.MustCompile(`(?:0?\.\d+|[01](?:\.0+)?)`)

// parseSentiment pulls the first decimal out of a model response and clamps
// it into [0, 1].
func parseSentiment(content string) (float64, error) {
	match := sentimentPattern.FindString(content)
	if match == "" {
		return 0, fmt.Errorf("no numeric value found")
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, err
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}

// parseTopics keeps only comma-separated labels present in the vocabulary.
func parseTopics(content string) []string {
	var topics []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(content, ",") {
		label := strings.ToLower(strings.TrimSpace(part))
		for _, known := range topicVocabulary {
			if label == known && !seen[known] {
				topics = append(topics, known)
				seen[known] = true
			}
		}
	}
	return topics
}

// SafeEnricher degrades scoring failures to neutral defaults so collaborator
// downtime never blocks review intake. Transcription errors still propagate
// because the async worker retries them.
type SafeEnricher struct {
	inner Enricher
}

func NewSafeEnricher(inner Enricher) *SafeEnricher {
	return &SafeEnricher{inner: inner}
}

func (s *SafeEnricher) ScoreSentiment(ctx context.Context, text string) float64 {
	if text == "" {
		return neutralSentiment
	}
	score, err := s.inner.ScoreSentiment(ctx, text)
	if err != nil {
		logger.Warnf("sentiment scoring degraded to neutral: %v", (&EnrichmentUnavailableError{Err: err}).Error())
		return neutralSentiment
	}
	return score
}

func (s *SafeEnricher) ExtractTopics(ctx context.Context, text string) []string {
	if text == "" {
		return nil
	}
	topics, err := s.inner.ExtractTopics(ctx, text)
	if err != nil {
		logger.Warnf("topic extraction skipped: %v", (&EnrichmentUnavailableError{Err: err}).Error())
		return nil
	}
	return topics
}

func (s *SafeEnricher) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return s.inner.Transcribe(ctx, audio, filename)
}
