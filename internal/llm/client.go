// Package llm wraps the OpenAI-backed external signals: semantic embeddings,
// the same-incident plausibility score, and the support-score judge. Every
// call has a documented neutral fallback; a failure here never aborts the
// fusion pipeline.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/sitrep/internal/model"
	"github.com/ppiankov/sitrep/internal/worker"
)

// maxInput caps text sent to the API
const maxInput = 8000

// Client is a rate-limited OpenAI client. A nil *Client means the signals
// are disabled; construct via NewClient.
type Client struct {
	api     *openai.Client
	cfg     model.LLMConfig
	limiter *worker.Limiter
	log     *logrus.Logger
}

// NewClient creates a client, or nil when no API key is configured
// (callers fall back to neutral values for every signal).
func NewClient(cfg model.LLMConfig, log *logrus.Logger) *Client {
	if cfg.APIKey == "" {
		log.Debug("llm disabled: no API key")
		return nil
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = openai.GPT4oMini
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = string(openai.SmallEmbedding3)
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	return &Client{
		api:     openai.NewClient(cfg.APIKey),
		cfg:     cfg,
		limiter: worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		log:     log,
	}
}

func (c *Client) timeout() time.Duration {
	if c.cfg.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.cfg.TimeoutSeconds) * time.Second
}

// Embed returns the semantic vector for text, or nil when the text is blank
// or the call fails.
func (c *Client) Embed(ctx context.Context, text string) []float32 {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if err := c.limiter.Wait(ctx, "embeddings"); err != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
		Input: []string{truncate(text, maxInput)},
	})
	if err != nil {
		c.log.WithError(err).Warn("embedding failed")
		return nil
	}
	if len(resp.Data) == 0 {
		return nil
	}
	return resp.Data[0].Embedding
}

// Complete runs a single-turn chat completion at low temperature and returns
// the trimmed response text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx, "chat"); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
