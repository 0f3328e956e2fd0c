// Package openai adapts the OpenAI API to the embedder and answer
// generator ports. Calls run through the shared resilience executor so
// transient API failures are retried and sustained outages trip the
// breaker instead of piling up.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net"

	openai "github.com/sashabaranov/go-openai"

	"github.com/startupscout/scout/internal/infrastructure/resilience"
)

type Client struct {
	api         *openai.Client
	embedModel  string
	chatModel   string
	temperature float32
	maxTokens   int
	executor    *resilience.Executor
}

type Options struct {
	EmbedModel  string
	ChatModel   string
	Temperature float32
	MaxTokens   int
	Executor    *resilience.Executor
}

func New(apiKey string, options Options) *Client {
	if options.EmbedModel == "" {
		options.EmbedModel = string(openai.SmallEmbedding3)
	}
	if options.ChatModel == "" {
		options.ChatModel = openai.GPT4oMini
	}
	if options.MaxTokens <= 0 {
		options.MaxTokens = 600
	}
	return &Client{
		api:         openai.NewClient(apiKey),
		embedModel:  options.EmbedModel,
		chatModel:   options.ChatModel,
		temperature: options.Temperature,
		maxTokens:   options.MaxTokens,
		executor:    options.Executor,
	}
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var embedding []float32

	call := func(callCtx context.Context) error {
		resp, err := c.api.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(c.embedModel),
			Input: []string{text},
		})
		if err != nil {
			return fmt.Errorf("create embedding: %w", err)
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return fmt.Errorf("create embedding: empty result")
		}
		embedding = resp.Data[0].Embedding
		return nil
	}

	if err := c.execute(ctx, "openai.embed", call); err != nil {
		return nil, err
	}
	return embedding, nil
}

func (c *Client) GenerateAnswer(ctx context.Context, question, contextBlock string) (string, error) {
	var answer string

	call := func(callCtx context.Context) error {
		resp, err := c.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:       c.chatModel,
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: styleSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: buildAnswerPrompt(question, contextBlock)},
			},
		})
		if err != nil {
			return fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("chat completion: no choices returned")
		}
		answer = resp.Choices[0].Message.Content
		return nil
	}

	if err := c.execute(ctx, "openai.chat", call); err != nil {
		return "", err
	}
	return answer, nil
}

func (c *Client) execute(ctx context.Context, operation string, call func(context.Context) error) error {
	if c.executor != nil {
		return c.executor.Execute(ctx, operation, call, classifyOpenAIError)
	}
	return call(ctx)
}

func classifyOpenAIError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 408, 429, 500, 502, 503, 504:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
