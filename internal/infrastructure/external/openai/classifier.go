package openai

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/ai-reconciliation/internal/application/port"
	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
)

// Classifier implements port.Classifier with a chat completion. The reply is
// returned as-is; decoding and repair happen in the service layer.
type Classifier struct {
	client ChatCompleter
	model  string
	prompt PromptSpec
	logger *zap.Logger
}

// NewClassifier creates a new OpenAI-backed classifier
func NewClassifier(client ChatCompleter, model string, prompt PromptSpec, logger *zap.Logger) *Classifier {
	return &Classifier{
		client: client,
		model:  model,
		prompt: prompt,
		logger: logger,
	}
}

// Classify sends both residual lists in one request
func (c *Classifier) Classify(ctx context.Context, supplierResidual, systemResidual []entity.LineItem) (string, error) {
	supplierJSON, err := json.MarshalIndent(nonNil(supplierResidual), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode supplier items: %w", err)
	}
	systemJSON, err := json.MarshalIndent(nonNil(systemResidual), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode ledger items: %w", err)
	}

	userPrompt, err := renderTemplate(c.prompt.UserTemplate, map[string]string{
		"SupplierItems": string(supplierJSON),
		"SystemItems":   string(systemJSON),
	})
	if err != nil {
		return "", err
	}

	c.logger.Info("Requesting classification",
		zap.String("model", c.model),
		zap.Int("supplier_items", len(supplierResidual)),
		zap.Int("system_items", len(systemResidual)))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.prompt.Temperature,
		MaxTokens:   c.prompt.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		c.logger.Error("OpenAI API call failed", zap.Error(err))
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}

	content, err := firstChoice(resp)
	if err != nil {
		return "", err
	}

	c.logger.Debug("Classification response received", zap.Int("content_length", len(content)))
	return content, nil
}

func nonNil(items []entity.LineItem) []entity.LineItem {
	if items == nil {
		return []entity.LineItem{}
	}
	return items
}

var _ port.Classifier = (*Classifier)(nil)
