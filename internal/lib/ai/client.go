// Package ai relays visitor questions to Google Gemini under a fixed
// assistant persona.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/config"
	"google.golang.org/genai"
)

var (
	// ErrNotConfigured is returned by Reply when no API key is set.
	ErrNotConfigured = errors.New("ai: no API key configured")

	// ErrEmptyReply is returned when the model produced no text.
	ErrEmptyReply = errors.New("ai: empty reply")
)

// generator is implemented by *genai.Models.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client sends one question per call. It keeps no conversation state.
type Client struct {
	gen          generator
	model        string
	systemPrompt string
	timeout      time.Duration
}

// NewClient builds a Gemini client from cfg.AI. Without an API key it
// returns a client whose Reply always fails with ErrNotConfigured.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	c := &Client{
		model:        cfg.AI.Model,
		systemPrompt: SystemPrompt(cfg.AI.OwnerName),
		timeout:      cfg.AI.Timeout,
	}
	if cfg.AI.APIKey == "" {
		return c, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.AI.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	c.gen = client.Models
	return c, nil
}

// Configured reports whether Reply can reach a model.
func (c *Client) Configured() bool {
	return c != nil && c.gen != nil
}

// Reply forwards message and returns the model's text verbatim.
func (c *Client) Reply(ctx context.Context, message string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.gen.GenerateContent(ctx,
		c.model,
		[]*genai.Content{genai.NewContentFromText(message, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(c.systemPrompt, genai.RoleUser),
		},
	)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	if resp == nil {
		return "", ErrEmptyReply
	}
	reply := resp.Text()
	if strings.TrimSpace(reply) == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}
