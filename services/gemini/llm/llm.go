// Package gemini implements story generation, reading evaluation and emoji
// suggestion on Gemini's OpenAI-compatible chat completions endpoint.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"storybuddy/core"
	"storybuddy/utils/emoji"
)

// FallbackFeedback is returned whenever reading evaluation fails: a child
// mid-practice should never see a provider error.
const FallbackFeedback = "Great job reading! Keep practicing! 🌟"

// Config holds configuration for the Gemini LLM client.
type Config struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

// Client wraps the chat completions API for the three story operations.
type Client struct {
	config Config
	client *openai.Client
	logger *core.Logger
}

// NewClient creates a Gemini client with the provided config.
func NewClient(config Config, logger *core.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	clientCfg := openai.DefaultConfig(config.APIKey)
	clientCfg.BaseURL = config.BaseURL

	return &Client{
		config: config,
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger.With(map[string]interface{}{"component": "gemini"}),
	}
}

// IsConfigured reports whether an API key is present.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// GenerateStory produces a very short story for the given prompt and age
// group.
func (c *Client) GenerateStory(ctx context.Context, prompt, ageGroup string) (string, error) {
	formatted := fmt.Sprintf(`Create a very short, engaging story for children aged %s about: %s.

Requirements:
- Use simple, age-appropriate vocabulary
- Keep it to 2-3 sentences maximum (much shorter)
- Make it educational and fun
- Include descriptive but simple language
- End with a positive message
- Focus on one main character and one simple event
- DO NOT use any emojis in the story text - use only plain text words
- Keep the language simple and clear without any special characters

Story:`, ageGroup, prompt)

	story, err := c.complete(ctx, formatted, 0.7, 1000)
	if err != nil {
		return "", err
	}

	c.logger.With(map[string]interface{}{"prompt": prompt, "age_group": ageGroup}).Info("generated story")
	return story, nil
}

// EvaluateReading compares what the child read to the original story and
// returns encouraging feedback. Any provider failure degrades to the fixed
// fallback message rather than an error.
func (c *Client) EvaluateReading(ctx context.Context, originalStory, spokenText string) string {
	prompt := fmt.Sprintf(`Original story: "%s"

Child read: "%s"

Please provide encouraging feedback for a child learning to read. Compare what they read to the original story. Give positive reinforcement and gentle suggestions if needed. Keep it short, simple, and encouraging. Use emojis to make it fun.

Feedback:`, originalStory, spokenText)

	feedback, err := c.complete(ctx, prompt, 0.3, 500)
	if err != nil {
		c.logger.With(map[string]interface{}{"error": err}).Warn("reading evaluation failed, using fallback feedback")
		return FallbackFeedback
	}
	return feedback
}

// SuggestEmojis returns 3-5 emojis illustrating the given words. Best
// effort: any failure or unusable response falls back to the keyword table.
func (c *Client) SuggestEmojis(ctx context.Context, wordsText string) string {
	if !c.IsConfigured() {
		return emoji.ForWords(wordsText)
	}

	prompt := fmt.Sprintf(`Look at these exact words from a children's story: "%s"

Task: Generate 3-5 emojis that directly represent what is happening in these specific words.
- Be specific to the actual nouns, verbs, and actions mentioned
- If animals are mentioned, use those animal emojis
- If actions are mentioned (running, jumping, playing), use action emojis
- If objects are mentioned, use those object emojis
- Match the mood and specific details of these words

Return ONLY the emoji characters directly, no spaces, no text, no explanations.`, wordsText)

	text, err := c.complete(ctx, prompt, 0.7, 20)
	if err != nil {
		c.logger.With(map[string]interface{}{"error": err}).Debug("emoji suggestion failed, using keyword table")
		return emoji.ForWords(wordsText)
	}

	if extracted := emoji.Extract(text); extracted != "" {
		return extracted
	}
	return emoji.ForWords(wordsText)
}

// complete runs a single-message chat completion and returns the trimmed
// response text.
func (c *Client) complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	if !c.IsConfigured() {
		return "", &core.ProviderError{Provider: "gemini", Err: errors.New("api key not configured")}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &core.ProviderError{Provider: "gemini", Status: apiErr.HTTPStatusCode, Err: err}
		}
		return "", &core.ProviderError{Provider: "gemini", Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &core.ProviderError{Provider: "gemini", Err: errors.New("no choices in response")}
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", &core.ProviderError{Provider: "gemini", Err: errors.New("empty completion")}
	}
	return text, nil
}
