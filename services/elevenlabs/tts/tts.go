// Package elevenlabs wraps the ElevenLabs REST text-to-speech API with the
// two voice profiles this system needs: one for full paragraphs and a much
// more stable one for isolated words.
package elevenlabs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"storybuddy/core"
)

// Config holds configuration for the ElevenLabs TTS client.
type Config struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	VoiceID string `json:"voice_id"`
	ModelID string `json:"model_id"`
}

// VoiceSettings is the ElevenLabs voice_settings request object.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// ParagraphProfile is used for full-text narration: high stability for
// clear enunciation at natural pacing.
var ParagraphProfile = VoiceSettings{
	Stability:       0.9,
	SimilarityBoost: 0.8,
	Style:           0.0,
	UseSpeakerBoost: true,
}

// WordProfile is used for single-word clips. Near-maximum stability and
// similarity with zero style is required here: the paragraph profile
// produces unacceptably unclear enunciation on isolated words.
var WordProfile = VoiceSettings{
	Stability:       0.98,
	SimilarityBoost: 0.95,
	Style:           0.0,
	UseSpeakerBoost: true,
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// Client is a REST client for the ElevenLabs text-to-speech endpoint.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *core.Logger
}

// NewClient creates an ElevenLabs TTS client with the provided config.
func NewClient(config Config, logger *core.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.elevenlabs.io/v1/text-to-speech"
	}
	if config.VoiceID == "" {
		config.VoiceID = "JBFqnCBsd6RMkjVDRZzb" // Adam
	}
	if config.ModelID == "" {
		config.ModelID = "eleven_multilingual_v2"
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With(map[string]interface{}{"component": "elevenlabs"}),
	}
}

// IsConfigured reports whether an API key is present.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// Synthesize converts text to MP3 audio using the paragraph voice profile.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return c.synthesize(ctx, text, ParagraphProfile)
}

// SynthesizeWord converts an already-shaped single word to MP3 audio using
// the word voice profile. It satisfies words.Synthesizer.
func (c *Client) SynthesizeWord(ctx context.Context, text string) ([]byte, error) {
	return c.synthesize(ctx, text, WordProfile)
}

func (c *Client) synthesize(ctx context.Context, text string, settings VoiceSettings) ([]byte, error) {
	resp, err := c.post(ctx, c.voiceURL(), text, settings)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.ProviderError{Provider: "elevenlabs", Err: fmt.Errorf("read audio body: %w", err)}
	}

	c.logger.With(map[string]interface{}{"bytes": len(audio)}).Debug("synthesized audio")
	return audio, nil
}

// SynthesizeStream converts text to speech and relays the MP3 bytes to w as
// they arrive, using the paragraph voice profile.
func (c *Client) SynthesizeStream(ctx context.Context, text string, w io.Writer) error {
	resp, err := c.post(ctx, c.voiceURL()+"/stream", text, ParagraphProfile)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return &core.ProviderError{Provider: "elevenlabs", Err: fmt.Errorf("relay audio stream: %w", err)}
	}
	return nil
}

func (c *Client) voiceURL() string {
	return c.config.BaseURL + "/" + c.config.VoiceID
}

// post performs one synthesis request and returns the response on a 2xx
// status. Every failure path comes back as a ProviderError.
func (c *Client) post(ctx context.Context, url, text string, settings VoiceSettings) (*http.Response, error) {
	if !c.IsConfigured() {
		return nil, &core.ProviderError{Provider: "elevenlabs", Err: errors.New("api key not configured")}
	}

	body, err := sonic.Marshal(ttsRequest{
		Text:          text,
		ModelID:       c.config.ModelID,
		VoiceSettings: settings,
	})
	if err != nil {
		return nil, &core.ProviderError{Provider: "elevenlabs", Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &core.ProviderError{Provider: "elevenlabs", Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &core.ProviderError{Provider: "elevenlabs", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &core.ProviderError{
			Provider: "elevenlabs",
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("%s", string(respBody)),
		}
	}
	return resp, nil
}
