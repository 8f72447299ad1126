package config

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
)

// Settings is the top-level config loaded from settings.json. API keys are
// never stored in the file; they are injected from the environment via
// InjectAPIKeys.
type Settings struct {
	// ListenAddr is the HTTP listen address, e.g. ":8000".
	ListenAddr string `json:"listen_addr"`
	// StaticDir is the directory served at /static (index.html lives there).
	StaticDir string `json:"static_dir"`

	// Cache configures the on-disk word audio cache.
	Cache CacheSettings `json:"cache"`
	// BatchSize is the number of story tokens delivered per generate_set.
	BatchSize int `json:"batch_size"`

	ElevenLabs ElevenLabsSettings `json:"elevenlabs"`
	Gemini     GeminiSettings     `json:"gemini"`
}

// CacheSettings locates the word audio cache on disk.
type CacheSettings struct {
	// Dir is the cache root. Word blobs live in Dir/words, the index in
	// Dir/word_cache.json.
	Dir string `json:"dir"`
}

// ElevenLabsSettings configures the speech synthesis provider.
type ElevenLabsSettings struct {
	APIKey  string `json:"-"`
	BaseURL string `json:"base_url,omitempty"`
	VoiceID string `json:"voice_id,omitempty"`
	ModelID string `json:"model_id,omitempty"`
}

// GeminiSettings configures the story generation provider.
type GeminiSettings struct {
	APIKey  string `json:"-"`
	BaseURL string `json:"base_url,omitempty"`
	Model   string `json:"model,omitempty"`
}

// APIKeys holds provider credentials read from the environment.
type APIKeys struct {
	ElevenLabs string
	Gemini     string
}

// DefaultSettings returns a Settings pre-filled with working defaults.
func DefaultSettings() Settings {
	return Settings{
		ListenAddr: ":8000",
		StaticDir:  "static",
		Cache: CacheSettings{
			Dir: "audio_cache",
		},
		BatchSize: 5,
	}
}

// SettingsFromJSON parses a JSON blob into a Settings, filling missing
// fields from DefaultSettings.
func SettingsFromJSON(data []byte) (Settings, error) {
	s := DefaultSettings()
	if err := sonic.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("config: parse settings: %w", err)
	}
	if s.ListenAddr == "" {
		s.ListenAddr = DefaultSettings().ListenAddr
	}
	if s.StaticDir == "" {
		s.StaticDir = DefaultSettings().StaticDir
	}
	if s.Cache.Dir == "" {
		s.Cache.Dir = DefaultSettings().Cache.Dir
	}
	if s.BatchSize <= 0 {
		s.BatchSize = DefaultSettings().BatchSize
	}
	return s, nil
}

// SettingsFromFile loads Settings from a JSON file.
func SettingsFromFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return SettingsFromJSON(data)
}

// InjectAPIKeys copies environment-sourced credentials into the settings.
func (s *Settings) InjectAPIKeys(keys APIKeys) {
	s.ElevenLabs.APIKey = keys.ElevenLabs
	s.Gemini.APIKey = keys.Gemini
}
