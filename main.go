package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"storybuddy/config"
	"storybuddy/core"
	"storybuddy/server"
	elevenlabs "storybuddy/services/elevenlabs/tts"
	gemini "storybuddy/services/gemini/llm"
	"storybuddy/words"
)

func main() {
	logger := core.GetLogger()

	if err := godotenv.Load(".env.local"); err != nil {
		logger.With(map[string]any{"error": err}).Warn("No .env.local file found or failed to load")
	}

	settings := loadSettings(logger)

	if settings.ElevenLabs.APIKey == "" {
		logger.Warn("ELEVENLABS_API_KEY is not set; word audio generation will fail")
	}
	if settings.Gemini.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; story generation will fail")
	}

	tts := elevenlabs.NewClient(elevenlabs.Config{
		APIKey:  settings.ElevenLabs.APIKey,
		BaseURL: settings.ElevenLabs.BaseURL,
		VoiceID: settings.ElevenLabs.VoiceID,
		ModelID: settings.ElevenLabs.ModelID,
	}, logger)

	llm := gemini.NewClient(gemini.Config{
		APIKey:  settings.Gemini.APIKey,
		BaseURL: settings.Gemini.BaseURL,
		Model:   settings.Gemini.Model,
	}, logger)

	cache, err := words.NewCache(settings.Cache.Dir, logger)
	if err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to open word cache")
	}

	pipeline := words.NewPipeline(cache, words.NewGenerator(tts, logger), logger)

	srv := server.New(settings, tts, llm, pipeline, logger)
	logger.With(map[string]any{
		"elevenlabs_configured": tts.IsConfigured(),
		"gemini_configured":     llm.IsConfigured(),
	}).Info("starting StoryBuddy server")

	if err := srv.ListenAndServe(); err != nil {
		logger.With(map[string]any{"error": err}).Fatal("server exited")
	}
}

// loadSettings loads settings.json (path overridable via SETTINGS_PATH),
// falls back to defaults, then applies env overrides and API keys.
func loadSettings(logger *core.Logger) config.Settings {
	settingsPath := getEnv("SETTINGS_PATH", "./settings.json")
	settings, err := config.SettingsFromFile(settingsPath)
	if err != nil {
		logger.With(map[string]any{"path": settingsPath, "error": err}).Warn("failed to load settings, using defaults")
		settings = config.DefaultSettings()
	}

	settings.ListenAddr = getEnv("LISTEN_ADDR", settings.ListenAddr)
	settings.Cache.Dir = getEnv("AUDIO_CACHE_DIR", settings.Cache.Dir)
	settings.BatchSize = getEnvAsInt("WORD_BATCH_SIZE", settings.BatchSize)

	settings.InjectAPIKeys(config.APIKeys{
		ElevenLabs: getEnv("ELEVENLABS_API_KEY", ""),
		Gemini:     getEnv("GEMINI_API_KEY", ""),
	})
	return settings
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer with a default fallback
func getEnvAsInt(key string, defaultValue int) int {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultValue
	}
	return val
}
