// Package server exposes the reading-practice backend over HTTP: the REST
// API the original app surface defines, the static client page, and the
// WebSocket endpoint for incremental word delivery.
package server

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"

	"storybuddy/config"
	"storybuddy/core"
	elevenlabs "storybuddy/services/elevenlabs/tts"
	gemini "storybuddy/services/gemini/llm"
	"storybuddy/words"
)

// Server bundles the provider clients and the word pipeline behind the
// HTTP surface.
type Server struct {
	settings config.Settings
	logger   *core.Logger

	tts      *elevenlabs.Client
	llm      *gemini.Client
	pipeline *words.Pipeline
}

// New creates a Server. The pipeline is shared by the synchronous
// word-by-word endpoint and every WebSocket session.
func New(settings config.Settings, tts *elevenlabs.Client, llm *gemini.Client, pipeline *words.Pipeline, logger *core.Logger) *Server {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Server{
		settings: settings,
		logger:   logger.With(map[string]interface{}{"component": "server"}),
		tts:      tts,
		llm:      llm,
		pipeline: pipeline,
	}
}

// Handler builds the HTTP route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("/api/generate-story", s.handleGenerateStory)
	mux.HandleFunc("/api/evaluate-reading", s.handleEvaluateReading)
	mux.HandleFunc("/api/text-to-speech", s.handleTextToSpeech)
	mux.HandleFunc("/api/text-to-speech-stream", s.handleTextToSpeechStream)
	mux.HandleFunc("/api/text-to-speech-timestamps", s.handleTextToSpeechTimestamps)
	mux.HandleFunc("/api/text-to-speech-word-by-word", s.handleWordByWord)

	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.settings.StaticDir))))
	mux.HandleFunc("/", s.handleIndex)

	return mux
}

// ListenAndServe serves the API on the configured address.
func (s *Server) ListenAndServe() error {
	s.logger.With(map[string]interface{}{"addr": s.settings.ListenAddr}).Info("listening")
	return http.ListenAndServe(s.settings.ListenAddr, s.Handler())
}

// --- request/response bodies ---

type storyRequest struct {
	Prompt   string `json:"prompt"`
	AgeGroup string `json:"age_group"`
}

type ttsRequest struct {
	Text string `json:"text"`
}

type readingEvalRequest struct {
	OriginalStory string `json:"original_story"`
	SpokenText    string `json:"spoken_text"`
}

type wordAudioItem struct {
	Word         string `json:"word"`
	Audio        string `json:"audio,omitempty"`
	Index        int    `json:"index"`
	Cached       bool   `json:"cached"`
	IsDecoration bool   `json:"is_decoration"`
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":                "healthy",
		"gemini_configured":     s.llm.IsConfigured(),
		"elevenlabs_configured": s.tts.IsConfigured(),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.settings.StaticDir, "index.html"))
}

func (s *Server) handleGenerateStory(w http.ResponseWriter, r *http.Request) {
	var req storyRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.logger.With(map[string]interface{}{"prompt": req.Prompt, "age_group": req.AgeGroup}).Info("story generation request")

	story, err := s.llm.GenerateStory(r.Context(), req.Prompt, req.AgeGroup)
	if err != nil {
		s.logger.With(map[string]interface{}{"error": err}).Error("story generation failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"story": story})
}

func (s *Server) handleEvaluateReading(w http.ResponseWriter, r *http.Request) {
	var req readingEvalRequest
	if !s.decode(w, r, &req) {
		return
	}

	feedback := s.llm.EvaluateReading(r.Context(), req.OriginalStory, req.SpokenText)
	s.writeJSON(w, http.StatusOK, map[string]string{"feedback": feedback})
}

func (s *Server) handleTextToSpeech(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if !s.decode(w, r, &req) {
		return
	}

	audio, err := s.tts.Synthesize(r.Context(), req.Text)
	if err != nil {
		s.logger.With(map[string]interface{}{"error": err}).Error("text to speech failed")
		s.writeError(w, providerStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}

func (s *Server) handleTextToSpeechStream(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if !s.decode(w, r, &req) {
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", "attachment; filename=story.mp3")
	w.Header().Set("Cache-Control", "no-cache")

	if err := s.tts.SynthesizeStream(r.Context(), req.Text, flushWriter{w}); err != nil {
		// Headers are already on the wire; all we can do is log.
		s.logger.With(map[string]interface{}{"error": err}).Error("streaming text to speech failed")
	}
}

func (s *Server) handleTextToSpeechTimestamps(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if !s.decode(w, r, &req) {
		return
	}

	audio, err := s.tts.Synthesize(r.Context(), req.Text)
	if err != nil {
		s.logger.With(map[string]interface{}{"error": err}).Error("text to speech failed")
		s.writeError(w, providerStatus(err), err.Error())
		return
	}

	tokens := strings.Fields(req.Text)
	timings := words.EstimateTimings(tokens, len(audio))
	total := 0.0
	if len(timings) > 0 {
		total = timings[len(timings)-1].EndTime
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"audio":          base64.StdEncoding.EncodeToString(audio),
		"word_timings":   timings,
		"total_duration": total,
	})
}

func (s *Server) handleWordByWord(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.logger.With(map[string]interface{}{"chars": len(req.Text)}).Info("word-by-word request")

	results := s.pipeline.ProcessText(r.Context(), req.Text)
	items := make([]wordAudioItem, 0, len(results))
	for _, res := range results {
		item := wordAudioItem{
			Word:         res.Token.Text,
			Index:        res.Token.Position,
			Cached:       res.FromCache,
			IsDecoration: res.Token.Class == words.ClassDecoration,
		}
		if len(res.Audio) > 0 {
			item.Audio = base64.StdEncoding.EncodeToString(res.Audio)
		}
		items = append(items, item)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"word_audio_list": items,
		"total_words":     len(items),
	})
}

// --- helpers ---

// decode reads a JSON request body, replying 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return false
	}
	if err := sonic.Unmarshal(body, v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := sonic.Marshal(v)
	if err != nil {
		s.logger.With(map[string]interface{}{"error": err}).Error("encode response failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}

// providerStatus maps a provider failure to a response status: upstream
// HTTP errors pass through as 502, everything else is a 500.
func providerStatus(err error) int {
	var pe *core.ProviderError
	if errors.As(err, &pe) && pe.Status != 0 {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// flushWriter flushes after every chunk so streamed audio reaches the
// client as it arrives from the provider.
type flushWriter struct {
	w http.ResponseWriter
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if f, ok := fw.w.(http.Flusher); ok {
		f.Flush()
	}
	return n, err
}
