package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/lukasmoran/voicebridge/internal/azure"
)

// Uploaded audio is short utterances; anything past this is rejected before
// we buffer it.
const maxAudioBytes = 25 << 20

type SpeechHandler struct {
	speech azure.SpeechProvider
	region string
	logger *zap.Logger
}

func NewSpeechHandler(speech azure.SpeechProvider, region string, logger *zap.Logger) *SpeechHandler {
	return &SpeechHandler{speech: speech, region: region, logger: logger}
}

// Config handles GET /api/speech/config, exposing the region so the page
// doesn't hard-code it.
func (h *SpeechHandler) Config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"region": h.region})
}

// Token handles POST /api/speech/token. It hands the browser SDK a
// short-lived bearer token so the subscription key never reaches the page.
func (h *SpeechHandler) Token(w http.ResponseWriter, r *http.Request) {
	token, err := h.speech.Token(r.Context())
	if err != nil {
		h.logger.Warn("token fetch failed", zap.Error(err))
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(token))
}

// Synthesize handles POST /api/speech/synthesize, returning raw audio bytes
// with the upstream's content type.
func (h *SpeechHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	var req azure.SynthesisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &ValidationError{Reason: "invalid request body"})
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, &ValidationError{Reason: "text is required"})
		return
	}

	result, err := h.speech.Synthesize(r.Context(), req)
	if err != nil {
		h.logger.Warn("synthesis failed", zap.String("language", req.Language), zap.Error(err))
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(result.Audio)
}

// Recognize handles POST /api/speech/recognize. Audio arrives either as a
// multipart form (an "audio" file part plus "language"/"format" fields) or
// as the raw request body with its Content-Type.
func (h *SpeechHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	req, err := readRecognition(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.speech.Recognize(r.Context(), *req)
	if err != nil {
		h.logger.Warn("recognition failed", zap.String("language", req.Language), zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func readRecognition(r *http.Request) (*azure.RecognitionRequest, error) {
	req := &azure.RecognitionRequest{}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
			return nil, &ValidationError{Reason: "invalid multipart form"}
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			return nil, &ValidationError{Reason: "audio file part is required"}
		}
		defer file.Close()

		audio, err := io.ReadAll(io.LimitReader(file, maxAudioBytes))
		if err != nil {
			return nil, &ValidationError{Reason: "unreadable audio part"}
		}
		req.Audio = audio
		req.Language = r.FormValue("language")
		req.ContentType = r.FormValue("format")
		if req.ContentType == "" {
			req.ContentType = header.Header.Get("Content-Type")
		}
	} else {
		audio, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes))
		if err != nil {
			return nil, &ValidationError{Reason: "unreadable request body"}
		}
		req.Audio = audio
		req.ContentType = contentType
		req.Language = r.URL.Query().Get("language")
	}

	if len(req.Audio) == 0 {
		return nil, &ValidationError{Reason: "audio payload is empty"}
	}
	return req, nil
}
