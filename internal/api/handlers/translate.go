package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/lukasmoran/voicebridge/internal/azure"
	"github.com/lukasmoran/voicebridge/internal/events"
	"github.com/lukasmoran/voicebridge/internal/ws"
)

type TranslateHandler struct {
	translator azure.TranslationProvider
	publisher  *events.Publisher
	hub        *ws.Hub
	logger     *zap.Logger
}

func NewTranslateHandler(translator azure.TranslationProvider, publisher *events.Publisher, hub *ws.Hub, logger *zap.Logger) *TranslateHandler {
	return &TranslateHandler{translator: translator, publisher: publisher, hub: hub, logger: logger}
}

// Translate handles POST /api/translate.
func (h *TranslateHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req azure.TranslationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &ValidationError{Reason: "invalid request body"})
		return
	}
	if err := validateTranslation(&req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.translator.Translate(r.Context(), req)
	if err != nil {
		h.logger.Warn("translate failed", zap.String("to", req.TargetLanguage), zap.Error(err))
		writeError(w, err)
		return
	}

	h.publisher.Publish(r.Context(), events.NewTranslationEvent(
		req.SourceText, result.TranslatedText, detectedOrGiven(req, result), req.TargetLanguage))

	writeJSON(w, http.StatusOK, result)
}

// Publish handles POST /api/publish: translate, then push the caption to
// every connected websocket viewer.
func (h *TranslateHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, &ValidationError{Reason: "invalid request body"})
		return
	}

	body.Text = strings.TrimSpace(body.Text)
	if body.Text == "" {
		writeError(w, &ValidationError{Reason: "text is required"})
		return
	}
	if body.From == "" {
		body.From = "en"
	}
	if body.To == "" {
		body.To = "ko"
	}

	req := azure.TranslationRequest{
		SourceText:     body.Text,
		TargetLanguage: body.To,
		SourceLanguage: body.From,
	}
	result, err := h.translator.Translate(r.Context(), req)
	if err != nil {
		h.logger.Warn("publish translate failed", zap.String("to", body.To), zap.Error(err))
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.Caption{Transcript: body.Text, Translation: result.TranslatedText})
	h.publisher.Publish(r.Context(), events.NewTranslationEvent(
		body.Text, result.TranslatedText, body.From, body.To))

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func validateTranslation(req *azure.TranslationRequest) error {
	req.SourceText = strings.TrimSpace(req.SourceText)
	if req.SourceText == "" {
		return &ValidationError{Reason: "sourceText is required"}
	}
	if req.TargetLanguage == "" {
		return &ValidationError{Reason: "targetLanguage is required"}
	}
	if req.SourceLanguage == "auto" {
		req.SourceLanguage = ""
	}
	return nil
}

func detectedOrGiven(req azure.TranslationRequest, result *azure.TranslationResult) string {
	if req.SourceLanguage != "" {
		return req.SourceLanguage
	}
	return result.DetectedSourceLanguage
}
