package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// TranslationRequest holds the parameters for a single translation call.
type TranslationRequest struct {
	SourceText     string `json:"sourceText"`
	TargetLanguage string `json:"targetLanguage"`
	SourceLanguage string `json:"sourceLanguage,omitempty"` // empty lets the service auto-detect
}

// TranslationResult holds the translated text and, when the source language
// was auto-detected, what the service decided it was.
type TranslationResult struct {
	TranslatedText         string  `json:"translatedText"`
	DetectedSourceLanguage string  `json:"detectedSourceLanguage,omitempty"`
	DetectionScore         float64 `json:"-"`
}

// TranslationProvider is the interface the HTTP handlers consume.
type TranslationProvider interface {
	Translate(ctx context.Context, req TranslationRequest) (*TranslationResult, error)
}

// TranslatorConfig holds configuration for the Translator REST backend.
type TranslatorConfig struct {
	Key      string
	Region   string
	Endpoint string // default: "https://api.cognitive.microsofttranslator.com"
	Timeout  time.Duration
}

// TranslatorClient calls the cloud Translator v3 REST API.
type TranslatorClient struct {
	cfg        TranslatorConfig
	httpClient *http.Client
}

// NewTranslatorClient creates a TranslatorClient with defaults applied.
func NewTranslatorClient(cfg TranslatorConfig) *TranslatorClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.cognitive.microsofttranslator.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &TranslatorClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *TranslatorClient) Name() string { return "translator" }

// Translate sends one text to the /translate endpoint. The upstream contract
// takes an array of texts even for a single string.
func (c *TranslatorClient) Translate(ctx context.Context, req TranslationRequest) (*TranslationResult, error) {
	q := url.Values{}
	q.Set("api-version", "3.0")
	q.Set("to", req.TargetLanguage)
	if req.SourceLanguage != "" {
		q.Set("from", req.SourceLanguage)
	}

	body, err := json.Marshal([]map[string]string{{"Text": req.SourceText}})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.cfg.Endpoint+"/translate?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.Key)
	httpReq.Header.Set("Ocp-Apim-Subscription-Region", c.cfg.Region)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.upstreamError(resp, respBody)
	}

	var results []struct {
		DetectedLanguage struct {
			Language string  `json:"language"`
			Score    float64 `json:"score"`
		} `json:"detectedLanguage"`
		Translations []struct {
			Text string `json:"text"`
			To   string `json:"to"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(respBody, &results); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(results) == 0 || len(results[0].Translations) == 0 {
		return nil, fmt.Errorf("translator returned no translations")
	}

	return &TranslationResult{
		TranslatedText:         results[0].Translations[0].Text,
		DetectedSourceLanguage: results[0].DetectedLanguage.Language,
		DetectionScore:         results[0].DetectedLanguage.Score,
	}, nil
}

func (c *TranslatorClient) upstreamError(resp *http.Response, body []byte) error {
	code, message := parseErrorBody(body)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &AuthError{Service: "translator", Status: resp.StatusCode, Message: message}
	}
	return &UpstreamError{
		Service:    "translator",
		Status:     resp.StatusCode,
		Code:       code,
		Message:    message,
		RetryAfter: resp.Header.Get("Retry-After"),
	}
}

// parseErrorBody digs the provider code/message out of the standard
// {"error":{"code":...,"message":...}} envelope, falling back to the raw body.
func parseErrorBody(body []byte) (code, message string) {
	var envelope struct {
		Error struct {
			Code    json.Number `json:"code"`
			Message string      `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Code.String(), envelope.Error.Message
	}
	msg := string(bytes.TrimSpace(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return "", msg
}
