package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SynthesisRequest holds the parameters for text-to-speech generation.
type SynthesisRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"` // default: "en-US"
	Voice    string `json:"voice,omitempty"`    // default derived from Language
	Format   string `json:"format,omitempty"`   // "mp3" (default) or "wav"
}

// SynthesisResult holds the generated audio and its content type.
type SynthesisResult struct {
	Audio       []byte
	ContentType string
}

// RecognitionRequest holds audio to transcribe.
type RecognitionRequest struct {
	Audio       []byte
	ContentType string // default: "audio/wav"
	Language    string // default: "en-US"
}

// RecognitionResult holds the transcript for one utterance.
type RecognitionResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
	Language   string  `json:"language,omitempty"`
}

// SpeechProvider is the interface the HTTP handlers consume.
type SpeechProvider interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)
	Recognize(ctx context.Context, req RecognitionRequest) (*RecognitionResult, error)
	Token(ctx context.Context) (string, error)
}

// SpeechConfig holds configuration for the Speech REST backend. The
// endpoint fields default to the region's public endpoints and exist so
// tests can point the client at a mock.
type SpeechConfig struct {
	Key     string
	Region  string
	Timeout time.Duration

	TokenEndpoint     string // default: "https://{region}.api.cognitive.microsoft.com/sts/v1.0/issueToken"
	SynthesisEndpoint string // default: "https://{region}.tts.speech.microsoft.com/cognitiveservices/v1"
	RecognizeEndpoint string // default: "https://{region}.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1"
}

// SpeechClient calls the cloud Speech REST APIs. Synthesis and recognition
// authenticate with a short-lived bearer token issued against the
// subscription key; the token is cached until shortly before it expires.
type SpeechClient struct {
	cfg        SpeechConfig
	httpClient *http.Client
	tokens     *tokenSource
}

// NewSpeechClient creates a SpeechClient with defaults applied.
func NewSpeechClient(cfg SpeechConfig) *SpeechClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.TokenEndpoint == "" {
		cfg.TokenEndpoint = fmt.Sprintf("https://%s.api.cognitive.microsoft.com/sts/v1.0/issueToken", cfg.Region)
	}
	if cfg.SynthesisEndpoint == "" {
		cfg.SynthesisEndpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", cfg.Region)
	}
	if cfg.RecognizeEndpoint == "" {
		cfg.RecognizeEndpoint = fmt.Sprintf("https://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1", cfg.Region)
	}
	hc := &http.Client{Timeout: cfg.Timeout}
	return &SpeechClient{
		cfg:        cfg,
		httpClient: hc,
		tokens:     newTokenSource(cfg.TokenEndpoint, cfg.Key, hc),
	}
}

func (c *SpeechClient) Name() string { return "speech" }

// Token returns a valid bearer token, fetching a fresh one if the cached
// token is missing or expired. Exposed so the front end's browser SDK can
// authenticate without ever seeing the subscription key.
func (c *SpeechClient) Token(ctx context.Context) (string, error) {
	return c.tokens.token(ctx)
}

// Synthesize converts text to audio via the synthesis endpoint.
func (c *SpeechClient) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	token, err := c.tokens.token(ctx)
	if err != nil {
		return nil, err
	}

	lang := req.Language
	if lang == "" {
		lang = "en-US"
	}
	voice := req.Voice
	if voice == "" {
		voice = defaultVoice(lang)
	}
	outputFormat, contentType := audioFormat(req.Format)

	ssml := buildSSML(lang, voice, req.Text)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.cfg.SynthesisEndpoint, strings.NewReader(ssml))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/ssml+xml")
	httpReq.Header.Set("X-Microsoft-OutputFormat", outputFormat)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, c.upstreamError(resp, respBody)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		contentType = ct
	}
	return &SynthesisResult{Audio: audio, ContentType: contentType}, nil
}

// Recognize transcribes a single short utterance via the recognition endpoint.
func (c *SpeechClient) Recognize(ctx context.Context, req RecognitionRequest) (*RecognitionResult, error) {
	token, err := c.tokens.token(ctx)
	if err != nil {
		return nil, err
	}

	lang := req.Language
	if lang == "" {
		lang = "en-US"
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "audio/wav"
	}

	q := url.Values{}
	q.Set("language", lang)
	q.Set("format", "detailed")
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.cfg.RecognizeEndpoint+"?"+q.Encode(), bytes.NewReader(req.Audio))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("recognition request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.upstreamError(resp, respBody)
	}

	var apiResp struct {
		RecognitionStatus string `json:"RecognitionStatus"`
		DisplayText       string `json:"DisplayText"`
		NBest             []struct {
			Confidence float64 `json:"Confidence"`
			Display    string  `json:"Display"`
		} `json:"NBest"`
	}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if apiResp.RecognitionStatus != "Success" {
		return nil, &UpstreamError{
			Service: "speech",
			Status:  resp.StatusCode,
			Code:    apiResp.RecognitionStatus,
			Message: "recognition produced no transcript",
		}
	}

	result := &RecognitionResult{Text: apiResp.DisplayText, Language: lang}
	if len(apiResp.NBest) > 0 {
		result.Confidence = apiResp.NBest[0].Confidence
		if result.Text == "" {
			result.Text = apiResp.NBest[0].Display
		}
	}
	return result, nil
}

func (c *SpeechClient) upstreamError(resp *http.Response, body []byte) error {
	code, message := parseErrorBody(body)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// The cached token may simply have been revoked; drop it so the
		// next request starts from a fresh fetch.
		c.tokens.invalidate()
		return &AuthError{Service: "speech", Status: resp.StatusCode, Message: message}
	}
	return &UpstreamError{
		Service:    "speech",
		Status:     resp.StatusCode,
		Code:       code,
		Message:    message,
		RetryAfter: resp.Header.Get("Retry-After"),
	}
}

func buildSSML(lang, voice, text string) string {
	var b strings.Builder
	b.WriteString(`<speak version='1.0' xml:lang='`)
	b.WriteString(lang)
	b.WriteString(`'><voice name='`)
	b.WriteString(voice)
	b.WriteString(`'>`)
	b.WriteString(escapeXML(text))
	b.WriteString(`</voice></speak>`)
	return b.String()
}

func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
	return r.Replace(s)
}

var defaultVoices = map[string]string{
	"en-US": "en-US-JennyNeural",
	"es-ES": "es-ES-ElviraNeural",
	"fr-FR": "fr-FR-DeniseNeural",
	"de-DE": "de-DE-KatjaNeural",
	"ja-JP": "ja-JP-NanamiNeural",
	"ko-KR": "ko-KR-SunHiNeural",
	"zh-CN": "zh-CN-XiaoxiaoNeural",
}

func defaultVoice(lang string) string {
	if v, ok := defaultVoices[lang]; ok {
		return v
	}
	return "en-US-JennyNeural"
}

// audioFormat maps a friendly format name to the output-format header value
// and the content type we report when the upstream omits one.
func audioFormat(format string) (outputFormat, contentType string) {
	switch format {
	case "wav":
		return "riff-24khz-16bit-mono-pcm", "audio/wav"
	default:
		return "audio-24khz-48kbitrate-mono-mp3", "audio/mpeg"
	}
}
