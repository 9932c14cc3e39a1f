package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTranslationEventStamps(t *testing.T) {
	before := time.Now().UTC()
	ev := NewTranslationEvent("Hello", "Hola", "en", "es")

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "Hello", ev.SourceText)
	assert.Equal(t, "Hola", ev.TranslatedText)
	assert.Equal(t, "en", ev.SourceLanguage)
	assert.Equal(t, "es", ev.TargetLanguage)
	assert.Equal(t, "translation", ev.EventType)
	assert.Equal(t, "translator", ev.Service)
	assert.False(t, ev.Timestamp.Before(before))

	// Distinct events get distinct IDs.
	assert.NotEqual(t, ev.ID, NewTranslationEvent("a", "b", "", "es").ID)
}

func TestTranslationEventJSONShape(t *testing.T) {
	ev := NewTranslationEvent("Hello", "Hola", "en", "es")

	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "Hola", decoded["translated_text"])
	assert.Equal(t, "Hello", decoded["source_text"])
	assert.Equal(t, "en", decoded["source_language"])
	assert.Equal(t, "es", decoded["target_language"])
	assert.Equal(t, "translation", decoded["event_type"])
	assert.Contains(t, decoded, "timestamp")
}

func TestTranslationEventOmitsEmptySource(t *testing.T) {
	ev := NewTranslationEvent("Hello", "Hola", "", "es")

	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "source_language")
}

func TestNilPublisherIsNoOp(t *testing.T) {
	var p *Publisher

	assert.NotPanics(t, func() {
		p.Publish(context.Background(), NewTranslationEvent("a", "b", "en", "es"))
	})
	assert.NoError(t, p.Close())
}
