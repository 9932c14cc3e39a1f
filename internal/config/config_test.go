package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("TRANSLATOR_KEY", "tkey")
	t.Setenv("TRANSLATOR_REGION", "eastus")
	t.Setenv("SPEECH_KEY", "skey")
	t.Setenv("SPEECH_REGION", "westus")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8000", cfg.Addr())
	assert.Equal(t, "https://api.cognitive.microsofttranslator.com", cfg.Translator.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.Server.UpstreamTimeout)
	assert.True(t, cfg.Server.ReclaimPort)
	assert.Empty(t, cfg.Events.RedisAddr)
	assert.Equal(t, "web", cfg.Web.Dir)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9100")
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT_RECLAIM", "false")
	t.Setenv("UPSTREAM_TIMEOUT", "5s")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9100", cfg.Addr())
	assert.False(t, cfg.Server.ReclaimPort)
	assert.Equal(t, 5*time.Second, cfg.Server.UpstreamTimeout)
	assert.Equal(t, "localhost:6379", cfg.Events.RedisAddr)
}

func TestLoadMissingOneVar(t *testing.T) {
	for _, name := range []string{"TRANSLATOR_KEY", "TRANSLATOR_REGION", "SPEECH_KEY", "SPEECH_REGION"} {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(name, "")

			_, err := Load()
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, []string{name}, cfgErr.Missing)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestLoadMissingAllVars(t *testing.T) {
	t.Setenv("TRANSLATOR_KEY", "")
	t.Setenv("TRANSLATOR_REGION", "")
	t.Setenv("SPEECH_KEY", "")
	t.Setenv("SPEECH_REGION", "")

	_, err := Load()
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Len(t, cfgErr.Missing, 4)
	for _, name := range []string{"TRANSLATOR_KEY", "TRANSLATOR_REGION", "SPEECH_KEY", "SPEECH_REGION"} {
		assert.Contains(t, cfgErr.Missing, name)
	}
}

func TestLoadBadPort(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "not-a-number")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}
