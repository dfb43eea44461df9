// ytanalyzer/config/config_test.go
package config_test

import (
	"testing"
	"time"

	"ytanalyzer/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("loads default values correctly", func(t *testing.T) {
		t.Setenv("YTANALYZER_PORT", "")
		t.Setenv("YTANALYZER_MAX_CONCURRENCY", "")
		t.Setenv("YTANALYZER_CHUNK_MAX_LENGTH", "")
		t.Setenv("YTANALYZER_OPENAI_TIMEOUT", "")
		t.Setenv("YTANALYZER_MAX_RESPONSE_SIZE", "")
		t.Setenv("YTANALYZER_TRANSCRIPT_LANGUAGES", "")
		t.Setenv("YTANALYZER_SHUTDOWN_TIMEOUT", "")

		cfg, err := config.Load()
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, 4, cfg.MaxConcurrency)
		assert.Equal(t, config.DefaultChunkMaxLength, cfg.ChunkMaxLength)
		assert.Equal(t, 1, cfg.AnalysisConcurrency)
		assert.Equal(t, "gpt-3.5-turbo-0125", cfg.OpenAIModel)
		assert.Equal(t, 2*time.Minute, cfg.OpenAITimeout)
		assert.Equal(t, int64(10*1024*1024), cfg.MaxResponseSize)
		assert.Equal(t, []string{"en"}, cfg.TranscriptLanguages)
		assert.Equal(t, 168*time.Hour, cfg.CacheLifetime)
		assert.Equal(t, 2*time.Minute, cfg.ShutdownTimeout)
	})

	t.Run("overrides defaults with environment variables", func(t *testing.T) {
		t.Setenv("YTANALYZER_PORT", "9999")
		t.Setenv("YTANALYZER_MAX_CONCURRENCY", "10")
		t.Setenv("YTANALYZER_CHUNK_MAX_LENGTH", "500")
		t.Setenv("YTANALYZER_OPENAI_TIMEOUT", "45s")
		t.Setenv("YTANALYZER_MAX_RESPONSE_SIZE", "2MB")
		t.Setenv("YTANALYZER_TRANSCRIPT_LANGUAGES", "en, de")
		t.Setenv("YTANALYZER_SHUTDOWN_TIMEOUT", "10s")

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, "9999", cfg.Port)
		assert.Equal(t, 10, cfg.MaxConcurrency)
		assert.Equal(t, 500, cfg.ChunkMaxLength)
		assert.Equal(t, 45*time.Second, cfg.OpenAITimeout)
		assert.Equal(t, int64(2*1024*1024), cfg.MaxResponseSize)
		assert.Equal(t, []string{"en", "de"}, cfg.TranscriptLanguages)
		assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	})
}
