package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("STORAGE_TYPE", "")
	t.Setenv("MAX_FILE_SIZE", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, int64(30<<20), cfg.Upload.MaxFileSize)
	assert.Equal(t, int64(1<<20), cfg.Upload.TruncMinBytes)
	assert.Equal(t, int64(1<<10), cfg.Upload.TruncMaxBytes)
	assert.Equal(t, 5*time.Minute, cfg.Providers.Timeout)
	assert.Empty(t, cfg.Providers.OpenAIKey)
	assert.False(t, cfg.IsProduction())
}

func TestLoadRejectsUnknownStorageType(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("STORAGE_TYPE", "ftp")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_TYPE")
}

func TestLoadRequiresJWTSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_TYPE", "local")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestParseSize(t *testing.T) {
	cases := map[string]int64{
		"1024":  1024,
		"1KB":   1024,
		"30MB":  30 << 20,
		"2gb":   2 << 30,
		" 5 MB": 5 << 20,
	}
	for in, want := range cases {
		got, err := ParseSize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSize("lots")
	assert.Error(t, err)
}
