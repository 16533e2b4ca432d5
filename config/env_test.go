package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("AT_TEST_KEY", "secret")
	t.Setenv("AT_TEST_EMPTY", "")

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"${AT_TEST_KEY}", "secret"},
		{"$AT_TEST_KEY", "secret"},
		{"key=${AT_TEST_KEY}!", "key=secret!"},
		{"${AT_TEST_MISSING:-fallback}", "fallback"},
		{"${AT_TEST_EMPTY:-fallback}", "fallback"},
		{"${AT_TEST_KEY:-fallback}", "secret"},
		{"${AT_TEST_MISSING}", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandEnv(tt.in), tt.in)
	}
}

func TestExpandEnvInData(t *testing.T) {
	t.Setenv("AT_TEST_KEY", "secret")

	in := map[string]any{
		"a": "${AT_TEST_KEY}",
		"b": []any{"$AT_TEST_KEY", 3},
		"c": map[string]any{"d": "x", "e": true},
	}

	out := ExpandEnvInData(in).(map[string]any)

	assert.Equal(t, "secret", out["a"])
	assert.Equal(t, []any{"secret", 3}, out["b"])
	assert.Equal(t, map[string]any{"d": "x", "e": true}, out["c"])
	assert.Equal(t, "${AT_TEST_KEY}", in["a"], "input is not modified")
}

func unsetAfter(t *testing.T, keys ...string) {
	t.Helper()

	for _, k := range keys {
		require.NoError(t, os.Unsetenv(k))
	}

	t.Cleanup(func() {
		for _, k := range keys {
			_ = os.Unsetenv(k)
		}
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	unsetAfter(t, "AT_DOTENV_A", "AT_DOTENV_B", "AT_DOTENV_C")
	t.Setenv("AT_DOTENV_KEEP", "process")
	t.Setenv("APP_ENV", "test")

	explicit := filepath.Join(dir, "custom.env")
	require.NoError(t, os.WriteFile(explicit, []byte("AT_DOTENV_A=explicit\nAT_DOTENV_KEEP=file\n"), 0o600))
	require.NoError(t, os.WriteFile(".env", []byte("AT_DOTENV_A=dotenv\nAT_DOTENV_B=dotenv\nAT_DOTENV_C=dotenv\n"), 0o600))
	require.NoError(t, os.WriteFile(".env.test", []byte("AT_DOTENV_C=overlay\n"), 0o600))

	require.NoError(t, LoadDotEnv(explicit, filepath.Join(dir, "missing.env")))

	assert.Equal(t, "explicit", os.Getenv("AT_DOTENV_A"), "first file wins")
	assert.Equal(t, "dotenv", os.Getenv("AT_DOTENV_B"))
	assert.Equal(t, "overlay", os.Getenv("AT_DOTENV_C"), "APP_ENV overlay overrides")
	assert.Equal(t, "process", os.Getenv("AT_DOTENV_KEEP"), "process env is kept")
}

func TestLoadDotEnv_NoFiles(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "")

	assert.NoError(t, LoadDotEnv())
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("CLAUDE_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic")
	t.Setenv("DEEPSEEK_API_KEY", "ds")

	assert.Equal(t, "DEEPSEEK_API_KEY", APIKeyEnv("deepseek"))
	assert.Equal(t, "ds", apiKeyFromEnv("deepseek"))
	assert.Equal(t, "anthropic", apiKeyFromEnv("claude"))

	t.Setenv("CLAUDE_API_KEY", "claude")
	assert.Equal(t, "claude", apiKeyFromEnv("claude"))
}
