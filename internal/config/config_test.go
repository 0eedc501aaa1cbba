package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullEnv() map[string]string {
	return map[string]string{
		EnvAnthropicKey:    "sk-ant",
		EnvAzureKey:        "az-key",
		EnvAzureBase:       "https://example.openai.azure.com",
		EnvAzureAPIVersion: "2024-06-01",
		EnvAzureDeployment: "gpt4o",
	}
}

func getenv(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(New(), getenv(fullEnv()))
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.Model)
	assert.True(t, cfg.Chunking.Enabled)
	assert.Equal(t, 100000, cfg.Chunking.MaxSize)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 60*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Browser.NavigateSettle)
	assert.Equal(t, time.Second, cfg.Browser.ActionSettle)
	assert.Equal(t, 60*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Progress.PollInterval)
	assert.Equal(t, "actions_log.txt", cfg.ActionLog.Path)
	assert.Equal(t, "web_agent.log", cfg.Log.File)
	assert.Equal(t, 5000, cfg.Anthropic.MaxTokens)
	assert.Equal(t, "gpt4o", cfg.Secrets.AzureDeployment)
}

func TestLoad_ListsEveryMissingSecret(t *testing.T) {
	env := fullEnv()
	delete(env, EnvAnthropicKey)
	delete(env, EnvAzureDeployment)
	env[EnvAzureBase] = "   "

	_, err := load(New(), getenv(env))
	var me *MissingError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, []string{EnvAnthropicKey, EnvAzureBase, EnvAzureDeployment}, me.Names)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY, AZURE_OPENAI_API_BASE, DEPLOYMENT_GPT_NAME")
}

func TestLoad_Overrides(t *testing.T) {
	v := New()
	v.Set("model", "gpt4o")
	v.Set("chunking.max_size", 5000)
	v.Set("browser.timeout", "5s")

	cfg, err := load(v, getenv(fullEnv()))
	require.NoError(t, err)
	assert.Equal(t, "gpt4o", cfg.Model)
	assert.Equal(t, 5000, cfg.Chunking.MaxSize)
	assert.Equal(t, 5*time.Second, cfg.Browser.Timeout)
}

func TestLoad_EnvPrefix(t *testing.T) {
	t.Setenv("WEBAGENT_CHUNKING_ENABLED", "false")
	cfg, err := load(New(), getenv(fullEnv()))
	require.NoError(t, err)
	assert.False(t, cfg.Chunking.Enabled)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: gpt4o\nbrowser:\n  headless: true\n"), 0o600))

	v := New()
	v.Set("config", path)
	cfg, err := load(v, getenv(fullEnv()))
	require.NoError(t, err)
	assert.Equal(t, "gpt4o", cfg.Model)
	assert.True(t, cfg.Browser.Headless)
}

func TestLoad_RejectsUnknownModel(t *testing.T) {
	v := New()
	v.Set("model", "gemini")
	_, err := load(v, getenv(fullEnv()))
	assert.ErrorContains(t, err, "unsupported model")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("WEBAGENT_TEST_DOTENV=loaded\n"), 0o600))
	t.Setenv("WEBAGENT_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("WEBAGENT_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("WEBAGENT_TEST_DOTENV"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}
