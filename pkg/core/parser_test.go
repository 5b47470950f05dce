package core_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arnavsurve/deskagent/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), core.DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("DESK_OPENAI_KEY", "sk-test")
	path := writeConfig(t, `
planner:
  provider: openai
  model: gpt-4o-mini
  api_key: "{{ env.DESK_OPENAI_KEY }}"
  timeout: 45s
grounding:
  endpoint: http://gpu-box:8000
  top_k: 5
agent:
  max_iterations: 12
  action_delay: 1500ms
  first_click_compensation: false
server:
  allowed_origins: ["http://localhost:5173"]
`)

	cfg, err := core.LoadConfigFromFile(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Planner.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Planner.Model)
	assert.Equal(t, "sk-test", cfg.Planner.APIKey)
	assert.Equal(t, 45*time.Second, cfg.Planner.Timeout)
	assert.Equal(t, "http://gpu-box:8000", cfg.Grounding.Endpoint)
	assert.Equal(t, 5, cfg.Grounding.TopK)
	assert.Equal(t, 12, cfg.Agent.MaxIterations)
	assert.Equal(t, 1500*time.Millisecond, cfg.Agent.ActionDelay)
	assert.False(t, cfg.Agent.FirstClickCompensation)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)

	// Unset sections keep their defaults.
	assert.Equal(t, 0.7, cfg.Grounding.ConfidenceThreshold)
	assert.Equal(t, 768, cfg.Agent.MaxScreenshotSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Desktop.PreActionDelay)
	assert.Equal(t, 5, cfg.Desktop.MoveTolerance)
	assert.Equal(t, "command_logs", cfg.Logs.Dir)

	assert.Equal(t, []string{"sk-test"}, cfg.Secrets())

	loop := cfg.LoopSettings()
	assert.Equal(t, 12, loop.MaxIterations)
	assert.Equal(t, 45*time.Second, loop.PlannerTimeout)
	assert.Equal(t, 5, loop.Action.TopK)
	assert.Equal(t, time.Second, loop.Action.SettleDelay)
}

func TestLoadConfigFromFile_Errors(t *testing.T) {
	_, err := core.LoadConfigFromFile("does-not-exist.yml", nil)
	assert.ErrorContains(t, err, "reading config file")

	_, err = core.LoadConfigFromFile(writeConfig(t, "planner: [oops"), nil)
	assert.ErrorContains(t, err, "parsing config YAML")

	_, err = core.LoadConfigFromFile(writeConfig(t, "planner:\n  provider: anthropic\n"), nil)
	assert.ErrorContains(t, err, `invalid provider "anthropic"`)

	_, err = core.LoadConfigFromFile(writeConfig(t, "agent:\n  action_delay: soon\n"), nil)
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "g-key")

	cfg, err := core.LoadConfig(filepath.Join(t.TempDir(), "agent.yml"), false, nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Planner.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.Planner.Model)
	assert.Equal(t, "g-key", cfg.Planner.APIKey)

	_, err = core.LoadConfig(filepath.Join(t.TempDir(), "agent.yml"), true, nil)
	assert.Error(t, err)
}

func TestApplyEnvFallbacks(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg := core.DefaultConfig()
	cfg.Planner.Provider = "openai"
	core.ApplyEnvFallbacks(cfg)
	assert.Equal(t, "sk-env", cfg.Planner.APIKey)

	cfg.Planner.APIKey = "explicit"
	core.ApplyEnvFallbacks(cfg)
	assert.Equal(t, "explicit", cfg.Planner.APIKey)
}

func TestApplyProviderDefaults(t *testing.T) {
	cfg, err := core.LoadConfigFromFile(writeConfig(t, "planner:\n  provider: openai\n  api_key: k\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.Planner.Model)

	cfg = core.DefaultConfig()
	cfg.Planner.Model = "gemini-2.5-pro"
	core.ApplyProviderDefaults(cfg)
	assert.Equal(t, "gemini-2.5-pro", cfg.Planner.Model)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*core.AgentConfig)
		errorMsg string
	}{
		{name: "defaults are valid", mutate: func(*core.AgentConfig) {}},
		{
			name:     "unknown provider",
			mutate:   func(c *core.AgentConfig) { c.Planner.Provider = "llama" },
			errorMsg: "invalid provider",
		},
		{
			name:     "missing endpoint",
			mutate:   func(c *core.AgentConfig) { c.Grounding.Endpoint = "" },
			errorMsg: "missing 'endpoint'",
		},
		{
			name:     "endpoint without scheme",
			mutate:   func(c *core.AgentConfig) { c.Grounding.Endpoint = "localhost:8000" },
			errorMsg: "not an http(s) URL",
		},
		{
			name:     "zero top k",
			mutate:   func(c *core.AgentConfig) { c.Grounding.TopK = 0 },
			errorMsg: "top_k must be positive",
		},
		{
			name:     "threshold above one",
			mutate:   func(c *core.AgentConfig) { c.Grounding.ConfidenceThreshold = 1.5 },
			errorMsg: "confidence_threshold",
		},
		{
			name:     "zero iterations",
			mutate:   func(c *core.AgentConfig) { c.Agent.MaxIterations = 0 },
			errorMsg: "max_iterations must be positive",
		},
		{
			name:     "negative delay",
			mutate:   func(c *core.AgentConfig) { c.Desktop.SettleDelay = -time.Second },
			errorMsg: "desktop.settle_delay must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := core.DefaultConfig()
			tt.mutate(cfg)
			err := core.ValidateConfig(cfg)
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestValidatePlannerCredentials(t *testing.T) {
	cfg := core.DefaultConfig()
	assert.ErrorContains(t, core.ValidatePlannerCredentials(cfg), "API key for planner provider \"gemini\" is empty")

	cfg.Planner.APIKey = "k"
	assert.NoError(t, core.ValidatePlannerCredentials(cfg))
}

func TestResolveLogPaths(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Logs.ScreenshotsDir = "/abs/shots"
	core.ResolveLogPaths(cfg, "/work")

	assert.Equal(t, filepath.Join("/work", "command_logs"), cfg.Logs.Dir)
	assert.Equal(t, "/abs/shots", cfg.Logs.ScreenshotsDir)
	assert.Equal(t, filepath.Join("/work", ".deskagent", "logs"), cfg.Logs.RunLogsDir)
}
