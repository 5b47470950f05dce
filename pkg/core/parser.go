package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/arnavsurve/deskagent/pkg/actionrunner"
	"github.com/arnavsurve/deskagent/pkg/agent"
	"github.com/arnavsurve/deskagent/pkg/planner"
	"gopkg.in/yaml.v3"
)

const DefaultConfigFile = "agent.yml"

func DefaultConfig() *AgentConfig {
	return &AgentConfig{
		Planner: PlannerConfig{
			Provider:    planner.ProviderGemini,
			Temperature: 0.2,
			Timeout:     2 * time.Minute,
		},
		Grounding: GroundingConfig{
			Endpoint:            "http://127.0.0.1:8000",
			Model:               "GUI-Actor-2B-Qwen2-VL",
			TopK:                3,
			ConfidenceThreshold: 0.7,
			Timeout:             60 * time.Second,
		},
		Agent: LoopConfig{
			MaxIterations:          30,
			MaxScreenshotSize:      768,
			ActionDelay:            time.Second,
			FirstClickDelay:        time.Second,
			FirstClickCompensation: true,
		},
		Desktop: DesktopConfig{
			PreActionDelay: 500 * time.Millisecond,
			SettleDelay:    time.Second,
			KeystrokeDelay: 50 * time.Millisecond,
			MoveTolerance:  5,
		},
		Logs: LogsConfig{
			Dir:            "command_logs",
			ScreenshotsDir: "autonomous_screenshots",
			RunLogsDir:     filepath.Join(".deskagent", "logs"),
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:5001",
			MaxIterations:  20,
			AllowedOrigins: []string{"*"},
		},
	}
}

// LoadConfigFromFile reads path over the defaults, resolves placeholders and
// validates the result.
func LoadConfigFromFile(path string, vars VarContext) (*AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := ResolveConfigVariables(cfg, vars); err != nil {
		return nil, err
	}
	ApplyProviderDefaults(cfg)
	ApplyEnvFallbacks(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadConfig loads path when it exists and falls back to the defaults when
// it does not. An explicitly requested file that is missing is an error.
func LoadConfig(path string, explicit bool, vars VarContext) (*AgentConfig, error) {
	if _, err := os.Stat(path); err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file %q: %w", path, err)
		}
		cfg := DefaultConfig()
		ApplyProviderDefaults(cfg)
		ApplyEnvFallbacks(cfg)
		if err := ValidateConfig(cfg); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadConfigFromFile(path, vars)
}

// ApplyProviderDefaults picks the provider's default model when none is set.
func ApplyProviderDefaults(cfg *AgentConfig) {
	if cfg.Planner.Model != "" {
		return
	}
	switch cfg.Planner.Provider {
	case planner.ProviderOpenAI:
		cfg.Planner.Model = planner.DefaultOpenAIModel
	case planner.ProviderGemini, "":
		cfg.Planner.Model = planner.DefaultGeminiModel
	}
}

// ApplyEnvFallbacks fills a missing planner API key from the provider's
// conventional environment variables.
func ApplyEnvFallbacks(cfg *AgentConfig) {
	if cfg.Planner.APIKey != "" {
		return
	}
	var names []string
	switch cfg.Planner.Provider {
	case planner.ProviderOpenAI:
		names = []string{"OPENAI_API_KEY"}
	default:
		names = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	}
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			cfg.Planner.APIKey = v
			return
		}
	}
}

// Secrets lists the values that must never reach a log line.
func (c *AgentConfig) Secrets() []string {
	var out []string
	if c.Planner.APIKey != "" {
		out = append(out, c.Planner.APIKey)
	}
	return out
}

func (c *AgentConfig) PlannerSettings() planner.Config {
	return planner.Config{
		Provider:    c.Planner.Provider,
		Model:       c.Planner.Model,
		APIKey:      c.Planner.APIKey,
		BaseURL:     c.Planner.BaseURL,
		Temperature: c.Planner.Temperature,
		Timeout:     c.Planner.Timeout,
	}
}

func (c *AgentConfig) ActionSettings() actionrunner.Settings {
	return actionrunner.Settings{
		PreActionDelay:      c.Desktop.PreActionDelay,
		SettleDelay:         c.Desktop.SettleDelay,
		KeystrokeDelay:      c.Desktop.KeystrokeDelay,
		GroundingTimeout:    c.Grounding.Timeout,
		TopK:                c.Grounding.TopK,
		Tolerance:           c.Desktop.MoveTolerance,
		ConfidenceThreshold: c.Grounding.ConfidenceThreshold,
		GroundingModel:      c.Grounding.Model,
	}
}

func (c *AgentConfig) LoopSettings() agent.Config {
	return agent.Config{
		MaxIterations:          c.Agent.MaxIterations,
		ActionDelay:            c.Agent.ActionDelay,
		FirstClickDelay:        c.Agent.FirstClickDelay,
		FirstClickCompensation: c.Agent.FirstClickCompensation,
		PlannerTimeout:         c.Planner.Timeout,
		PlannerHistory:         agent.DefaultHistoryCapacity,
		Action:                 c.ActionSettings(),
	}
}
