package core

import (
	"fmt"
	"net/url"

	"github.com/arnavsurve/deskagent/pkg/planner"
)

var validProviders = map[string]bool{
	planner.ProviderGemini: true,
	planner.ProviderOpenAI: true,
}

// ValidateConfig checks providers, limits and durations.
func ValidateConfig(cfg *AgentConfig) error {
	if !validProviders[cfg.Planner.Provider] {
		return fmt.Errorf("planner has invalid provider %q", cfg.Planner.Provider)
	}
	if cfg.Planner.Timeout < 0 {
		return fmt.Errorf("planner.timeout must not be negative")
	}
	if cfg.Planner.Temperature < 0 || cfg.Planner.Temperature > 2 {
		return fmt.Errorf("planner.temperature must be between 0 and 2, got %v", cfg.Planner.Temperature)
	}

	if cfg.Grounding.Endpoint == "" {
		return fmt.Errorf("grounding is missing 'endpoint'")
	}
	u, err := url.Parse(cfg.Grounding.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("grounding.endpoint %q is not an http(s) URL", cfg.Grounding.Endpoint)
	}
	if cfg.Grounding.TopK <= 0 {
		return fmt.Errorf("grounding.top_k must be positive, got %d", cfg.Grounding.TopK)
	}
	if cfg.Grounding.ConfidenceThreshold < 0 || cfg.Grounding.ConfidenceThreshold > 1 {
		return fmt.Errorf("grounding.confidence_threshold must be between 0 and 1, got %v", cfg.Grounding.ConfidenceThreshold)
	}
	if cfg.Grounding.Timeout < 0 {
		return fmt.Errorf("grounding.timeout must not be negative")
	}

	if cfg.Agent.MaxIterations <= 0 {
		return fmt.Errorf("agent.max_iterations must be positive, got %d", cfg.Agent.MaxIterations)
	}
	if cfg.Agent.MaxScreenshotSize <= 0 {
		return fmt.Errorf("agent.max_screenshot_size must be positive, got %d", cfg.Agent.MaxScreenshotSize)
	}

	durations := map[string]int64{
		"agent.action_delay":       int64(cfg.Agent.ActionDelay),
		"agent.first_click_delay":  int64(cfg.Agent.FirstClickDelay),
		"desktop.pre_action_delay": int64(cfg.Desktop.PreActionDelay),
		"desktop.settle_delay":     int64(cfg.Desktop.SettleDelay),
		"desktop.keystroke_delay":  int64(cfg.Desktop.KeystrokeDelay),
	}
	for name, d := range durations {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if cfg.Desktop.MoveTolerance < 0 {
		return fmt.Errorf("desktop.move_tolerance must not be negative")
	}

	if cfg.Logs.Dir == "" {
		return fmt.Errorf("logs is missing 'dir'")
	}
	if cfg.Server.MaxIterations < 0 {
		return fmt.Errorf("server.max_iterations must not be negative")
	}
	return nil
}

// ValidatePlannerCredentials reports a missing API key. It is separate from
// ValidateConfig so lint can run without credentials.
func ValidatePlannerCredentials(cfg *AgentConfig) error {
	if cfg.Planner.APIKey == "" {
		return fmt.Errorf("API key for planner provider %q is empty", cfg.Planner.Provider)
	}
	return nil
}
