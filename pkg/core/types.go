package core

import "time"

// AgentConfig is the agent.yml document.
type AgentConfig struct {
	Planner   PlannerConfig   `yaml:"planner"`
	Grounding GroundingConfig `yaml:"grounding"`
	Agent     LoopConfig      `yaml:"agent"`
	Desktop   DesktopConfig   `yaml:"desktop"`
	Logs      LogsConfig      `yaml:"logs"`
	Server    ServerConfig    `yaml:"server"`
}

type PlannerConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model,omitempty"`
	APIKey      string        `yaml:"api_key,omitempty"`
	BaseURL     string        `yaml:"base_url,omitempty"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type GroundingConfig struct {
	Endpoint            string        `yaml:"endpoint"`
	Model               string        `yaml:"model,omitempty"`
	TopK                int           `yaml:"top_k"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	Timeout             time.Duration `yaml:"timeout"`
}

type LoopConfig struct {
	MaxIterations          int           `yaml:"max_iterations"`
	MaxScreenshotSize      int           `yaml:"max_screenshot_size"`
	ActionDelay            time.Duration `yaml:"action_delay"`
	FirstClickDelay        time.Duration `yaml:"first_click_delay"`
	FirstClickCompensation bool          `yaml:"first_click_compensation"`
}

type DesktopConfig struct {
	PreActionDelay time.Duration `yaml:"pre_action_delay"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
	KeystrokeDelay time.Duration `yaml:"keystroke_delay"`
	MoveTolerance  int           `yaml:"move_tolerance"`
}

type LogsConfig struct {
	Dir            string `yaml:"dir"`
	ScreenshotsDir string `yaml:"screenshots_dir"`
	RunLogsDir     string `yaml:"run_logs_dir"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	MaxIterations  int      `yaml:"max_iterations"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}
