package core

import "path/filepath"

// ResolvePathFromConfig resolves a path from the config file. Absolute paths
// are returned as is; relative ones are joined with configDir.
func ResolvePathFromConfig(configDir, pathFromYAML string) string {
	if pathFromYAML == "" || filepath.IsAbs(pathFromYAML) {
		return pathFromYAML
	}
	return filepath.Join(configDir, pathFromYAML)
}

// ResolveLogPaths anchors the relative log directories of cfg at configDir.
func ResolveLogPaths(cfg *AgentConfig, configDir string) {
	cfg.Logs.Dir = ResolvePathFromConfig(configDir, cfg.Logs.Dir)
	cfg.Logs.ScreenshotsDir = ResolvePathFromConfig(configDir, cfg.Logs.ScreenshotsDir)
	cfg.Logs.RunLogsDir = ResolvePathFromConfig(configDir, cfg.Logs.RunLogsDir)
}
