package core

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// VarContext holds resolved variables from a varfile.
type VarContext map[string]string

// varRegex matches {{ name }} and {{ env.NAME }} placeholders.
var varRegex = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9\._-]+)\s*\}\}`)

var envRe = regexp.MustCompile(`^\s*\{\{\s*env\.([A-Za-z0-9_]+)\s*}}\s*$`)

// ResolveVarfile loads a YAML varfile (e.g. dsvars.yml), parses it, and
// resolves env placeholders.
func ResolveVarfile(path string) (VarContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading varfile %q: %w", path, err)
	}

	var rawVars map[string]string
	if err := yaml.Unmarshal(data, &rawVars); err != nil {
		return nil, fmt.Errorf("parsing varfile YAML from %q: %w", path, err)
	}

	resolvedCtx := make(VarContext, len(rawVars))
	for key, val := range rawVars {
		if match := envRe.FindStringSubmatch(val); match != nil {
			envKey := match[1]
			envVal, exists := os.LookupEnv(envKey)
			if !exists {
				log.Printf("warning: environment variable %q not found for varfile key %q", envKey, key)
			}
			resolvedCtx[key] = envVal
		} else {
			resolvedCtx[key] = val
		}
	}
	return resolvedCtx, nil
}

// ResolveString replaces every placeholder in input. env.NAME reads the
// environment (unset variables resolve to ""); other names must exist in
// vars.
func ResolveString(input string, vars VarContext) (string, error) {
	var firstErr error
	output := varRegex.ReplaceAllStringFunc(input, func(match string) string {
		if firstErr != nil {
			return match
		}

		key := varRegex.FindStringSubmatch(match)[1]
		val, found := FindValue(key, vars)
		if !found {
			firstErr = fmt.Errorf("undefined variable: %s", key)
			return match
		}
		return val
	})

	if firstErr != nil {
		return "", firstErr
	}
	return output, nil
}

// FindValue looks key up in the environment (env.NAME) or in vars.
func FindValue(key string, vars VarContext) (string, bool) {
	if envKey, ok := strings.CutPrefix(key, "env."); ok {
		return os.Getenv(envKey), true
	}
	val, ok := vars[key]
	return val, ok
}

// ResolveConfigVariables resolves placeholders in every string setting of
// cfg in place.
func ResolveConfigVariables(cfg *AgentConfig, vars VarContext) error {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"planner.provider", &cfg.Planner.Provider},
		{"planner.model", &cfg.Planner.Model},
		{"planner.api_key", &cfg.Planner.APIKey},
		{"planner.base_url", &cfg.Planner.BaseURL},
		{"grounding.endpoint", &cfg.Grounding.Endpoint},
		{"grounding.model", &cfg.Grounding.Model},
		{"logs.dir", &cfg.Logs.Dir},
		{"logs.screenshots_dir", &cfg.Logs.ScreenshotsDir},
		{"logs.run_logs_dir", &cfg.Logs.RunLogsDir},
		{"server.addr", &cfg.Server.Addr},
	}

	for _, f := range fields {
		resolved, err := ResolveString(*f.ptr, vars)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", f.name, err)
		}
		*f.ptr = resolved
	}

	for i, origin := range cfg.Server.AllowedOrigins {
		resolved, err := ResolveString(origin, vars)
		if err != nil {
			return fmt.Errorf("resolving server.allowed_origins[%d]: %w", i, err)
		}
		cfg.Server.AllowedOrigins[i] = resolved
	}
	return nil
}

// ResolveGoal expands placeholders in a goal given on the command line.
func ResolveGoal(goal string, vars VarContext) (string, error) {
	resolved, err := ResolveString(goal, vars)
	if err != nil {
		return "", fmt.Errorf("resolving goal: %w", err)
	}
	return strings.TrimSpace(resolved), nil
}
