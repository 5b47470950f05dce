package cli

import (
	"fmt"

	"github.com/arnavsurve/deskagent/pkg/core"
)

type LintCmd struct {
	Common CommonFlags `embed:""`
}

func (l *LintCmd) Run() error {
	s, err := bootstrap(l.Common, false)
	if err != nil {
		return err
	}
	defer s.Close()
	cfg := s.Config
	logger := s.Logger

	logger.Info().Msgf("Validating %s", l.Common.Config)

	if err := core.ValidateConfig(cfg); err != nil {
		logger.Error().Err(err).Msg("Configuration is invalid")
		return fmt.Errorf("validating config: %w", err)
	}
	logger.Info().
		Str("provider", cfg.Planner.Provider).
		Str("model", cfg.Planner.Model).
		Str("grounding_endpoint", cfg.Grounding.Endpoint).
		Int("max_iterations", cfg.Agent.MaxIterations).
		Msg("Configuration values passed validation")

	if err := core.ValidatePlannerCredentials(cfg); err != nil {
		logger.Error().Err(err).Msg("Planner credentials are missing")
		return err
	}
	logger.Info().Msg("Planner credentials found")

	logger.Info().Msg("Successfully validated agent configuration ✅")
	return nil
}
