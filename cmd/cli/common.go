package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arnavsurve/deskagent/pkg/agent"
	"github.com/arnavsurve/deskagent/pkg/core"
	"github.com/arnavsurve/deskagent/pkg/desktop"
	"github.com/arnavsurve/deskagent/pkg/grounding"
	"github.com/arnavsurve/deskagent/pkg/log"
	"github.com/arnavsurve/deskagent/pkg/log/sinks"
	"github.com/arnavsurve/deskagent/pkg/planner"
	"github.com/arnavsurve/deskagent/pkg/security"
	"github.com/arnavsurve/deskagent/pkg/steplog"
	"github.com/arnavsurve/deskagent/pkg/types"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	// Ensure all action runner implementations are registered
	_ "github.com/arnavsurve/deskagent/pkg/actionrunner/runners"
)

// CommonFlags are shared by every command that loads agent.yml.
type CommonFlags struct {
	Config   string `help:"The agent configuration file." default:"agent.yml"`
	Varfile  string `help:"The YAML varfile for goal placeholders." default:"dsvars.yml"`
	LogLevel string `help:"Minimum log level." default:"info" enum:"debug,info,warn,error"`
}

// session is the logging and configuration state of one CLI invocation.
type session struct {
	RunID   string
	Config  *core.AgentConfig
	Vars    core.VarContext
	Logger  types.Logger
	LogPath string

	router *log.Router
}

// bootstrap wires logging, loads .env, the varfile and agent.yml, and
// attaches the secret redactor. With persist set, the structured log is
// also written to <run_logs_dir>/<run_id>.json.
func bootstrap(flags CommonFlags, persist bool) (*session, error) {
	s := &session{RunID: uuid.New().String()}

	s.router = log.NewRouter(sinks.NewConsoleSink())
	level, err := log.ParseLevel(flags.LogLevel)
	if err != nil {
		return nil, err
	}
	s.router.MinLevel = level
	s.Logger = log.NewZerologAdapter(zerolog.New(s.router).With().Timestamp().Logger())

	if err := godotenv.Load(); err != nil {
		s.Logger.Debug().Err(err).Msg("No .env file found or error thrown while loading it. Relying on existing ENV if config uses {{ env.* }}")
	}

	s.Vars = loadVarfile(flags.Varfile, s.Logger)

	explicit := flags.Config != core.DefaultConfigFile
	cfg, err := core.LoadConfig(flags.Config, explicit, s.Vars)
	if err != nil {
		s.Logger.Error().Err(err).Msgf("Failed to load config file %s", flags.Config)
		return nil, fmt.Errorf("loading config file %q: %w", flags.Config, err)
	}
	s.Config = cfg

	configDir := "."
	if abs, err := filepath.Abs(flags.Config); err == nil {
		configDir = filepath.Dir(abs)
	}
	core.ResolveLogPaths(cfg, configDir)

	s.router.SetRedactor(security.NewRedactor(cfg.Secrets()...))

	if persist {
		fileSink, path, err := sinks.NewRunFileSink(cfg.Logs.RunLogsDir, s.RunID)
		if err != nil {
			return nil, fmt.Errorf("creating file log sink: %w", err)
		}
		s.router.AddSink(fileSink)
		s.LogPath = path
		s.Logger.Info().Msgf("Logs will be saved to %q", path)
	}

	return s, nil
}

func loadVarfile(path string, logger types.Logger) core.VarContext {
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		logger.Debug().Msgf("Varfile %s not found. Proceeding without goal variables.", path)
		return make(core.VarContext)
	}
	vars, err := core.ResolveVarfile(path)
	if err != nil {
		logger.Warn().Err(err).Msgf("Could not fully resolve varfile %q", path)
		if vars == nil {
			vars = make(core.VarContext)
		}
		return vars
	}
	logger.Info().Msgf("Successfully loaded and resolved varfile: %s", path)
	return vars
}

// Close flushes and closes all log sinks.
func (s *session) Close() {
	if err := s.router.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error during log shutdown: %v\n", err)
	}
}

// buildEngine connects the engine to the real display, the grounding
// server and, when withPlanner is set, the configured planner.
func (s *session) buildEngine(ctx context.Context, withPlanner bool) (*agent.Engine, error) {
	cfg := s.Config
	engine := agent.NewEngine(s.Logger, cfg.LoopSettings())

	if withPlanner {
		if err := core.ValidatePlannerCredentials(cfg); err != nil {
			s.Logger.Error().Err(err).Msg("Planner is not configured")
			return nil, err
		}
		pl, err := planner.New(ctx, cfg.PlannerSettings(), s.Logger)
		if err != nil {
			return nil, fmt.Errorf("creating planner: %w", err)
		}
		engine.Planner = pl
		s.Logger.Info().Str("provider", cfg.Planner.Provider).Str("model", cfg.Planner.Model).Msg("Planner ready")
	}

	robot := desktop.NewRobot(cfg.Agent.MaxScreenshotSize, s.Logger)
	engine.Capturer = robot
	engine.Desktop = robot
	engine.Grounder = grounding.NewClient(cfg.Grounding.Endpoint, cfg.Grounding.Timeout, s.Logger)
	engine.Commands = steplog.NewStore(cfg.Logs.Dir)
	engine.ScreenshotsDir = cfg.Logs.ScreenshotsDir

	s.Logger.Info().
		Str("grounding_endpoint", cfg.Grounding.Endpoint).
		Str("command_logs", cfg.Logs.Dir).
		Msg("Desktop agent ready")
	return engine, nil
}
