package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/arnavsurve/deskagent/pkg/agent"
	"github.com/arnavsurve/deskagent/pkg/server"
)

type ServeCmd struct {
	Addr           string      `help:"Listen address. Overrides server.addr."`
	AllowedOrigins []string    `help:"CORS origins. Overrides server.allowed_origins."`
	Common         CommonFlags `embed:""`
}

func (c *ServeCmd) Run() error {
	s, err := bootstrap(c.Common, true)
	if err != nil {
		return err
	}
	defer s.Close()
	cfg := s.Config

	addr := cfg.Server.Addr
	if c.Addr != "" {
		addr = c.Addr
	}
	origins := cfg.Server.AllowedOrigins
	if len(c.AllowedOrigins) > 0 {
		origins = c.AllowedOrigins
	}
	maxIterations := cfg.Server.MaxIterations
	if maxIterations == 0 {
		maxIterations = cfg.Agent.MaxIterations
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := s.buildEngine(ctx, true)
	if err != nil {
		return err
	}

	controller := agent.NewController(ctx, engine, maxIterations)
	srv := server.New(controller, s.Logger, cfg.Logs.Dir)
	return srv.ListenAndServe(ctx, addr, origins)
}
