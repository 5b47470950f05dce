package main

import (
	"github.com/alecthomas/kong"
	"github.com/arnavsurve/deskagent/cmd/cli"
)

var CLI struct {
	Run   cli.RunCmd   `cmd:"" help:"Drive the desktop toward a goal."`
	Exec  cli.ExecCmd  `cmd:"" help:"Execute instructions directly, without the planner."`
	Serve cli.ServeCmd `cmd:"" help:"Start the HTTP control surface."`
	Lint  cli.LintCmd  `cmd:"" help:"Validate the agent configuration."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("deskagent"),
		kong.Description("A vision-grounded desktop automation agent."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
