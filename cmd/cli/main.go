package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/steeple/cmd/cli/internal/commands"
	"github.com/wolfeidau/steeple/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Resolve commands.ResolveCmd `cmd:"" help:"Classify a host and resolve its organization"`
		Route   commands.RouteCmd   `cmd:"" help:"Ask the server which dashboard view a host opens"`
		Token   commands.TokenCmd   `cmd:"" help:"Sign in and store an API token"`
		Logout  commands.LogoutCmd  `cmd:"" help:"Remove a stored API token"`
		Debug   bool                `help:"Enable debug mode."`
		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("steeple-cli"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)
	if !cli.Debug {
		log.Logger = log.Logger.Level(zerolog.WarnLevel)
	}

	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
