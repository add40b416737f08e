package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/steeple/cmd/server/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug      bool `help:"Enable debug mode." env:"STEEPLE_DEBUG"`
		Version    kong.VersionFlag
		Serve      commands.ServeCmd      `cmd:"" default:"withargs" help:"Start the server (sites, dashboard and API)"`
		Migrate    commands.MigrateCmd    `cmd:"" help:"Run database migrations"`
		SuperAdmin commands.SuperAdminCmd `cmd:"" name:"super-admin" help:"Grant or revoke the super admin flag"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("steeple"),
		kong.Description("Multi-tenant church site host"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
