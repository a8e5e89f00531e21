package main

import (
	"github.com/alecthomas/kong"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool             `help:"Enable debug logging." env:"DEBUG"`
		Version kong.VersionFlag `help:"Print version and exit."`
		Serve   ServeCmd         `cmd:"" default:"withargs" help:"Run the CSR signing gateway"`
	}
)

type Globals struct {
	Debug   bool
	Version string
}

func main() {
	cmd := kong.Parse(&cli,
		kong.Name("gateway"),
		kong.Description("HTTP intake for certificate signing requests"),
		kong.Vars{
			"version": version,
		})
	err := cmd.Run(&Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
