// mcworld is a tool for inspecting and editing Minecraft Anvil worlds.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/bramblewood/mcworld/commands"
	"github.com/bramblewood/mcworld/mclog"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&commands.Dump{}, "")
	subcommands.Register(&commands.Patch{}, "")
	subcommands.Register(&commands.Compact{}, "")
	subcommands.Register(&commands.GetBlock{}, "")
	subcommands.Register(&commands.PutBlock{}, "")

	verbose := flag.Bool("verbose", false, "Enable debug logging.")
	flag.Parse()
	if *verbose {
		mclog.SetMinLevel(mclog.DebugLevel)
	}

	os.Exit(int(subcommands.Execute(context.Background())))
}
