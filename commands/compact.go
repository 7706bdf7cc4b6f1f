package commands

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"github.com/bramblewood/mcworld/anvil"
	"github.com/bramblewood/mcworld/mclog"
)

// Compact implements the compact command.
type Compact struct {
	skipConfirm bool
}

func (*Compact) Name() string { return "compact" }

func (*Compact) Synopsis() string {
	return "Compact removes unused sectors from a Minecraft world."
}

func (*Compact) Usage() string {
	return `compact <world>
Compact removes unused sectors from a Minecraft world.

WARNING: This command will modify your world in-place. You should make a backup
of your world before proceeding.

Compact removes unused 4kB sectors from a Minecraft world. The region files for
a world contain 4kB sectors. The first 4kB of the file contains a lookup table
indicating in which sectors to find the data for each chunk. It is therefore
possible for there to be sectors that are not referenced in the lookup table.
These orphaned sectors could contain stale data left behind after previous
edits relocated chunks. The compact command removes this data and shrinks the
region files accordingly.

`
}

func (c *Compact) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.skipConfirm, "skip_confirmation", false, "Do not ask for confirmation before proceeding.")
}

func (c *Compact) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		mclog.Error("<world> is required.")
		return subcommands.ExitUsageError
	}
	if f.NArg() > 1 {
		mclog.Error("Extra positional arguments found.")
		return subcommands.ExitUsageError
	}
	if !c.skipConfirm {
		confirm("compact")
	}
	if err := compactWorld(f.Arg(0)); err != nil {
		mclog.Errorf("Compact: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// compactWorld compacts all region files in a world.
func compactWorld(path string) error {
	if err := compactDimension(filepath.Join(path, "region")); err != nil {
		return err
	}
	if err := compactDimension(filepath.Join(path, "DIM-1", "region")); err != nil {
		return err
	}
	if err := compactDimension(filepath.Join(path, "DIM1", "region")); err != nil {
		return err
	}
	return nil
}

// compactDimension compacts all region files in a dimension.
func compactDimension(path string) error {
	dir, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range dir {
		x, z, ok := anvil.ParseRegionFilename(entry.Name())
		if !ok {
			continue
		}
		regionPath := filepath.Join(path, entry.Name())
		r, err := anvil.Load(x, z, regionPath)
		if err != nil {
			return err
		}
		if err := r.Compact(); err != nil {
			return err
		}
		if err := r.SaveRegion(regionPath); err != nil {
			return err
		}
	}
	return nil
}
