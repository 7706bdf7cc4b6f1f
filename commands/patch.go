package commands

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/subcommands"

	"github.com/bramblewood/mcworld/anvil"
	"github.com/bramblewood/mcworld/mclog"
	"github.com/bramblewood/mcworld/nbt"
	"github.com/bramblewood/mcworld/world"
)

// Patch implements the patch command.
type Patch struct {
	stringsFile string
	world       string
	csv         *csv.Reader
	current     *loadedChunk
	skipConfirm bool

	// shouldCompact indicates whether any chunks required resizing or
	// relocating. If so, notify the user that they should compact the world.
	shouldCompact bool
}

// loadedChunk is the single chunk currently held open for patching,
// together with the region it was decompressed from (spec.md §4.4: a
// patch session touches one chunk/region pair at a time, flushing before
// moving to the next).
type loadedChunk struct {
	dim, x, z  int
	region     *anvil.Region
	regionPath string
	regionIdx  int
	root       nbt.Tag
	updates    int
}

func (*Patch) Name() string { return "patch" }

func (*Patch) Synopsis() string { return "Patch strings into a Minecraft world." }

func (*Patch) Usage() string {
	return `patch -strings <csv_file> <world>
Patch strings into a Minecraft world.

WARNING: This command will modify your world in-place. You should make a backup
of your world before proceeding.

Patch strings from a CSV file into a Minecraft world located in the directory
<world>. This should be the directory containing level.dat. The CSV file should
have the same columns as generated by the "dump" command.

`
}

func (p *Patch) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.stringsFile, "strings", "", "The CSV file to read strings from (required).")
	f.BoolVar(&p.skipConfirm, "skip_confirmation", false, "Do not ask for confirmation before proceeding.")
}

func (p *Patch) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		mclog.Error("<world> is required.")
		return subcommands.ExitUsageError
	}
	if f.NArg() > 1 {
		mclog.Error("Extra positional arguments found.")
		return subcommands.ExitUsageError
	}
	p.world = f.Arg(0)
	if p.stringsFile == "" {
		mclog.Error("--strings is required.")
		return subcommands.ExitUsageError
	}
	file, err := os.Open(p.stringsFile)
	if err != nil {
		mclog.Errorf("Cannot open strings file: %v", err)
		return subcommands.ExitFailure
	}
	defer file.Close()
	if !p.skipConfirm {
		confirm("patch strings into")
	}
	p.csv = csv.NewReader(file)
	p.csv.FieldsPerRecord = -1 // Don't check the number of fields.
	if err := p.run(); err != nil {
		mclog.Errorf("Patch: %v", err)
		return subcommands.ExitFailure
	}
	if p.shouldCompact {
		mclog.Info("Some chunks were resized or relocated. It is recommended to compact the world.")
	}
	return subcommands.ExitSuccess
}

// field returns the nth string in a record, or "" if index is beyond its
// bounds.
func field(rec []string, index int) string {
	if len(rec) <= index {
		return ""
	}
	return rec[index]
}

// run patches the Minecraft world from the CSV stream.
func (p *Patch) run() error {
	line := 0
	for {
		line++
		rec, err := p.csv.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if line == 1 && field(rec, 0) == "dimension" {
			continue // Skip header row if present.
		}
		ok := true
		warn := func(msg string, args ...interface{}) {
			args = append([]interface{}{line}, args...)
			mclog.Warnf("Line %d: "+msg, args...)
			ok = false
		}
		dim, err := strconv.Atoi(field(rec, 0))
		if err != nil {
			warn("invalid dimension: %v", err)
		}
		x, err := strconv.Atoi(field(rec, 1))
		if err != nil {
			warn("invalid chunk_x: %v", err)
		}
		z, err := strconv.Atoi(field(rec, 2))
		if err != nil {
			warn("invalid chunk_z: %v", err)
		}
		path := field(rec, 3)
		if path == "" {
			warn("missing nbt_path")
		}
		if !ok {
			continue
		}
		if err := p.loadChunk(dim, x, z); err != nil {
			return err
		}
		if err := p.patchString(path, field(rec, 4)); err != nil {
			return fmt.Errorf("line %d, dimension %d, chunk (%d, %d): %v", line, dim, x, z, err)
		}
	}
	return p.saveChunk()
}

// patchString replaces the string at nbt_path in the currently loaded
// chunk, if it differs from its current value.
func (p *Patch) patchString(path, value string) error {
	old, err := nbt.Get(p.current.root, path)
	if err != nil {
		return err
	}
	if old.Type() != nbt.TagString {
		return fmt.Errorf("%s is not a TAG_String", path)
	}
	if old.AsString() == value {
		return nil
	}
	if err := nbt.Set(p.current.root, path, nbt.StringTag(value)); err != nil {
		return err
	}
	p.current.updates++
	return nil
}

// dimensionPath returns the directory containing the region files for dim.
func (p *Patch) dimensionPath(dim int) (string, error) {
	switch dim {
	case 0:
		return filepath.Join(p.world, "region"), nil
	case 1:
		return filepath.Join(p.world, "DIM1", "region"), nil
	case -1:
		return filepath.Join(p.world, "DIM-1", "region"), nil
	default:
		return "", fmt.Errorf("invalid dimension: %d", dim)
	}
}

// loadChunk loads the specified chunk, saving whatever chunk was
// previously loaded first (spec.md §4.4 "one resident chunk at a time").
func (p *Patch) loadChunk(dim, x, z int) error {
	if p.current != nil && p.current.dim == dim && p.current.x == x && p.current.z == z {
		return nil
	}
	if err := p.saveChunk(); err != nil {
		return err
	}

	dimPath, err := p.dimensionPath(dim)
	if err != nil {
		return err
	}
	cx, cz := world.ChunkToRegion(x), world.ChunkToRegion(z)
	regionPath := filepath.Join(dimPath, anvil.FileName(cx, cz))
	mclog.Debugf("Loading dimension %d, chunk (%d, %d) from %q.", dim, x, z, regionPath)

	region, err := anvil.Load(cx, cz, regionPath)
	if err != nil {
		return err
	}
	regionIdx := world.RegionIndex(x, z)
	_, _, present := region.LocateChunk(regionIdx)
	if !present {
		return fmt.Errorf("chunk (%d, %d) not found in %q", x, z, regionPath)
	}
	raw, err := region.DecompressChunk(regionIdx)
	if err != nil {
		return fmt.Errorf("cannot read chunk (%d, %d) in %q: %v", x, z, regionPath, err)
	}
	root, err := nbt.Decode(raw)
	if err != nil {
		return fmt.Errorf("cannot decode chunk (%d, %d) in %q: %v", x, z, regionPath, err)
	}
	p.current = &loadedChunk{
		dim: dim, x: x, z: z,
		region: region, regionPath: regionPath, regionIdx: regionIdx,
		root: root,
	}
	return nil
}

// saveChunk writes the currently-loaded chunk back, if it has pending
// edits.
func (p *Patch) saveChunk() (err error) {
	if p.current == nil || p.current.updates == 0 {
		p.current = nil
		return nil
	}
	c := p.current
	mclog.Debugf("Saving dimension %d, chunk (%d, %d) to %q with %d updates.", c.dim, c.x, c.z, c.regionPath, c.updates)
	defer func() {
		if err != nil {
			err = fmt.Errorf("saving chunk (%d, %d) to %q: %v", c.x, c.z, c.regionPath, err)
		}
	}()
	_, countBefore, _ := c.region.LocateChunk(c.regionIdx)
	if err := c.region.UpdateRegion(c.regionIdx, c.root, "Level", nbt.ChunkTags); err != nil {
		return err
	}
	if _, countAfter, _ := c.region.LocateChunk(c.regionIdx); countAfter != countBefore {
		p.shouldCompact = true
	}
	if err := c.region.SaveRegion(c.regionPath); err != nil {
		return err
	}
	p.current = nil
	return nil
}
