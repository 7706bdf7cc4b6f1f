package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"encoding/csv"

	"github.com/google/subcommands"

	"github.com/bramblewood/mcworld/anvil"
	"github.com/bramblewood/mcworld/nbt"
)

var (
	// outputFilters defines the predicates used for filtering NBT data from
	// the emitted results.
	outputFilters = map[string]func(k, v string) bool{
		"all":       func(_, _ string) bool { return true },
		"user_text": containsUserText,
	}

	pagesRE = regexp.MustCompile(`.*/pages\[\d+\]$`)
	signRE  = regexp.MustCompile(`.*/text\d+$`)
)

// Dump implements the dump command: it walks every region file in a world
// and emits every NBT string it finds, one CSV row per string. A direct
// generalization of the teacher's sole command (mcstrings.go /
// commands/extract.go), adapted from gophertunnel's map[string]interface{}
// NBT representation to mcworld's own nbt.Tag tree.
type Dump struct {
	world  string
	filter string
	invert bool
	header bool
	output string
	csv    *csv.Writer
	keep   func(k, v string) bool
}

// validOutputFilters returns a comma-separated list of valid output filter
// names for usage documentation.
func validOutputFilters() string {
	var names []string
	for k := range outputFilters {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// clean canonicalizes a string for comparisons by trimming whitespace and
// converting it to lowercase.
func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// containsUserText determines if an NBT entry likely contains
// user-generated text: sign text, book contents & titles, renamed items,
// etc., but excludes entries with empty values.
func containsUserText(k, v string) bool {
	v = clean(v)
	if v == "" || v == "null" || v == `{"text":""}` {
		return false
	}

	k = clean(k)
	if strings.HasSuffix(k, "/display/name") {
		return true
	}
	if strings.HasSuffix(k, "/customname") {
		return true
	}
	if strings.HasSuffix(k, "/title") {
		return true
	}
	if strings.HasSuffix(k, "/author") {
		return true
	}
	if strings.HasSuffix(k, "/command") {
		return true
	}
	if pagesRE.MatchString(k) {
		return true
	}
	if signRE.MatchString(k) {
		return true
	}
	return false
}

// join combines two segments of an NBT path.
func join(a, b string) string {
	if len(b) == 0 {
		return a
	}
	if b[0] == '[' {
		return a + b
	}
	return a + "/" + b
}

// findStrings enumerates the strings within an NBT tag tree, calling cb
// with the path and value of each string found.
func findStrings(t nbt.Tag, cb func(path, value string)) {
	switch t.Type() {
	case nbt.TagString:
		cb("", t.AsString())
	case nbt.TagCompound:
		c := t.AsCompound()
		keys := c.Keys()
		sort.Strings(keys)
		for _, k := range keys {
			v, _ := c.Get(k)
			findStrings(v, func(path, value string) {
				cb(join(k, path), value)
			})
		}
	case nbt.TagList:
		for i, v := range t.AsList().Items {
			findStrings(v, func(path, value string) {
				cb(join(fmt.Sprintf("[%d]", i), path), value)
			})
		}
	}
}

func (d *Dump) readWorld(path string) error {
	if err := d.readDimension(0, filepath.Join(path, "region")); err != nil {
		return err
	}
	if err := d.readDimension(-1, filepath.Join(path, "DIM-1", "region")); err != nil {
		return err
	}
	if err := d.readDimension(1, filepath.Join(path, "DIM1", "region")); err != nil {
		return err
	}
	return nil
}

func (d *Dump) readDimension(dim int, path string) error {
	dir, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cannot read contents of directory %q: %v", path, err)
	}

	for _, entry := range dir {
		x, z, ok := anvil.ParseRegionFilename(entry.Name())
		if !ok {
			continue
		}
		if err := d.readRegion(dim, x, z, filepath.Join(path, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dump) readRegion(dim, x, z int, path string) error {
	r, err := anvil.Load(x, z, path)
	if err != nil {
		return err
	}
	for i := 0; i < 1024; i++ {
		_, _, present := r.LocateChunk(i)
		if !present {
			continue
		}
		dx, dz := i%32, i/32
		raw, err := r.DecompressChunk(i)
		if err != nil {
			return fmt.Errorf("cannot read chunk %d in region file %q: %v", i, path, err)
		}
		root, err := nbt.Decode(raw)
		if err != nil {
			return fmt.Errorf("cannot decode chunk %d in region file %q: %v", i, path, err)
		}
		findStrings(root, func(path, value string) {
			if !d.keep(path, value) {
				return
			}
			d.csv.Write([]string{
				strconv.Itoa(dim),
				strconv.Itoa(x*32 + dx),
				strconv.Itoa(z*32 + dz),
				path,
				value,
			})
		})
		d.csv.Flush()
		if err := d.csv.Error(); err != nil {
			return fmt.Errorf("cannot write output: %v", err)
		}
	}
	return nil
}

func (*Dump) Name() string { return "dump" }

func (*Dump) Synopsis() string { return "Dump strings from a Minecraft world." }

func (*Dump) Usage() string {
	return `dump [<flags>...] <world>
Dump strings from a Minecraft world.

Extract strings from the Minecraft world located in the directory <world>.
This should be the directory containing level.dat. The strings will be output
in CSV format with the following columns:

  dimension - The dimension in which the string is located (0=overworld,
              -1=nether, 1=the end).
  chunk_x   - The x-coordinate of the chunk containing the string.
  chunk_z   - The z-coordinate of the chunk containing the string.
  nbt_path  - The path within the NBT data tree where the string is located.
  value     - The string.

`
}

func (d *Dump) SetFlags(f *flag.FlagSet) {
	f.StringVar(&d.filter, "filter", "all", fmt.Sprintf("Only include entries matching a filter (one of: %s)", validOutputFilters()))
	f.BoolVar(&d.invert, "invert", false, "Output entries *not* matching the filter")
	f.BoolVar(&d.header, "header", true, "Include header row in the output")
	f.StringVar(&d.output, "output", "", "File to write results to (if empty, results are written to stdout)")
}

func (d *Dump) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "<world> is required.")
		return subcommands.ExitUsageError
	}
	if f.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Extra positional arguments found.")
		return subcommands.ExitUsageError
	}
	d.world = f.Arg(0)
	of, ok := outputFilters[d.filter]
	if !ok {
		fmt.Fprintf(os.Stderr, "Invalid filter (%q), must be one of %s.\n", d.filter, validOutputFilters())
		return subcommands.ExitUsageError
	}
	if d.invert {
		orig := of
		of = func(k, v string) bool { return !orig(k, v) }
	}
	w := os.Stdout
	if d.output != "" {
		out, err := os.Create(d.output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open file %q for writing: %v\n", d.output, err)
			return subcommands.ExitFailure
		}
		defer out.Close()
		w = out
	}
	d.csv = csv.NewWriter(w)
	d.keep = of
	if d.header {
		d.csv.Write([]string{"dimension", "chunk_x", "chunk_z", "nbt_path", "value"})
	}
	if err := d.readWorld(d.world); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot read world: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
