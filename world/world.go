package world

import (
	"os"
	"path/filepath"

	"github.com/google/renameio"

	"github.com/bramblewood/mcworld/anvil"
	"github.com/bramblewood/mcworld/mcerr"
	"github.com/bramblewood/mcworld/mclog"
	"github.com/bramblewood/mcworld/nbt"
)

const (
	// MaxRegions bounds the number of Region buffers held resident at once
	// (spec.md §4.6 "bounded region cache").
	MaxRegions = 8
	// MaxChunks is the size of the direct-mapped chunk table (spec.md §4.6
	// "bounded chunk cache").
	MaxChunks = 100
)

// regionKey identifies a cached Region by its file coordinates.
type regionKey struct{ X, Z int }

// CacheStats reports the resident state of a World's region and chunk
// caches, a supplement to spec.md §8's observability property ("a caller
// can confirm the caches stay bounded").
type CacheStats struct {
	ResidentRegions int
	ResidentChunks  int
	Evictions       int
}

// World is the top-level handle on an Anvil save directory: the decoded
// level.dat "Data" compound plus the bounded region and chunk caches that
// sit in front of the region files on disk (spec.md §3 "World", §4.6).
type World struct {
	path string

	levelData *nbt.Compound
	levelDirty bool

	regions   map[regionKey]*anvil.Region
	mruOrder  []regionKey // least-recently-used first

	chunks [MaxChunks]*Chunk

	evictions int
}

// Open reads level.dat and prepares an empty region/chunk cache (spec.md
// §4.6 "open"). It does not eagerly load any region file.
func Open(path string) (*World, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, mcerr.Wrap(mcerr.Io, err, "world directory %q does not exist", path)
		}
		return nil, mcerr.Wrap(mcerr.Io, err, "stat world directory %q", path)
	}
	if !info.IsDir() {
		return nil, mcerr.New(mcerr.Io, "%q is not a directory", path)
	}

	levelPath := filepath.Join(path, "level.dat")
	raw, err := os.ReadFile(levelPath)
	if err != nil {
		return nil, mcerr.Wrap(mcerr.Io, err, "read %q", levelPath)
	}
	inflated, err := nbt.Inflate(raw, nbt.ModeGzip)
	if err != nil {
		return nil, err
	}
	root, err := nbt.Decode(inflated)
	if err != nil {
		return nil, err
	}
	data, ok := root.AsCompound().Get("Data")
	if !ok {
		return nil, mcerr.New(mcerr.SchemaUnknownKey, "level.dat is missing the Data compound")
	}
	if data.Type() != nbt.TagCompound {
		return nil, mcerr.New(mcerr.SchemaBadType, "level.dat Data field is not a Compound")
	}

	return &World{
		path:      path,
		levelData: data.AsCompound(),
		regions:   make(map[regionKey]*anvil.Region),
	}, nil
}

// LevelData exposes the decoded "Data" compound for reads and in-place
// edits (e.g. via nbt.Get/nbt.Set with a "Data/..." path).
func (w *World) LevelData() *nbt.Compound {
	return w.levelData
}

// MarkLevelDirty records that the level.dat compound was edited. Save
// re-encodes level.dat whether or not this flag is set.
func (w *World) MarkLevelDirty() {
	w.levelDirty = true
}

func (w *World) regionPath(x, z int) string {
	return filepath.Join(w.path, "region", anvil.FileName(x, z))
}

func (w *World) touchRegion(key regionKey) {
	for i, k := range w.mruOrder {
		if k == key {
			w.mruOrder = append(w.mruOrder[:i], w.mruOrder[i+1:]...)
			break
		}
	}
	w.mruOrder = append(w.mruOrder, key)
}

// LoadRegion returns the cached Region for (x, z), loading and, if the
// cache is full, evicting the least-recently-used region first (spec.md
// §4.6 "load_region").
func (w *World) LoadRegion(x, z int) (*anvil.Region, error) {
	key := regionKey{x, z}
	if r, ok := w.regions[key]; ok {
		w.touchRegion(key)
		return r, nil
	}

	if len(w.regions) >= MaxRegions {
		if err := w.evictOneRegion(); err != nil {
			return nil, err
		}
	}

	r, err := anvil.Load(x, z, w.regionPath(x, z))
	if err != nil {
		return nil, err
	}
	w.regions[key] = r
	w.touchRegion(key)
	mclog.Debugf("loaded region (%d,%d), %d resident", x, z, len(w.regions))
	return r, nil
}

// evictOneRegion flushes and releases the least-recently-used region,
// first writing back any dirty chunks belonging to it.
func (w *World) evictOneRegion() error {
	if len(w.mruOrder) == 0 {
		return nil
	}
	key := w.mruOrder[0]
	w.mruOrder = w.mruOrder[1:]
	r := w.regions[key]
	delete(w.regions, key)

	if err := w.flushChunksForRegion(key, r); err != nil {
		return err
	}
	// Eviction always saves, matching the original unload_region (region.c):
	// it has no dirty flag at all, it saves unconditionally on every unload.
	if err := r.SaveRegion(w.regionPath(key.X, key.Z)); err != nil {
		return err
	}
	w.evictions++
	mclog.Debugf("evicted region (%d,%d)", key.X, key.Z)
	return nil
}

func (w *World) flushChunksForRegion(key regionKey, r *anvil.Region) error {
	for i, c := range w.chunks {
		if c == nil || !c.Dirty() {
			continue
		}
		if ChunkToRegion(c.X) != key.X || ChunkToRegion(c.Z) != key.Z {
			continue
		}
		idx := RegionIndex(c.X, c.Z)
		if err := r.UpdateRegion(idx, c.RootTag(), "Level", nbt.ChunkTags); err != nil {
			return err
		}
		c.ClearDirty()
		w.chunks[i] = c
	}
	return nil
}

func chunkSlot(cx, cz int) int {
	h := (int64(cx) << 16) ^ int64(cz)
	m := h % int64(MaxChunks)
	if m < 0 {
		m += int64(MaxChunks)
	}
	return int(m)
}

// GetChunk returns the chunk at absolute chunk coordinates (cx, cz),
// loading it from its region (or creating it fresh if the region has no
// entry for it) on a cache miss, evicting and flushing whatever
// direct-mapped occupant collides with its slot first (spec.md §4.6
// "get_chunk").
func (w *World) GetChunk(cx, cz int) (*Chunk, error) {
	idx := chunkSlot(cx, cz)
	if occ := w.chunks[idx]; occ != nil {
		if occ.X == cx && occ.Z == cz {
			return occ, nil
		}
		if occ.Dirty() {
			if err := w.flushChunk(occ); err != nil {
				return nil, err
			}
		}
		w.evictions++
	}

	rx, rz := ChunkToRegion(cx), ChunkToRegion(cz)
	region, err := w.LoadRegion(rx, rz)
	if err != nil {
		return nil, err
	}

	regionIdx := RegionIndex(cx, cz)
	_, _, present := region.LocateChunk(regionIdx)

	var chunk *Chunk
	if present {
		raw, err := region.DecompressChunk(regionIdx)
		if err != nil {
			return nil, err
		}
		root, err := nbt.Decode(raw)
		if err != nil {
			return nil, err
		}
		chunk, err = LoadChunk(cx, cz, root)
		if err != nil {
			return nil, err
		}
	} else {
		chunk = NewChunk(cx, cz)
	}

	w.chunks[idx] = chunk
	return chunk, nil
}

// flushChunk writes a dirty chunk back into its owning region's buffer
// (not yet to disk; SaveRegion/Save does that).
func (w *World) flushChunk(c *Chunk) error {
	rx, rz := ChunkToRegion(c.X), ChunkToRegion(c.Z)
	region, err := w.LoadRegion(rx, rz)
	if err != nil {
		return err
	}
	idx := RegionIndex(c.X, c.Z)
	if err := region.UpdateRegion(idx, c.RootTag(), "Level", nbt.ChunkTags); err != nil {
		return err
	}
	c.ClearDirty()
	return nil
}

// GetBlock reads the block at absolute block coordinates.
func (w *World) GetBlock(bx, by, bz int) (Block, error) {
	cx, cz := BlockToChunk(bx), BlockToChunk(bz)
	chunk, err := w.GetChunk(cx, cz)
	if err != nil {
		return Block{}, err
	}
	return chunk.GetBlock(Mod16(bx), Mod256(by), Mod16(bz))
}

// PutBlock writes the block at absolute block coordinates.
func (w *World) PutBlock(bx, by, bz int, block Block) error {
	cx, cz := BlockToChunk(bx), BlockToChunk(bz)
	chunk, err := w.GetChunk(cx, cz)
	if err != nil {
		return err
	}
	return chunk.PutBlock(Mod16(bx), Mod256(by), Mod16(bz), block)
}

// FlushAll writes back every resident dirty chunk into its region's
// buffer, without saving region files to disk.
func (w *World) FlushAll() error {
	for i, c := range w.chunks {
		if c == nil || !c.Dirty() {
			continue
		}
		if err := w.flushChunk(c); err != nil {
			return err
		}
		w.chunks[i] = c
	}
	return nil
}

// SaveRegion flushes resident dirty chunks belonging to (x, z) and writes
// that region's buffer to disk.
func (w *World) SaveRegion(x, z int) error {
	key := regionKey{x, z}
	r, ok := w.regions[key]
	if !ok {
		return nil
	}
	if err := w.flushChunksForRegion(key, r); err != nil {
		return err
	}
	return r.SaveRegion(w.regionPath(x, z))
}

// Save flushes every resident chunk, writes every dirty resident region to
// disk, and re-encodes level.dat (spec.md §4.6 "save").
func (w *World) Save() error {
	if err := w.FlushAll(); err != nil {
		return err
	}
	for key, r := range w.regions {
		if r.Dirty() {
			if err := r.SaveRegion(w.regionPath(key.X, key.Z)); err != nil {
				return err
			}
		}
	}

	root := nbt.NewCompound()
	root.Set("Data", nbt.CompoundTag(w.levelData))
	encoded, err := nbt.WriteTags(nbt.CompoundTag(root), "Data", nbt.LevelDatTags)
	if err != nil {
		return err
	}
	compressed, err := nbt.Deflate(encoded, nbt.ModeGzip)
	if err != nil {
		return err
	}
	levelPath := filepath.Join(w.path, "level.dat")
	if err := renameio.WriteFile(levelPath, compressed, 0o644); err != nil {
		return mcerr.Wrap(mcerr.Io, err, "save %q", levelPath)
	}
	w.levelDirty = false
	return nil
}

// Stats reports the current cache occupancy (spec.md §8 property 6).
func (w *World) Stats() CacheStats {
	resident := 0
	for _, c := range w.chunks {
		if c != nil {
			resident++
		}
	}
	return CacheStats{
		ResidentRegions: len(w.regions),
		ResidentChunks:  resident,
		Evictions:       w.evictions,
	}
}
