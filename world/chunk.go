package world

import (
	"github.com/bramblewood/mcworld/mcerr"
	"github.com/bramblewood/mcworld/nbt"
)

// sectionBlocks, sectionNibbles are the fixed byte lengths of a chunk
// section's full-byte and nibble-packed fields (spec.md §3 "Chunk": 16
// sections per chunk, 16x16x16 blocks per section).
const (
	sectionBlocks  = 4096
	sectionNibbles = 2048
)

// Chunk is one 16x16x256 column: the decoded "Level" compound plus its
// absolute chunk coordinates (spec.md §3 "Chunk").
type Chunk struct {
	X, Z  int
	Level *nbt.Compound
	dirty bool
}

// NewChunk builds an empty chunk at (x, z) with no sections, ready for
// blocks to be written into it (spec.md §4.5: "section lookup/creation").
func NewChunk(x, z int) *Chunk {
	level := nbt.NewCompound()
	level.Set("xPos", nbt.IntTag(int32(x)))
	level.Set("zPos", nbt.IntTag(int32(z)))
	level.Set("LastUpdate", nbt.LongTag(0))
	level.Set("LightPopulated", nbt.ByteTag(0))
	level.Set("TerrainPopulated", nbt.ByteTag(1))
	level.Set("InhabitedTime", nbt.LongTag(0))
	level.Set("Biomes", nbt.ByteArrayTag(make([]byte, 256)))
	level.Set("HeightMap", nbt.IntArrayTag(make([]int32, 256)))
	level.Set("Sections", nbt.ListTag(nbt.TagCompound, nil))
	level.Set("Entities", nbt.ListTag(nbt.TagCompound, nil))
	level.Set("TileEntities", nbt.ListTag(nbt.TagCompound, nil))
	return &Chunk{X: x, Z: z, Level: level, dirty: true}
}

// LoadChunk wraps an already-decoded chunk root tag (the Compound holding
// "Level") as a Chunk.
func LoadChunk(x, z int, root nbt.Tag) (*Chunk, error) {
	level, ok := root.AsCompound().Get("Level")
	if !ok {
		return nil, mcerr.New(mcerr.SchemaUnknownKey, "chunk root is missing Level compound")
	}
	if level.Type() != nbt.TagCompound {
		return nil, mcerr.New(mcerr.SchemaBadType, "chunk Level field is not a Compound")
	}
	return &Chunk{X: x, Z: z, Level: level.AsCompound()}, nil
}

// RootTag rewraps the chunk's Level compound as the root document
// UpdateRegion expects to encode (spec.md §4.4's governed key "Level").
func (c *Chunk) RootTag() nbt.Tag {
	root := nbt.NewCompound()
	root.Set("Level", nbt.CompoundTag(c.Level))
	return nbt.CompoundTag(root)
}

// Dirty reports whether the chunk has unsaved block edits.
func (c *Chunk) Dirty() bool { return c.dirty }

// ClearDirty resets the dirty flag after the chunk has been flushed to its
// region.
func (c *Chunk) ClearDirty() { c.dirty = false }

func (c *Chunk) sections() *nbt.List {
	sectionsTag, ok := c.Level.Get("Sections")
	if !ok {
		sectionsTag = nbt.ListTag(nbt.TagCompound, nil)
		c.Level.Set("Sections", sectionsTag)
	}
	return sectionsTag.AsList()
}

// findSection returns the section compound for sectionY (0..15), if present.
func (c *Chunk) findSection(sectionY int8) (*nbt.Compound, bool) {
	list := c.sections()
	for _, item := range list.Items {
		sc := item.AsCompound()
		y, ok := sc.Get("Y")
		if !ok {
			continue
		}
		if y.AsByte() == sectionY {
			return sc, true
		}
	}
	return nil, false
}

// findOrCreateSection returns the section compound for sectionY, allocating
// a new, fully-zeroed one (and appending it to Sections) if it doesn't
// exist yet. The Add field is deliberately omitted until a block with id >
// 255 actually needs it (spec.md §4.5).
func (c *Chunk) findOrCreateSection(sectionY int8) *nbt.Compound {
	if sc, ok := c.findSection(sectionY); ok {
		return sc
	}
	sc := nbt.NewCompound()
	sc.Set("Y", nbt.ByteTag(sectionY))
	sc.Set("Blocks", nbt.ByteArrayTag(make([]byte, sectionBlocks)))
	sc.Set("Data", nbt.ByteArrayTag(make([]byte, sectionNibbles)))
	sc.Set("BlockLight", nbt.ByteArrayTag(make([]byte, sectionNibbles)))
	sc.Set("SkyLight", nbt.ByteArrayTag(make([]byte, sectionNibbles)))

	list := c.sections()
	list.Items = append(list.Items, nbt.CompoundTag(sc))
	return sc
}

// addArray returns the section's Add nibble array, allocating it the first
// time a block with an id above 255 is written into this section (spec.md
// §9 decision 2: the high nibble source is id>>8, correcting the original's
// data>>8 bug).
func (c *Chunk) addArray(sc *nbt.Compound) []byte {
	if t, ok := sc.Get("Add"); ok {
		return t.AsByteArray()
	}
	add := make([]byte, sectionNibbles)
	sc.Set("Add", nbt.ByteArrayTag(add))
	return add
}

// GetBlock reads the block at chunk-local coordinates (lx, y, lz), where
// lx, lz are in [0,16) and y is in [0,256). A block in a section that has
// never been written returns the zero Block (air, id 0) rather than an
// error (spec.md §4.5 "get_block").
func (c *Chunk) GetBlock(lx, y, lz int) (Block, error) {
	if y < 0 || y > 255 {
		return Block{}, mcerr.New(mcerr.CoordinateOutOfRange, "y=%d out of range [0,256)", y)
	}
	if lx < 0 || lx > 15 || lz < 0 || lz > 15 {
		return Block{}, mcerr.New(mcerr.CoordinateOutOfRange, "chunk-local (x=%d,z=%d) out of range [0,16)", lx, lz)
	}
	sc, ok := c.findSection(int8(y >> 4))
	if !ok {
		return Block{}, nil
	}
	idx := LocalIndex(lx, y, lz)
	blocks := mustByteArray(sc, "Blocks")
	id := int(blocks[idx])
	if addTag, ok := sc.Get("Add"); ok {
		id |= int(GetNibble(addTag.AsByteArray(), idx)) << 8
	}
	block := Block{ID: id}
	if data, ok := sc.Get("Data"); ok {
		block.Data = GetNibble(data.AsByteArray(), idx)
	}
	if bl, ok := sc.Get("BlockLight"); ok {
		block.BlockLight = GetNibble(bl.AsByteArray(), idx)
	}
	if sl, ok := sc.Get("SkyLight"); ok {
		block.SkyLight = GetNibble(sl.AsByteArray(), idx)
	}
	return block, nil
}

// PutBlock writes block at chunk-local coordinates, creating the owning
// section on demand (spec.md §4.5 "put_block").
func (c *Chunk) PutBlock(lx, y, lz int, block Block) error {
	if y < 0 || y > 255 {
		return mcerr.New(mcerr.CoordinateOutOfRange, "y=%d out of range [0,256)", y)
	}
	if lx < 0 || lx > 15 || lz < 0 || lz > 15 {
		return mcerr.New(mcerr.CoordinateOutOfRange, "chunk-local (x=%d,z=%d) out of range [0,16)", lx, lz)
	}
	if block.ID < 0 || block.ID > 4095 {
		return mcerr.New(mcerr.CoordinateOutOfRange, "block id %d out of range [0,4096)", block.ID)
	}
	sc := c.findOrCreateSection(int8(y >> 4))
	idx := LocalIndex(lx, y, lz)

	blocks := mustByteArray(sc, "Blocks")
	blocks[idx] = byte(block.ID & 0xFF)

	high := uint8(block.ID>>8) & 0x0F
	if high != 0 {
		SetNibble(c.addArray(sc), idx, high)
	} else if addTag, ok := sc.Get("Add"); ok {
		SetNibble(addTag.AsByteArray(), idx, 0)
	}

	SetNibble(mustByteArray(sc, "Data"), idx, block.Data)
	SetNibble(mustByteArray(sc, "BlockLight"), idx, block.BlockLight)
	SetNibble(mustByteArray(sc, "SkyLight"), idx, block.SkyLight)

	c.dirty = true
	return nil
}

func mustByteArray(sc *nbt.Compound, name string) []byte {
	t, ok := sc.Get(name)
	if !ok {
		size := sectionNibbles
		if name == "Blocks" {
			size = sectionBlocks
		}
		arr := make([]byte, size)
		sc.Set(name, nbt.ByteArrayTag(arr))
		return arr
	}
	return t.AsByteArray()
}
