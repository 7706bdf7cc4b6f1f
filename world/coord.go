// Package world owns the World/Region/Chunk object graph: coordinate
// resolution, the bounded region (LRU) and chunk (direct-mapped) caches, and
// the block-level read/write API that
// sits on top of the anvil and nbt packages (spec.md §4.5, §4.6).
package world

// BlockToChunk converts a block coordinate to its containing chunk
// coordinate (spec.md §6: "block -> chunk via arithmetic shift right by 4").
func BlockToChunk(b int) int {
	return b >> 4
}

// ChunkToRegion converts a chunk coordinate to its containing region
// coordinate ("chunk -> region via arithmetic shift right by 5").
func ChunkToRegion(c int) int {
	return c >> 5
}

// LocalIndex computes the intra-chunk position index for a chunk-local
// block coordinate, per spec.md §6: "position = (y mod 16)*256 + z*16 + x".
func LocalIndex(x, y, z int) int {
	return (y%16)*256 + z*16 + x
}

// Mod16 returns v mod 16, always in [0, 16) (arithmetic shift semantics:
// spec.md's "x mod 16" / "z mod 16" operate on the always-non-negative
// chunk-local coordinate produced by the caller, but we defensively wrap
// negative inputs the same way so callers passing raw world coordinates
// still land in range).
func Mod16(v int) int {
	m := v % 16
	if m < 0 {
		m += 16
	}
	return m
}

// Mod32 returns v mod 32, always in [0, 32).
func Mod32(v int) int {
	m := v % 32
	if m < 0 {
		m += 32
	}
	return m
}

// Mod256 returns v mod 256, always in [0, 256). World.GetBlock/PutBlock wrap
// the y coordinate through this before delegating to a Chunk, the same
// wrap the original C World_get_block/World_put_block apply ("y = y % 256")
// before calling into the chunk.
func Mod256(v int) int {
	m := v % 256
	if m < 0 {
		m += 256
	}
	return m
}

// RegionIndex computes a region file's directory-entry index for a chunk
// position local to that region: "i = (x & 31) + (z & 31)*32" (spec.md §4.4).
func RegionIndex(chunkX, chunkZ int) int {
	return Mod32(chunkX) + Mod32(chunkZ)*32
}
