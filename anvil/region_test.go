package anvil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bramblewood/mcworld/nbt"
)

func chunkRoot(xPos, zPos int32, filler byte, biomesLen int) nbt.Tag {
	level := nbt.NewCompound()
	level.Set("xPos", nbt.IntTag(xPos))
	level.Set("zPos", nbt.IntTag(zPos))
	level.Set("TerrainPopulated", nbt.ByteTag(1))
	level.Set("Biomes", nbt.ByteArrayTag(bytesOf(filler, biomesLen)))
	level.Set("Sections", nbt.ListTag(nbt.TagCompound, nil))
	level.Set("Entities", nbt.ListTag(nbt.TagCompound, nil))
	level.Set("TileEntities", nbt.ListTag(nbt.TagCompound, nil))
	root := nbt.NewCompound()
	root.Set("Level", nbt.CompoundTag(level))
	return nbt.CompoundTag(root)
}

// bytesOf fills a deterministic, poorly-compressible byte slice so tests that
// assert on sector counts aren't fooled by zlib collapsing constant runs.
func bytesOf(v byte, n int) []byte {
	out := make([]byte, n)
	state := uint32(v)*2654435761 + 1
	for i := range out {
		state = state*1664525 + 1013904223
		out[i] = byte(state >> 24)
	}
	return out
}

func TestParseRegionFilename(t *testing.T) {
	assert := assert.New(t)

	x, z, ok := ParseRegionFilename("r.3.-1.mca")
	assert.True(ok)
	assert.Equal(3, x)
	assert.Equal(-1, z)

	_, _, ok = ParseRegionFilename("not-a-region-file.txt")
	assert.False(ok)

	assert.Equal("r.3.-1.mca", FileName(3, -1))
}

func TestRegionRoundTrip(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	r, err := Load(0, 0, "/nonexistent/path/r.0.0.mca")
	require.NoError(err)

	root := chunkRoot(0, 0, 7, 256)
	require.NoError(r.UpdateRegion(0, root, "Level", nbt.ChunkTags))

	_, count, present := r.LocateChunk(0)
	require.True(present)
	require.Equal(1, count)

	raw, err := r.DecompressChunk(0)
	require.NoError(err)
	decoded, err := nbt.Decode(raw)
	require.NoError(err)
	assert.True(root.Equal(decoded))
}

func TestRegionChunkGrowthRelocates(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	r, err := Load(0, 0, "/nonexistent/path/r.0.0.mca")
	require.NoError(err)

	// Write two small chunks back-to-back, then grow the first one so it
	// no longer fits in its original sector(s): it grows in place and the
	// second chunk is shifted past it (spec.md §4.4 step 4: shift the tail,
	// rewrite later directory entries).
	small := chunkRoot(0, 0, 1, 16)
	require.NoError(r.UpdateRegion(0, small, "Level", nbt.ChunkTags))
	require.NoError(r.UpdateRegion(1, small, "Level", nbt.ChunkTags))

	offset0Before, count0Before, _ := r.LocateChunk(0)
	offset1Before, _, _ := r.LocateChunk(1)
	require.Equal(offset0Before+count0Before, offset1Before, "chunks should be packed contiguously")

	big := chunkRoot(0, 0, 2, 200000) // large enough to need more sectors
	require.NoError(r.UpdateRegion(0, big, "Level", nbt.ChunkTags))

	offset0After, count0After, present0 := r.LocateChunk(0)
	offset1After, count1After, present1 := r.LocateChunk(1)
	require.True(present0)
	require.True(present1)
	assert.Greater(count0After, count0Before)

	// The two chunks' sector ranges must remain disjoint (spec.md §8
	// property: "sector disjointness").
	end0 := offset0After + count0After
	end1 := offset1After + count1After
	disjoint := end0 <= offset1After || end1 <= offset0After
	assert.True(disjoint, "chunk sector ranges must not overlap after relocation")

	raw0, err := r.DecompressChunk(0)
	require.NoError(err)
	decoded0, err := nbt.Decode(raw0)
	require.NoError(err)
	assert.True(big.Equal(decoded0))

	raw1, err := r.DecompressChunk(1)
	require.NoError(err)
	decoded1, err := nbt.Decode(raw1)
	require.NoError(err)
	assert.True(small.Equal(decoded1))
}

func TestRegionCompactAfterGrowthKeepsChunks(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	r, err := Load(0, 0, "/nonexistent/path/r.0.0.mca")
	require.NoError(err)

	small := chunkRoot(0, 0, 1, 16)
	big := chunkRoot(0, 0, 2, 200000)
	require.NoError(r.UpdateRegion(0, small, "Level", nbt.ChunkTags))
	require.NoError(r.UpdateRegion(1, small, "Level", nbt.ChunkTags))
	// Grows chunk 0 in place and shifts chunk 1 past it.
	require.NoError(r.UpdateRegion(0, big, "Level", nbt.ChunkTags))

	sizeBefore := r.currentSize
	require.NoError(r.Compact())
	assert.LessOrEqual(r.currentSize, sizeBefore)

	raw0, err := r.DecompressChunk(0)
	require.NoError(err)
	decoded0, err := nbt.Decode(raw0)
	require.NoError(err)
	assert.True(big.Equal(decoded0))

	raw1, err := r.DecompressChunk(1)
	require.NoError(err)
	decoded1, err := nbt.Decode(raw1)
	require.NoError(err)
	assert.True(small.Equal(decoded1))
}
