package nbt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLevelDat() Tag {
	data := NewCompound()
	data.Set("LevelName", StringTag("My World"))
	data.Set("RandomSeed", LongTag(42))
	data.Set("raining", ByteTag(0))
	gameRules := NewCompound()
	gameRules.Set("doFireTick", BoolTag(true))
	gameRules.Set("randomTickSpeed", StringTag("3"))
	data.Set("GameRules", CompoundTag(gameRules))

	root := NewCompound()
	root.Set("Data", CompoundTag(data))
	return CompoundTag(root)
}

func TestRoundTripLevelDat(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	root := buildLevelDat()
	encoded, err := WriteTags(root, "Data", LevelDatTags)
	require.NoError(err)

	decoded, err := Decode(encoded)
	require.NoError(err)

	assert.True(root.Equal(decoded), "round-tripped tag tree should equal the original")
}

func TestRoundTripChunk(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	blocks := make([]byte, 4096)
	blocks[0] = 1
	section := NewCompound()
	section.Set("Y", ByteTag(0))
	section.Set("Blocks", ByteArrayTag(blocks))
	section.Set("Data", ByteArrayTag(make([]byte, 2048)))
	section.Set("BlockLight", ByteArrayTag(make([]byte, 2048)))
	section.Set("SkyLight", ByteArrayTag(make([]byte, 2048)))

	level := NewCompound()
	level.Set("xPos", IntTag(0))
	level.Set("zPos", IntTag(0))
	level.Set("TerrainPopulated", ByteTag(1))
	level.Set("Sections", ListTag(TagCompound, []Tag{CompoundTag(section)}))
	level.Set("Entities", ListTag(TagCompound, nil))
	level.Set("TileEntities", ListTag(TagCompound, nil))

	root := NewCompound()
	root.Set("Level", CompoundTag(level))
	rootTag := CompoundTag(root)

	encoded, err := WriteTags(rootTag, "Level", ChunkTags)
	require.NoError(err)

	decoded, err := Decode(encoded)
	require.NoError(err)

	assert.True(rootTag.Equal(decoded))

	// Entities/TileEntities round-trip through the ByteArray(0) wire form but
	// decode back as an *empty List*, per spec.md §4.2's special case -- the
	// decoder maps that zero-length ByteArray back to the empty List.
	decodedLevel, _ := decoded.AsCompound().Get("Level")
	entities, ok := decodedLevel.AsCompound().Get("Entities")
	require.True(ok)
	assert.Equal(byte(TagList), entities.Type())
	assert.Len(entities.AsList().Items, 0)
}

func TestBoolExactEquality(t *testing.T) {
	assert := assert.New(t)

	trueTag := StringTag("true")
	v, ok := trueTag.Bool()
	assert.True(ok)
	assert.True(v)

	falseTag := StringTag("false")
	v, ok = falseTag.Bool()
	assert.True(ok)
	assert.False(v)

	other := StringTag("True")
	_, ok = other.Bool()
	assert.False(ok, "exact case-sensitive equality only, no truthy-string collapse")

	other = StringTag("falsehood")
	_, ok = other.Bool()
	assert.False(ok)
}

func TestUnknownKeyFailsSchema(t *testing.T) {
	assert := assert.New(t)

	data := NewCompound()
	data.Set("NotARealKey", StringTag("oops"))
	root := NewCompound()
	root.Set("Data", CompoundTag(data))

	_, err := WriteTags(CompoundTag(root), "Data", LevelDatTags)
	assert.Error(err)
	assert.Contains(err.Error(), "schema: unknown key")
}

func TestBadTypeFailsSchema(t *testing.T) {
	assert := assert.New(t)

	data := NewCompound()
	data.Set("RandomSeed", StringTag("not a long")) // schema expects TagLong
	root := NewCompound()
	root.Set("Data", CompoundTag(data))

	_, err := WriteTags(CompoundTag(root), "Data", LevelDatTags)
	assert.Error(err)
}

func TestNbtPathGetSet(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	root := buildLevelDat()
	got, err := Get(root, "Data/GameRules/doFireTick")
	require.NoError(err)
	v, ok := got.Bool()
	require.True(ok)
	assert.True(v)

	err = Set(root, "Data/LevelName", StringTag("Renamed"))
	require.NoError(err)
	got, err = Get(root, "Data/LevelName")
	require.NoError(err)
	assert.Equal("Renamed", got.AsString())
}
