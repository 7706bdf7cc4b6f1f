package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkBlockRoundTrip(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	c := NewChunk(0, 0)
	block := Block{ID: 42, Data: 5, BlockLight: 15, SkyLight: 3}
	require.NoError(c.PutBlock(1, 70, 14, block))

	got, err := c.GetBlock(1, 70, 14)
	require.NoError(err)
	assert.Equal(block, got)
}

func TestChunkBlockHighIDUsesAddNibble(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	c := NewChunk(0, 0)
	// id=300 needs the Add nibble: 300 = 0x12C, low byte 0x2C, high nibble 0x1.
	block := Block{ID: 300, Data: 1}
	require.NoError(c.PutBlock(0, 0, 0, block))

	sc, ok := c.findSection(0)
	require.True(ok)
	addTag, ok := sc.Get("Add")
	require.True(ok, "Add array should be allocated for a block id above 255")
	assert.Equal(uint8(1), GetNibble(addTag.AsByteArray(), LocalIndex(0, 0, 0)))

	got, err := c.GetBlock(0, 0, 0)
	require.NoError(err)
	assert.Equal(300, got.ID)
}

func TestChunkGetBlockAbsentSectionIsAir(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	c := NewChunk(0, 0)
	got, err := c.GetBlock(5, 200, 5)
	require.NoError(err)
	assert.Equal(Block{}, got)
}

func TestChunkBlockOutOfRange(t *testing.T) {
	c := NewChunk(0, 0)
	_, err := c.GetBlock(0, 256, 0)
	assert.Error(t, err)
	_, err = c.GetBlock(16, 0, 0)
	assert.Error(t, err)
	err = c.PutBlock(0, 0, 0, Block{ID: 5000})
	assert.Error(t, err)
}

func TestChunkRootTagRoundTrip(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	c := NewChunk(3, -2)
	require.NoError(c.PutBlock(0, 0, 0, Block{ID: 1}))

	root := c.RootTag()
	reloaded, err := LoadChunk(3, -2, root)
	require.NoError(err)

	got, err := reloaded.GetBlock(0, 0, 0)
	require.NoError(err)
	assert.Equal(1, got.ID)
}
