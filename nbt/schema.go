package nbt

// SchemaEntry is a (name, type, list-element-type) triple describing one
// recognized key in a schema-governed compound (spec.md §3 "Tag schema
// entry"). ListElem is only meaningful when Type == TagList.
// EmptyListAsByteArray marks the two historical names (Entities,
// TileEntities) whose empty-list form is serialized as a zero-length
// ByteArray instead of an empty TAG_List.
type SchemaEntry struct {
	Name                  string
	Type                  byte
	ListElem              byte
	EmptyListAsByteArray  bool
}

// Schema is a flat name -> entry lookup table. WriteTags consults it to
// validate and type the direct children of the compound it is asked to
// encode (spec.md §4.3: "Two static schemas: one for level.dat, one for
// chunk roots"). Nested compounds reached while writing a schema-governed
// field (section entries, GameRules, entity/tile-entity payloads) are
// written using each decoded Tag's own recorded wire type rather than a
// further schema lookup — spec.md §1 explicitly excludes "schema validation
// beyond tag typing" as a non-goal, and real entities/tile-entities carry
// per-type fields no static table enumerates completely.
type Schema struct {
	entries map[string]SchemaEntry
}

// NewSchema builds a Schema from a list of entries.
func NewSchema(entries []SchemaEntry) *Schema {
	s := &Schema{entries: make(map[string]SchemaEntry, len(entries))}
	for _, e := range entries {
		s.entries[e.Name] = e
	}
	return s
}

// Lookup returns the entry for name and whether it exists.
func (s *Schema) Lookup(name string) (SchemaEntry, bool) {
	e, ok := s.entries[name]
	return e, ok
}

// LevelDatTags is the schema for level.dat's "Data" compound.
var LevelDatTags = NewSchema([]SchemaEntry{
	{Name: "RandomSeed", Type: TagLong},
	{Name: "SpawnX", Type: TagInt},
	{Name: "SpawnY", Type: TagInt},
	{Name: "SpawnZ", Type: TagInt},
	{Name: "Time", Type: TagLong},
	{Name: "DayTime", Type: TagLong},
	{Name: "LastPlayed", Type: TagLong},
	{Name: "SizeOnDisk", Type: TagLong},
	{Name: "LevelName", Type: TagString},
	{Name: "version", Type: TagInt},
	{Name: "clearWeatherTime", Type: TagInt},
	{Name: "rainTime", Type: TagInt},
	{Name: "raining", Type: TagByte},
	{Name: "thunderTime", Type: TagInt},
	{Name: "thundering", Type: TagByte},
	{Name: "hardcore", Type: TagByte},
	{Name: "initialized", Type: TagByte},
	{Name: "GameType", Type: TagInt},
	{Name: "MapFeatures", Type: TagByte},
	{Name: "Difficulty", Type: TagByte},
	{Name: "DifficultyLocked", Type: TagByte},
	{Name: "allowCommands", Type: TagByte},
	{Name: "generatorName", Type: TagString},
	{Name: "generatorVersion", Type: TagInt},
	{Name: "generatorOptions", Type: TagString},
	{Name: "BorderCenterX", Type: TagDouble},
	{Name: "BorderCenterZ", Type: TagDouble},
	{Name: "BorderSize", Type: TagDouble},
	{Name: "BorderSafeZone", Type: TagDouble},
	{Name: "BorderWarningBlocks", Type: TagDouble},
	{Name: "BorderWarningTime", Type: TagDouble},
	{Name: "BorderSizeLerpTarget", Type: TagDouble},
	{Name: "BorderSizeLerpTime", Type: TagLong},
	{Name: "BorderDamagePerBlock", Type: TagDouble},
	{Name: "GameRules", Type: TagCompound},
	{Name: "Player", Type: TagCompound},
	{Name: "DataVersion", Type: TagInt},
})

// GameRuleNames lists the GameRules keys whose string value is the
// boolean-surfaced variant (spec.md §9, "GameRules-style fields").
var GameRuleNames = map[string]bool{
	"doFireTick":              true,
	"mobGriefing":             true,
	"keepInventory":           true,
	"doMobSpawning":           true,
	"doMobLoot":               true,
	"doTileDrops":             true,
	"doEntityDrops":           true,
	"commandBlockOutput":      true,
	"naturalRegeneration":     true,
	"doDaylightCycle":         true,
	"logAdminCommands":        true,
	"showDeathMessages":       true,
	"randomTickSpeed":         false, // numeric string, not boolean
	"sendCommandFeedback":     true,
	"reducedDebugInfo":        true,
	"spectatorsGenerateChunks": true,
	"disableElytraMovementCheck": true,
	"doWeatherCycle":          true,
}

// ChunkTags is the schema for a chunk root's "Level" compound.
var ChunkTags = NewSchema([]SchemaEntry{
	{Name: "xPos", Type: TagInt},
	{Name: "zPos", Type: TagInt},
	{Name: "LastUpdate", Type: TagLong},
	{Name: "LightPopulated", Type: TagByte},
	{Name: "TerrainPopulated", Type: TagByte},
	{Name: "V", Type: TagByte},
	{Name: "InhabitedTime", Type: TagLong},
	{Name: "Biomes", Type: TagByteArray},
	{Name: "HeightMap", Type: TagIntArray},
	{Name: "Sections", Type: TagList, ListElem: TagCompound},
	{Name: "Entities", Type: TagList, ListElem: TagCompound, EmptyListAsByteArray: true},
	{Name: "TileEntities", Type: TagList, ListElem: TagCompound, EmptyListAsByteArray: true},
	{Name: "TileTicks", Type: TagList, ListElem: TagCompound},
})

// SectionFieldTypes describes the fixed shape of a Sections list element
// (spec.md §3 "Chunk"). Neither the chunk/block accessor nor the
// schema-driven encoder reads it (section compounds are written generically
// per their own recorded tag types once WriteTags has validated the
// enclosing Sections list against ChunkTags).
var SectionFieldTypes = map[string]byte{
	"Y":          TagByte,
	"Blocks":     TagByteArray,
	"Add":        TagByteArray,
	"Data":       TagByteArray,
	"BlockLight": TagByteArray,
	"SkyLight":   TagByteArray,
}
