// Package nbt implements the Named Binary Tag codec: a bidirectional mapping
// between the NBT wire format and an in-memory tag tree, guided by a static
// tag schema (see schema.go).
//
// The wire grammar (big-endian throughout):
//
//	tag      := type:u8 name_len:u16 name:utf8 payload
//	payload  := depends on type; see TagX constants below
//	list     := elem_type:u8 length:i32 elem*length (no per-element envelope)
//	array    := length:i32 elem*length
//	compound := (type:u8 name_len:u16 name:utf8 payload)* end:u8(=0)
package nbt

import "fmt"

// Tag type ids, matching the wire format.
const (
	TagEnd       byte = 0
	TagByte      byte = 1
	TagShort     byte = 2
	TagInt       byte = 3
	TagLong      byte = 4
	TagFloat     byte = 5
	TagDouble    byte = 6
	TagByteArray byte = 7
	TagString    byte = 8
	TagList      byte = 9
	TagCompound  byte = 10
	TagIntArray  byte = 11
)

// TagName returns a human-readable name for a tag type id, used in error
// messages.
func TagName(id byte) string {
	switch id {
	case TagEnd:
		return "End"
	case TagByte:
		return "Byte"
	case TagShort:
		return "Short"
	case TagInt:
		return "Int"
	case TagLong:
		return "Long"
	case TagFloat:
		return "Float"
	case TagDouble:
		return "Double"
	case TagByteArray:
		return "ByteArray"
	case TagString:
		return "String"
	case TagList:
		return "List"
	case TagCompound:
		return "Compound"
	case TagIntArray:
		return "IntArray"
	default:
		return fmt.Sprintf("Unknown(%d)", id)
	}
}

// Compound is an ordered mapping from tag name to Tag. Iteration order is
// preserved (via keys) so re-encoding a decoded document can be
// byte-identical when the schema orders fields the same way the source did;
// the on-disk format itself does not require any particular order.
type Compound struct {
	keys   []string
	values map[string]Tag
}

// NewCompound returns an empty, ordered Compound.
func NewCompound() *Compound {
	return &Compound{values: make(map[string]Tag)}
}

// Set inserts or overwrites the value for name, preserving first-insertion
// order.
func (c *Compound) Set(name string, v Tag) {
	if _, ok := c.values[name]; !ok {
		c.keys = append(c.keys, name)
	}
	c.values[name] = v
}

// Get returns the value for name and whether it was present.
func (c *Compound) Get(name string) (Tag, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Delete removes name from the compound, if present.
func (c *Compound) Delete(name string) {
	if _, ok := c.values[name]; !ok {
		return
	}
	delete(c.values, name)
	for i, k := range c.keys {
		if k == name {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the compound's keys in iteration order.
func (c *Compound) Keys() []string {
	return append([]string(nil), c.keys...)
}

// Len returns the number of entries in the compound.
func (c *Compound) Len() int {
	return len(c.keys)
}

// Equal reports whether c and other hold the same set of key/value pairs,
// regardless of order (Compound comparison is order-insensitive per
// spec.md's round-trip invariant; List comparison, inside Tag.Equal, remains
// order-sensitive).
func (c *Compound) Equal(other *Compound) bool {
	if c == nil || other == nil {
		return c == other
	}
	if len(c.keys) != len(other.keys) {
		return false
	}
	for k, v := range c.values {
		ov, ok := other.values[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// List is a homogeneous, ordered sequence of values. It carries its element
// type explicitly so an empty list still round-trips with the right wire
// representation.
type List struct {
	ElemType byte
	Items    []Tag
}

// Tag is a tagged variant holding exactly one NBT value. The zero Tag is
// invalid; use the constructors below.
type Tag struct {
	typ   byte
	i     int64   // Byte, Short, Int, Long (sign-extended)
	f     float64 // Float, Double
	bytes []byte  // ByteArray
	ints  []int32 // IntArray
	list  *List
	comp  *Compound
	str   string // String text
	isStr bool
}

// Type returns the tag's NBT type id.
func (t Tag) Type() byte { return t.typ }

func ByteTag(v int8) Tag    { return Tag{typ: TagByte, i: int64(v)} }
func ShortTag(v int16) Tag  { return Tag{typ: TagShort, i: int64(v)} }
func IntTag(v int32) Tag    { return Tag{typ: TagInt, i: int64(v)} }
func LongTag(v int64) Tag   { return Tag{typ: TagLong, i: v} }
func FloatTag(v float32) Tag { return Tag{typ: TagFloat, f: float64(v)} }
func DoubleTag(v float64) Tag { return Tag{typ: TagDouble, f: v} }

func ByteArrayTag(v []byte) Tag {
	return Tag{typ: TagByteArray, bytes: v}
}

func IntArrayTag(v []int32) Tag {
	return Tag{typ: TagIntArray, ints: v}
}

// StringTag constructs a String tag. If v is exactly "true" or "false" the
// tag also carries the logical boolean variant (spec.md §3, §9): Bool()
// will report ok=true for it, and the encoder re-emits the literal bytes
// unchanged either way.
func StringTag(v string) Tag {
	return Tag{typ: TagString, str: v, isStr: true}
}

// BoolTag constructs the boolean-surfaced string variant directly.
func BoolTag(v bool) Tag {
	if v {
		return StringTag("true")
	}
	return StringTag("false")
}

func ListTag(elemType byte, items []Tag) Tag {
	return Tag{typ: TagList, list: &List{ElemType: elemType, Items: items}}
}

func CompoundTag(c *Compound) Tag {
	return Tag{typ: TagCompound, comp: c}
}

func (t Tag) AsByte() int8    { return int8(t.i) }
func (t Tag) AsShort() int16  { return int16(t.i) }
func (t Tag) AsInt() int32    { return int32(t.i) }
func (t Tag) AsLong() int64   { return t.i }
func (t Tag) AsFloat() float32 { return float32(t.f) }
func (t Tag) AsDouble() float64 { return t.f }
func (t Tag) AsByteArray() []byte { return t.bytes }
func (t Tag) AsIntArray() []int32 { return t.ints }
func (t Tag) AsString() string    { return t.str }
func (t Tag) AsList() *List       { return t.list }
func (t Tag) AsCompound() *Compound { return t.comp }

// Bool reports whether this String tag is exactly "true" or "false", and if
// so its logical value. ok is false for any other tag, including strings
// that merely contain "true"/"false" as a substring or with different case
// (spec.md §9 mandates exact equality, not the original's truthy-string
// collapse bug).
func (t Tag) Bool() (value bool, ok bool) {
	if t.typ != TagString {
		return false, false
	}
	switch t.str {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

// Equal reports structural equality: Compound comparison is order-insensitive,
// List comparison is order-sensitive, and numeric widths are preserved (a
// Byte never equals a Short holding the same numeric value).
func (t Tag) Equal(other Tag) bool {
	if t.typ != other.typ {
		return false
	}
	switch t.typ {
	case TagByte, TagShort, TagInt, TagLong:
		return t.i == other.i
	case TagFloat, TagDouble:
		return t.f == other.f
	case TagByteArray:
		return bytesEqual(t.bytes, other.bytes)
	case TagIntArray:
		if len(t.ints) != len(other.ints) {
			return false
		}
		for i := range t.ints {
			if t.ints[i] != other.ints[i] {
				return false
			}
		}
		return true
	case TagString:
		return t.str == other.str
	case TagList:
		if t.list.ElemType != other.list.ElemType || len(t.list.Items) != len(other.list.Items) {
			return false
		}
		for i := range t.list.Items {
			if !t.list.Items[i].Equal(other.list.Items[i]) {
				return false
			}
		}
		return true
	case TagCompound:
		return t.comp.Equal(other.comp)
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
