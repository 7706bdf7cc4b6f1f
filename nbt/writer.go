package nbt

import (
	"bytes"
	"math"

	"github.com/bramblewood/mcworld/mcerr"
)

// writer accumulates bytes and the first error encountered, mirroring the
// teacher-family hand-rolled NBT writer shape (cf.
// go-theft-craft-server/internal/server/world/nbt/writer.go's Writer, which
// tracks `err error` across chained Write* calls) generalized to write a
// Tag tree instead of ad hoc calls.
type writer struct {
	buf bytes.Buffer
	err error
}

func (w *writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *writer) putByte(v byte) {
	if w.err != nil {
		return
	}
	w.buf.WriteByte(v)
}

func (w *writer) putN(v uint64, n int) {
	if w.err != nil {
		return
	}
	var tmp [8]byte
	WriteBE(tmp[:n], v, n)
	w.buf.Write(tmp[:n])
}

func (w *writer) putBytes(b []byte) {
	if w.err != nil {
		return
	}
	w.buf.Write(b)
}

func (w *writer) writeHeader(tagType byte, name string) {
	w.putByte(tagType)
	w.putN(uint64(len(name)), 2)
	w.putBytes([]byte(name))
}

// WriteTags encodes a decoded document's root compound (as returned by
// Decode), schema-validating the direct fields of the single governed
// child named governedKey ("Data" for level.dat, "Level" for chunk roots)
// against schema. Other root-level keys, and everything nested below the
// governed layer, are written generically from each Tag's own recorded
// wire type — see schema.go's Schema doc comment for why (spec.md §1's
// "schema validation beyond tag typing" non-goal).
//
// This is spec.md §4.2's write_tags(dst, compound, schema) -> total_bytes.
func WriteTags(root Tag, governedKey string, schema *Schema) ([]byte, error) {
	if root.Type() != TagCompound {
		return nil, mcerr.New(mcerr.SchemaBadType, "root tag must be a Compound, got %s", TagName(root.Type()))
	}
	w := &writer{}
	w.writeHeader(TagCompound, "")
	for _, key := range root.AsCompound().Keys() {
		val, _ := root.AsCompound().Get(key)
		if key == governedKey {
			if val.Type() != TagCompound {
				w.fail(mcerr.New(mcerr.SchemaBadType, "%q must be a Compound, got %s", key, TagName(val.Type())))
				break
			}
			w.writeHeader(TagCompound, key)
			writeGovernedBody(w, val.AsCompound(), schema)
			w.putByte(TagEnd)
		} else {
			w.writeField(key, val)
		}
	}
	w.putByte(TagEnd)
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}

// writeGovernedBody writes the body of a schema-governed compound: every
// key must resolve in schema, or encoding fails with SchemaUnknownKey; a
// resolved key whose tag type disagrees with its schema entry (and isn't
// the empty-list-as-byte-array special case) fails with SchemaBadType.
func writeGovernedBody(w *writer, c *Compound, schema *Schema) {
	for _, name := range c.Keys() {
		val, _ := c.Get(name)
		entry, ok := schema.Lookup(name)
		if !ok {
			w.fail(mcerr.New(mcerr.SchemaUnknownKey, "unknown tag name %q", name))
			return
		}
		if entry.Type == TagList && val.Type() == TagList {
			list := val.AsList()
			if len(list.Items) == 0 && entry.EmptyListAsByteArray {
				// spec.md §4.2: "emit a single 0x07 (BYTE_ARRAY) and a zero
				// length -- no element type byte."
				w.writeHeader(TagByteArray, name)
				w.putN(0, 4)
				continue
			}
			w.writeHeader(TagList, name)
			w.putByte(entry.ListElem)
			w.writeListPayload(entry.ListElem, list.Items)
			continue
		}
		if val.Type() != entry.Type {
			w.fail(mcerr.New(mcerr.SchemaBadType, "%q: schema expects %s, got %s", name, TagName(entry.Type), TagName(val.Type())))
			return
		}
		w.writeField(name, val)
		if w.err != nil {
			return
		}
	}
}

// writeField writes a tag's full (header + payload), typing the header
// from the tag's own recorded type.
func (w *writer) writeField(name string, t Tag) {
	w.writeHeader(t.Type(), name)
	w.writePayload(t)
}

func (w *writer) writePayload(t Tag) {
	if w.err != nil {
		return
	}
	switch t.Type() {
	case TagByte:
		w.putN(uint64(uint8(t.AsByte())), 1)
	case TagShort:
		w.putN(uint64(uint16(t.AsShort())), 2)
	case TagInt:
		w.putN(uint64(uint32(t.AsInt())), 4)
	case TagLong:
		w.putN(uint64(t.AsLong()), 8)
	case TagFloat:
		w.putN(uint64(math.Float32bits(t.AsFloat())), 4)
	case TagDouble:
		w.putN(math.Float64bits(t.AsDouble()), 8)
	case TagByteArray:
		b := t.AsByteArray()
		w.putN(uint64(len(b)), 4)
		w.putBytes(b)
	case TagIntArray:
		ints := t.AsIntArray()
		w.putN(uint64(len(ints)), 4)
		for _, v := range ints {
			w.putN(uint64(uint32(v)), 4)
		}
	case TagString:
		// StringTag already stores the literal bytes, whether or not this is
		// the boolean-surfaced variant (spec.md §9): re-emit unchanged.
		s := t.AsString()
		w.putN(uint64(len(s)), 2)
		w.putBytes([]byte(s))
	case TagList:
		list := t.AsList()
		w.putByte(list.ElemType)
		w.writeListPayload(list.ElemType, list.Items)
	case TagCompound:
		c := t.AsCompound()
		for _, name := range c.Keys() {
			val, _ := c.Get(name)
			w.writeField(name, val)
		}
		w.putByte(TagEnd)
	default:
		w.fail(mcerr.New(mcerr.NbtDecode, "cannot encode unknown tag type %d", t.Type()))
	}
}

// writeListPayload writes a list's length prefix and each element's raw
// payload -- no per-element tag envelope (spec.md §4.2).
func (w *writer) writeListPayload(elemType byte, items []Tag) {
	w.putN(uint64(len(items)), 4)
	for _, item := range items {
		if item.Type() != elemType {
			w.fail(mcerr.New(mcerr.SchemaBadType, "list element: expected %s, got %s", TagName(elemType), TagName(item.Type())))
			return
		}
		w.writePayload(item)
		if w.err != nil {
			return
		}
	}
}
