package nbt

import (
	"math"

	"github.com/bramblewood/mcworld/mcerr"
)

// Decode decodes a full NBT document: a root envelope (type byte, a
// two-byte name length that is conventionally zero, and the name bytes, if
// any) followed by the root payload. It corresponds to spec.md §4.2's
// get_tag(buf, expected_id=-1, moved*).
func Decode(data []byte) (Tag, error) {
	pos := 0
	id, err := readByte(data, &pos)
	if err != nil {
		return Tag{}, err
	}
	nameLen, err := readUint16(data, &pos)
	if err != nil {
		return Tag{}, err
	}
	if _, err := readBytes(data, &pos, int(nameLen)); err != nil {
		return Tag{}, err
	}
	return decodePayload(data, &pos, id)
}

func readByte(data []byte, pos *int) (byte, error) {
	if *pos+1 > len(data) {
		return 0, mcerr.New(mcerr.NbtDecode, "truncated buffer reading byte at offset %d", *pos)
	}
	b := data[*pos]
	*pos++
	return b, nil
}

func readBytes(data []byte, pos *int, n int) ([]byte, error) {
	if n < 0 || *pos+n > len(data) {
		return nil, mcerr.New(mcerr.NbtDecode, "truncated buffer reading %d bytes at offset %d", n, *pos)
	}
	b := data[*pos : *pos+n]
	*pos += n
	return b, nil
}

func readUint16(data []byte, pos *int) (uint16, error) {
	b, err := readBytes(data, pos, 2)
	if err != nil {
		return 0, err
	}
	return uint16(ReadBE(b, 2)), nil
}

func readInt32(data []byte, pos *int) (int32, error) {
	b, err := readBytes(data, pos, 4)
	if err != nil {
		return 0, err
	}
	return int32(ReadBE(b, 4)), nil
}

func readInt64(data []byte, pos *int) (int64, error) {
	b, err := readBytes(data, pos, 8)
	if err != nil {
		return 0, err
	}
	return int64(ReadBE(b, 8)), nil
}

// decodePayload decodes the payload for a tag of type id, starting at
// *pos, advancing *pos past the payload (spec.md §4.2's per-type "advance
// *moved by the payload byte count").
func decodePayload(data []byte, pos *int, id byte) (Tag, error) {
	switch id {
	case TagByte:
		b, err := readByte(data, pos)
		if err != nil {
			return Tag{}, err
		}
		return ByteTag(int8(b)), nil

	case TagShort:
		v, err := readUint16(data, pos)
		if err != nil {
			return Tag{}, err
		}
		return ShortTag(int16(v)), nil

	case TagInt:
		v, err := readInt32(data, pos)
		if err != nil {
			return Tag{}, err
		}
		return IntTag(v), nil

	case TagLong:
		v, err := readInt64(data, pos)
		if err != nil {
			return Tag{}, err
		}
		return LongTag(v), nil

	case TagFloat:
		v, err := readInt32(data, pos)
		if err != nil {
			return Tag{}, err
		}
		return FloatTag(math.Float32frombits(uint32(v))), nil

	case TagDouble:
		v, err := readInt64(data, pos)
		if err != nil {
			return Tag{}, err
		}
		return DoubleTag(math.Float64frombits(uint64(v))), nil

	case TagByteArray:
		n, err := readInt32(data, pos)
		if err != nil {
			return Tag{}, err
		}
		b, err := readBytes(data, pos, int(n))
		if err != nil {
			return Tag{}, err
		}
		return ByteArrayTag(append([]byte(nil), b...)), nil

	case TagIntArray:
		n, err := readInt32(data, pos)
		if err != nil {
			return Tag{}, err
		}
		out := make([]int32, n)
		for i := range out {
			v, err := readInt32(data, pos)
			if err != nil {
				return Tag{}, err
			}
			out[i] = v
		}
		return IntArrayTag(out), nil

	case TagString:
		n, err := readUint16(data, pos)
		if err != nil {
			return Tag{}, err
		}
		b, err := readBytes(data, pos, int(n))
		if err != nil {
			return Tag{}, err
		}
		// A String's text is surfaced as the logical boolean variant only on
		// exact equality with "true"/"false" (spec.md §9); StringTag already
		// implements that exact check via Bool().
		return StringTag(string(b)), nil

	case TagList:
		elemType, err := readByte(data, pos)
		if err != nil {
			return Tag{}, err
		}
		n, err := readInt32(data, pos)
		if err != nil {
			return Tag{}, err
		}
		items := make([]Tag, 0, n)
		for i := int32(0); i < n; i++ {
			item, err := decodePayload(data, pos, elemType)
			if err != nil {
				return Tag{}, err
			}
			items = append(items, item)
		}
		return ListTag(elemType, items), nil

	case TagCompound:
		c := NewCompound()
		for {
			childID, err := readByte(data, pos)
			if err != nil {
				return Tag{}, err
			}
			if childID == TagEnd {
				break
			}
			nameLen, err := readUint16(data, pos)
			if err != nil {
				return Tag{}, err
			}
			if nameLen == 0 {
				return Tag{}, mcerr.New(mcerr.NbtDecode, "zero-length compound key for tag type %s", TagName(childID))
			}
			nameBytes, err := readBytes(data, pos, int(nameLen))
			if err != nil {
				return Tag{}, err
			}
			val, err := decodePayload(data, pos, childID)
			if err != nil {
				return Tag{}, err
			}
			name := string(nameBytes)
			// A zero-length ByteArray under a name that ChunkTags marks
			// EmptyListAsByteArray is the wire form of an empty list, so it
			// is read back as that empty List.
			if e, ok := ChunkTags.Lookup(name); ok && e.EmptyListAsByteArray && val.Type() == TagByteArray && len(val.AsByteArray()) == 0 {
				val = ListTag(e.ListElem, nil)
			}
			c.Set(name, val)
		}
		return CompoundTag(c), nil

	default:
		return Tag{}, mcerr.New(mcerr.NbtDecode, "unknown tag type id %d at offset %d", id, *pos)
	}
}
