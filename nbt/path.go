package nbt

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bramblewood/mcworld/mcerr"
)

// pathComponentRE matches one "/"-joined path segment: a compound key
// optionally followed by a "[index]" list subscript. Grounded in
// commands/patch.go's dirRE in the teacher, generalized from a private
// helper used only to patch strings into a single supplement function any
// caller (dump, patch, tests) can share.
var pathComponentRE = regexp.MustCompile(`^([^/\[]+)(?:\[(\d+)\])?$`)

// Get walks a "/"-separated NBT path (e.g. "Level/Entities[0]/id") rooted
// at root and returns the tag found there.
func Get(root Tag, path string) (Tag, error) {
	node := root
	parts := strings.Split(path, "/")
	for i, part := range parts {
		m := pathComponentRE.FindStringSubmatch(part)
		if m == nil {
			return Tag{}, mcerr.New(mcerr.NbtDecode, "cannot parse nbt path component %q", part)
		}
		if node.Type() != TagCompound {
			return Tag{}, mcerr.New(mcerr.NbtDecode, "%s is not a Compound", strings.Join(parts[:i], "/"))
		}
		child, ok := node.AsCompound().Get(m[1])
		if !ok {
			return Tag{}, mcerr.New(mcerr.NbtDecode, "cannot find %s", strings.Join(append(parts[:i], m[1]), "/"))
		}
		node = child
		if m[2] == "" {
			continue
		}
		index, err := strconv.Atoi(m[2])
		if err != nil {
			return Tag{}, mcerr.Wrap(mcerr.NbtDecode, err, "invalid index in nbt path %q", path)
		}
		if node.Type() != TagList {
			return Tag{}, mcerr.New(mcerr.NbtDecode, "%s is not a List", strings.Join(append(parts[:i], m[1]), "/"))
		}
		items := node.AsList().Items
		if index < 0 || index >= len(items) {
			return Tag{}, mcerr.New(mcerr.NbtDecode, "index %d out of bounds; %s has length %d", index, strings.Join(append(parts[:i], m[1]), "/"), len(items))
		}
		node = items[index]
	}
	return node, nil
}

// Set walks a "/"-separated NBT path and overwrites the tag found there
// with value, returning an error if the path or the final type doesn't
// match (the final segment must already hold a tag of the same NBT type as
// value; Set never changes a field's wire type).
func Set(root Tag, path string, value Tag) error {
	node := root
	parts := strings.Split(path, "/")
	var setFn func()
	for i, part := range parts {
		m := pathComponentRE.FindStringSubmatch(part)
		if m == nil {
			return mcerr.New(mcerr.NbtDecode, "cannot parse nbt path component %q", part)
		}
		if node.Type() != TagCompound {
			return mcerr.New(mcerr.NbtDecode, "%s is not a Compound", strings.Join(parts[:i], "/"))
		}
		compound := node.AsCompound()
		child, ok := compound.Get(m[1])
		if !ok {
			return mcerr.New(mcerr.NbtDecode, "cannot find %s", strings.Join(append(parts[:i], m[1]), "/"))
		}
		key := m[1]
		setFn = func() { compound.Set(key, value) }
		node = child
		if m[2] == "" {
			continue
		}
		index, err := strconv.Atoi(m[2])
		if err != nil {
			return mcerr.Wrap(mcerr.NbtDecode, err, "invalid index in nbt path %q", path)
		}
		if node.Type() != TagList {
			return mcerr.New(mcerr.NbtDecode, "%s is not a List", strings.Join(append(parts[:i], m[1]), "/"))
		}
		list := node.AsList()
		if index < 0 || index >= len(list.Items) {
			return mcerr.New(mcerr.NbtDecode, "index %d out of bounds; %s has length %d", index, strings.Join(append(parts[:i], m[1]), "/"), len(list.Items))
		}
		idx := index
		items := list.Items
		setFn = func() { items[idx] = value }
		node = items[index]
	}
	if node.Type() != value.Type() {
		return mcerr.New(mcerr.SchemaBadType, "%s: cannot replace %s with %s", path, TagName(node.Type()), TagName(value.Type()))
	}
	setFn()
	return nil
}
