// Package xmltree converts between ordered key/value trees and XML documents.
//
// A Tree value is one of:
//   - string, or any other scalar (rendered with fmt.Sprint)
//   - *Tree, a nested element
//   - []any, a repeated element; items are scalars or *Tree
//   - nil, meaning the element is absent and nothing is emitted
package xmltree

// Tree is an insertion-ordered mapping from tag name to value.
type Tree struct {
	keys   []string
	values map[string]any
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{values: make(map[string]any)}
}

// Set stores v under key. An existing key keeps its position.
func (t *Tree) Set(key string, v any) *Tree {
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = v
	return t
}

// Prepend stores v under key as the first entry.
func (t *Tree) Prepend(key string, v any) *Tree {
	t.Delete(key)
	t.keys = append([]string{key}, t.keys...)
	t.values[key] = v
	return t
}

// Delete removes key if present.
func (t *Tree) Delete(key string) {
	if _, ok := t.values[key]; !ok {
		return
	}
	delete(t.values, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
}

// Get returns the value stored under key.
func (t *Tree) Get(key string) (any, bool) {
	if t == nil {
		return nil, false
	}
	v, ok := t.values[key]
	return v, ok
}

// Child returns the nested tree stored under key, or nil.
func (t *Tree) Child(key string) *Tree {
	v, _ := t.Get(key)
	child, _ := v.(*Tree)
	return child
}

// Keys returns the keys in insertion order.
func (t *Tree) Keys() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// ToMap renders the tree as nested maps and slices. Nil values are dropped.
func (t *Tree) ToMap() map[string]any {
	out := make(map[string]any, t.Len())
	if t == nil {
		return out
	}
	for _, k := range t.keys {
		v := t.values[k]
		if absent(v) {
			continue
		}
		out[k] = plain(v)
	}
	return out
}

func plain(v any) any {
	switch val := v.(type) {
	case *Tree:
		return val.ToMap()
	case []any:
		items := make([]any, 0, len(val))
		for _, item := range val {
			items = append(items, plain(item))
		}
		return items
	default:
		return val
	}
}

// absent reports whether v stands for an omitted element.
func absent(v any) bool {
	if v == nil {
		return true
	}
	t, ok := v.(*Tree)
	return ok && t == nil
}

// AsList normalizes a value that may be a single item or a repetition.
func AsList(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	default:
		return []any{val}
	}
}
