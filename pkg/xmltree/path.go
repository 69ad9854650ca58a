package xmltree

import "strings"

// Lookup walks a dotted path such as "transactionResponse.errors.error".
// It reports false at the first missing key or non-tree intermediate.
func Lookup(t *Tree, path string) (any, bool) {
	if t == nil {
		return nil, false
	}
	var cur any = t
	for _, key := range strings.Split(path, ".") {
		node, ok := cur.(*Tree)
		if !ok {
			return nil, false
		}
		cur, ok = node.Get(key)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// LookupString returns the text at path, or "" if the path does not resolve
// to a leaf.
func LookupString(t *Tree, path string) string {
	v, ok := Lookup(t, path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// LookupTree returns the nested tree at path, or nil.
func LookupTree(t *Tree, path string) *Tree {
	v, _ := Lookup(t, path)
	child, _ := v.(*Tree)
	return child
}

// FirstOf returns the value at the first path that resolves.
func FirstOf(t *Tree, paths ...string) (any, bool) {
	for _, p := range paths {
		if v, ok := Lookup(t, p); ok {
			return v, true
		}
	}
	return nil, false
}

// FirstString returns the text at the first path that resolves to a leaf.
func FirstString(t *Tree, paths ...string) string {
	for _, p := range paths {
		if v, ok := Lookup(t, p); ok {
			if s, isString := v.(string); isString {
				return s
			}
		}
	}
	return ""
}

// LookupFirst is like LookupString but descends into the first item of any
// repeated element met along the path.
func LookupFirst(t *Tree, path string) string {
	var cur any = t
	for _, key := range strings.Split(path, ".") {
		if items, ok := cur.([]any); ok {
			if len(items) == 0 {
				return ""
			}
			cur = items[0]
		}
		node, ok := cur.(*Tree)
		if !ok || node == nil {
			return ""
		}
		if cur, ok = node.Get(key); !ok {
			return ""
		}
	}
	if items, ok := cur.([]any); ok && len(items) > 0 {
		cur = items[0]
	}
	s, _ := cur.(string)
	return s
}
