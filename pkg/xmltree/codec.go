package xmltree

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrEmptyDocument is returned when a payload has no root element.
var ErrEmptyDocument = errors.New("xml document has no root element")

// listContainers pre-seed a repeated child so that zero or one occurrences
// still decode to a list.
var listContainers = map[string]string{
	"messages": "message",
	"errors":   "error",
	"profile":  "paymentProfiles",
}

// Encode builds a new element named name holding t. A non-empty namespace
// is declared as the default namespace.
func Encode(name string, t *Tree, namespace string) *etree.Element {
	el := etree.NewElement(name)
	if namespace != "" {
		el.CreateAttr("xmlns", namespace)
	}
	EncodeInto(el, t)
	return el
}

// EncodeInto appends the entries of t to el in insertion order.
func EncodeInto(el *etree.Element, t *Tree) {
	if t == nil {
		return
	}
	for _, key := range t.keys {
		v := t.values[key]
		if items, ok := v.([]any); ok {
			for _, item := range items {
				encodeValue(el, key, item)
			}
			continue
		}
		encodeValue(el, key, v)
	}
}

func encodeValue(parent *etree.Element, key string, v any) {
	if absent(v) {
		return
	}
	child := parent.CreateElement(key)
	switch val := v.(type) {
	case *Tree:
		EncodeInto(child, val)
	default:
		child.SetText(Scalar(val))
	}
}

// Scalar renders a leaf value as element text.
func Scalar(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case decimal.Decimal:
		return val.StringFixed(2)
	case *decimal.Decimal:
		return val.StringFixed(2)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// Marshal serializes t under a root element named name.
func Marshal(name string, t *Tree, namespace string) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	doc.SetRoot(Encode(name, t, namespace))
	b, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", name, err)
	}
	return b, nil
}

// Decode converts the children of el into a tree.
func Decode(el *etree.Element) *Tree {
	t := New()
	if seed, ok := listContainers[localName(el.Tag)]; ok {
		t.Set(seed, []any{})
	}

	for _, child := range el.ChildElements() {
		tag := localName(child.Tag)

		var value any
		if len(child.ChildElements()) > 0 {
			value = Decode(child)
		} else {
			value = strings.TrimSpace(child.Text())
		}

		existing, ok := t.Get(tag)
		switch {
		case !ok:
			t.Set(tag, value)
		case isList(existing):
			t.Set(tag, append(existing.([]any), value))
		default:
			t.Set(tag, []any{existing, value})
		}
	}
	return t
}

// Unmarshal parses b and returns the root element name with its decoded
// contents. A leading UTF-8 byte order mark is ignored.
func Unmarshal(b []byte) (string, *Tree, error) {
	b = bytes.TrimPrefix(b, utf8BOM)

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(b); err != nil {
		return "", nil, fmt.Errorf("parse xml: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return "", nil, ErrEmptyDocument
	}
	return localName(root.Tag), Decode(root), nil
}

func isList(v any) bool {
	_, ok := v.([]any)
	return ok
}

func localName(tag string) string {
	if i := strings.LastIndexAny(tag, ":}"); i >= 0 {
		return tag[i+1:]
	}
	return tag
}
