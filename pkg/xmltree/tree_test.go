package xmltree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTree_SetKeepsPosition(t *testing.T) {
	tree := New().Set("a", "1").Set("b", "2").Set("a", "3")

	assert.Equal(t, []string{"a", "b"}, tree.Keys())
	v, ok := tree.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestTree_Prepend(t *testing.T) {
	tree := New().Set("a", "1").Set("b", "2")
	tree.Prepend("auth", "x")
	tree.Prepend("b", "moved")

	assert.Equal(t, []string{"b", "auth", "a"}, tree.Keys())
	assert.Equal(t, 3, tree.Len())
}

func TestTree_Delete(t *testing.T) {
	tree := New().Set("a", "1").Set("b", "2")
	tree.Delete("a")
	tree.Delete("missing")

	assert.Equal(t, []string{"b"}, tree.Keys())
	_, ok := tree.Get("a")
	assert.False(t, ok)
}

func TestTree_NilReceiver(t *testing.T) {
	var tree *Tree

	_, ok := tree.Get("a")
	assert.False(t, ok)
	assert.Nil(t, tree.Child("a"))
	assert.Equal(t, 0, tree.Len())
	assert.Empty(t, tree.ToMap())
}

func TestAsList(t *testing.T) {
	assert.Nil(t, AsList(nil))
	assert.Equal(t, []any{"a"}, AsList("a"))
	assert.Equal(t, []any{"a", "b"}, AsList([]any{"a", "b"}))
}

func TestLookup(t *testing.T) {
	tree := New().
		Set("transactionResponse", New().
			Set("transId", "123").
			Set("errors", New().Set("error", []any{"x"}))).
		Set("leaf", "value")

	tests := []struct {
		name  string
		path  string
		want  any
		found bool
	}{
		{"top level", "leaf", "value", true},
		{"nested", "transactionResponse.transId", "123", true},
		{"list value", "transactionResponse.errors.error", []any{"x"}, true},
		{"missing key", "transactionResponse.authCode", nil, false},
		{"through a leaf", "leaf.more", nil, false},
		{"missing root", "nope.transId", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Lookup(tree, tt.path)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstOf(t *testing.T) {
	tree := New().Set("transactionResponse", New().Set("AVSResponse", "Y"))

	v, ok := FirstOf(tree, "transactionResponse.avsResultCode", "transactionResponse.AVSResponse")
	assert.True(t, ok)
	assert.Equal(t, "Y", v)

	_, ok = FirstOf(tree, "a", "b")
	assert.False(t, ok)

	assert.Equal(t, "Y", FirstString(tree, "x", "transactionResponse.AVSResponse"))
	assert.Equal(t, "", FirstString(tree, "transactionResponse"))
	assert.Nil(t, LookupTree(tree, "transactionResponse.AVSResponse"))
	assert.NotNil(t, LookupTree(tree, "transactionResponse"))
}

func TestLookupFirst(t *testing.T) {
	tree := New().Set("payment", New().Set("creditCard", []any{
		New().Set("cardNumber", "XXXX1111"),
		New().Set("cardNumber", "XXXX2222"),
	}))

	assert.Equal(t, "XXXX1111", LookupFirst(tree, "payment.creditCard.cardNumber"))
	assert.Equal(t, "", LookupFirst(tree, "payment.creditCard.missing"))
	assert.Equal(t, "", LookupFirst(tree, "payment.creditCard"))
	assert.Equal(t, "", LookupFirst(New().Set("list", []any{}), "list.x"))
	assert.Equal(t, "a", LookupFirst(New().Set("tag", []any{"a", "b"}), "tag"))
	assert.Equal(t, "", LookupFirst(nil, "x"))
}
