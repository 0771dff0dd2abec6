package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVault_StoreRestore(t *testing.T) {
	v := newVault()

	inner := v.store("<em>x</em>", classInline)
	assert.Equal(t, "X\x1A1X", inner)

	outer := v.store("a "+inner+" b", classBlock)
	assert.Equal(t, "B\x1A2B", outer)
	assert.Equal(t, "a <em>x</em> b", v.payloads[outer], "payloads are stored resolved")

	assert.Equal(t, "[a <em>x</em> b]", v.restore("["+outer+"]"))
}

func TestVault_RestoreLeavesUnknownTokens(t *testing.T) {
	v := newVault()
	v.store("known", classInline)

	assert.Equal(t, "X\x1A99X known", v.restore("X\x1A99X X\x1A1X"))
}

func TestTokenClassification(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		class     boundary
		exact     bool
		hasPrefix bool
	}{
		{name: "exact block token", text: "B\x1A12B", class: classBlock, exact: true, hasPrefix: true},
		{name: "block token with trailing text", text: "B\x1A3B tail", class: classBlock, exact: false, hasPrefix: true},
		{name: "wrong class", text: "X\x1A3X", class: classBlock, exact: false, hasPrefix: false},
		{name: "mismatched closer", text: "B\x1A3X", class: classBlock, exact: false, hasPrefix: false},
		{name: "no digits", text: "C\x1AC", class: classClean, exact: false, hasPrefix: false},
		{name: "plain text", text: "Block", class: classBlock, exact: false, hasPrefix: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.exact, isToken(tt.text, tt.class))
			assert.Equal(t, tt.hasPrefix, hasTokenPrefix(tt.text, tt.class))
		})
	}
}
