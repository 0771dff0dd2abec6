package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextEmphasisToken(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		em        string
		strong    string
		wantStart int
		wantLen   int
		wantFound bool
	}{
		{name: "em opener", text: "a *b*", wantStart: 2, wantLen: 1, wantFound: true},
		{name: "strong opener", text: "x **y**", wantStart: 2, wantLen: 2, wantFound: true},
		{name: "triple opener", text: "***a", wantStart: 0, wantLen: 3, wantFound: true},
		{name: "opener before space", text: "a * b", wantFound: false},
		{name: "opener before punctuation and space", text: "*. b", wantFound: false},
		{name: "em closer", text: "b* c", em: "*", wantStart: 1, wantLen: 1, wantFound: true},
		{name: "closer after space", text: "b * c", em: "*", wantFound: false},
		{name: "strong closer", text: "y**", strong: "**", wantStart: 1, wantLen: 2, wantFound: true},
		{name: "intra-word underscore", text: "snake_case", wantFound: false},
	}

	c := New(DefaultOptions()).newConversion()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, n, found := c.nextEmphasisToken(tt.text, tt.em, tt.strong)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantFound {
				assert.Equal(t, tt.wantStart, start)
				assert.Equal(t, tt.wantLen, n)
			}
		})
	}
}

func TestDoItalicsAndBold_UnmatchedStaysLiteral(t *testing.T) {
	c := New(DefaultOptions()).newConversion()

	assert.Equal(t, "a *b", c.doItalicsAndBold("a *b"))
	assert.Equal(t, "**x*", c.unhash(c.doItalicsAndBold("**x*")))
}
