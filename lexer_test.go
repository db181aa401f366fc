package svm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLexerTokenize(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   string
		want []Token
	}{
		{
			name: "parens and keyword",
			in:   "(module)",
			want: []Token{
				{Kind: TokLParen, Text: "("},
				{Kind: TokKeyword, Text: "module"},
				{Kind: TokRParen, Text: ")"},
				{Kind: TokEOF},
			},
		},
		{
			name: "identifier and integer",
			in:   "$foo 42 -7",
			want: []Token{
				{Kind: TokIdentifier, Text: "$foo"},
				{Kind: TokInteger, Text: "42"},
				{Kind: TokInteger, Text: "-7"},
				{Kind: TokEOF},
			},
		},
		{
			name: "float",
			in:   "3.5",
			want: []Token{
				{Kind: TokFloat, Text: "3.5"},
				{Kind: TokEOF},
			},
		},
		{
			name: "string with escape",
			in:   `"a\"b"`,
			want: []Token{
				{Kind: TokString, Text: `a"b`},
				{Kind: TokEOF},
			},
		},
		{
			name: "line comment skipped",
			in:   ";; ignored\nmodule",
			want: []Token{
				{Kind: TokKeyword, Text: "module"},
				{Kind: TokEOF},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := NewLexer(tc.in).Tokenize()
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStripSigil(t *testing.T) {
	assert.Equal(t, "foo", stripSigil("$foo"))
	assert.Equal(t, "foo", stripSigil("foo"))
}
