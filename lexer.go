package cql2

import "github.com/alecthomas/participle/v2/lexer"

// cqlLexer tokenizes cql2-text. Keywords are not distinct token types —
// like the reference grammar, they're just Ident tokens whose value the
// parser grammar matches literally (participle matches string literals
// against a token's value regardless of its type), which keeps the
// lexer itself small and lets property names share the Ident rule with
// every reserved word.
var cqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "QuotedIdent", Pattern: `"(?:[^"]|"")*"`},
	{Name: "Number", Pattern: `\d+(?:\.\d+)?(?:[eE][-+]?\d+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_:.]*`},
	{Name: "Concat", Pattern: `\|\|`},
	{Name: "CompOp", Pattern: `<>|<=|>=|[=<>]`},
	{Name: "ArithOp", Pattern: `[+\-*/%^]`},
	{Name: "Punct", Pattern: `[(),\[\]]`},
	{Name: "whitespace", Pattern: `\s+`},
})
