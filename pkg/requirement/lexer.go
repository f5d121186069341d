package requirement

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer tokenises requirement files. Keywords (pin, periph, bank, auto,
// any, optional, x) are plain identifiers matched by value in the grammar.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comments run to end of line
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},

	{Name: "Int", Pattern: `[0-9]+\b`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.\-]*`},

	{Name: "Assign", Pattern: `=`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Semicolon", Pattern: `;`},
})
