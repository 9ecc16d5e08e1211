package program

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// dslLexer tokenizes the s-expression DSL. Order matters: Int must precede
// Ident so "-1" lexes as a number, and Keyword must precede Ident.
var dslLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `;[^\n]*`, nil},
		{"String", `"(\\.|[^"\\])*"`, nil},
		{"Ref", `%[0-9]+`, nil},
		{"Keyword", `:[a-zA-Z_][a-zA-Z0-9_\-]*`, nil},
		{"Int", `-?[0-9]+`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_\-\.]*`, nil},
		{"Punct", `[()]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})

// sexpr is the untyped parse tree. Commands are recognised from it in a
// second pass so that error messages can name the offending command.
type sexpr struct {
	Pos lexer.Position

	Open    bool     `  ( @"("`
	List    []*sexpr `    @@* ")" )`
	Int     *int64   `| @Int`
	Str     *string  `| @String`
	Ref     *string  `| @Ref`
	Keyword *string  `| @Keyword`
	Ident   *string  `| @Ident`
}

type source struct {
	Exprs []*sexpr `@@*`
}

var dslParser = buildParser()

func buildParser() *participle.Parser[source] {
	p, err := participle.Build[source](
		participle.Lexer(dslLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.Unquote("String"),
		participle.UseLookahead(2),
	)
	if err != nil {
		panic(fmt.Errorf("failed to build parser: %w", err))
	}
	return p
}

func (s *sexpr) isList() bool { return s.Open }

// head returns the identifier at the start of a list, or "".
func (s *sexpr) head() string {
	if len(s.List) == 0 || s.List[0].Ident == nil {
		return ""
	}
	return *s.List[0].Ident
}

func (s *sexpr) String() string {
	switch {
	case s.isList():
		out := "("
		for i, e := range s.List {
			if i > 0 {
				out += " "
			}
			out += e.String()
		}
		return out + ")"
	case s.Int != nil:
		return fmt.Sprint(*s.Int)
	case s.Str != nil:
		return fmt.Sprintf("%q", *s.Str)
	case s.Ref != nil:
		return *s.Ref
	case s.Keyword != nil:
		return *s.Keyword
	case s.Ident != nil:
		return *s.Ident
	}
	return "?"
}
