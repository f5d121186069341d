package requirement

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"
)

// Parser turns the requirement DSL into Requirement values. A Parser is safe
// for concurrent use.
type Parser struct {
	grammar *participle.Parser[File]
}

// NewParser compiles the requirement grammar.
func NewParser() (*Parser, error) {
	grammar, err := participle.Build[File](
		participle.Lexer(Lexer),
		participle.Elide("Comment", "Whitespace"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("requirement: compile grammar: %w", err)
	}
	return &Parser{grammar: grammar}, nil
}

// Parse reads one requirement document from r.
func (p *Parser) Parse(r io.Reader) ([]Requirement, error) {
	return p.read("", r)
}

// ParseString reads requirements held in input.
func (p *Parser) ParseString(input string) ([]Requirement, error) {
	file, err := p.grammar.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("requirement: %w", err)
	}
	return file.Requirements(), nil
}

// ParseFile reads the requirement document at path. Syntax errors carry
// the path in their position.
func (p *Parser) ParseFile(path string) ([]Requirement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("requirement: %w", err)
	}
	defer f.Close()
	return p.read(path, f)
}

func (p *Parser) read(name string, r io.Reader) ([]Requirement, error) {
	file, err := p.grammar.Parse(name, r)
	if err != nil {
		return nil, fmt.Errorf("requirement: %w", err)
	}
	return file.Requirements(), nil
}
