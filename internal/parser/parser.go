// Package parser builds a value.Value tree from a Gene token stream,
// implementing the grammar specified for this pipeline's external parser
// collaborator: numerals, strings, symbols, booleans, null, arrays, maps,
// Genes with interspersed ^key props, and the backtick quote operator.
package parser

import (
	"strconv"
	"strings"

	geneerrors "gene/internal/errors"
	"gene/internal/lexer"
	"gene/internal/value"
)

// Parser consumes a token slice produced by lexer.Scanner.
type Parser struct {
	tokens  []lexer.Token
	current int
}

func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse tokenizes source with a fresh Scanner and parses the result. When
// the source contains a single top-level form, that form is returned
// directly; otherwise the result is a value.Stream.
func Parse(source string) (value.Value, error) {
	scanner := lexer.NewScanner(source)
	tokens, err := scanner.ScanTokens()
	if err != nil {
		return value.Value{}, err
	}
	return New(tokens).ParseProgram()
}

// ParseProgram reads every top-level form until EOF.
func (p *Parser) ParseProgram() (value.Value, error) {
	var forms []value.Value
	for !p.check(lexer.TokenEOF) {
		v, err := p.parseForm()
		if err != nil {
			return value.Value{}, err
		}
		forms = append(forms, v)
	}
	if len(forms) == 1 {
		return forms[0], nil
	}
	return value.StreamVal(forms), nil
}

func (p *Parser) parseForm() (value.Value, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.TokenLParen:
		return p.parseGene()
	case lexer.TokenLBracket:
		return p.parseArray()
	case lexer.TokenLBrace:
		return p.parseMap()
	case lexer.TokenBacktick:
		p.advance()
		inner, err := p.parseForm()
		if err != nil {
			return value.Value{}, err
		}
		return value.GeneVal(value.SymbolVal("#QUOTE"), nil, []value.Value{inner}), nil
	case lexer.TokenString:
		p.advance()
		return value.StringVal(tok.Lexeme), nil
	case lexer.TokenNumber:
		p.advance()
		return parseNumber(tok.Lexeme, tok.Line, tok.Column)
	case lexer.TokenSymbol:
		p.advance()
		return symbolOrKeyword(tok.Lexeme), nil
	case lexer.TokenCaret, lexer.TokenCaretCaret, lexer.TokenCaretBang:
		return value.Value{}, geneerrors.NewParseError("unexpected '^' outside of map or gene props", tok.Line, tok.Column)
	case lexer.TokenRParen, lexer.TokenRBracket, lexer.TokenRBrace:
		return value.Value{}, geneerrors.NewParseError("mismatched closing delimiter '"+string(tok.Type)+"'", tok.Line, tok.Column)
	default:
		return value.Value{}, geneerrors.NewParseError("unexpected token "+tok.String(), tok.Line, tok.Column)
	}
}

func symbolOrKeyword(lexeme string) value.Value {
	switch lexeme {
	case "true":
		return value.BoolVal(true)
	case "false":
		return value.BoolVal(false)
	case "null":
		return value.NullVal()
	default:
		return value.SymbolVal(lexeme)
	}
}

func parseNumber(lexeme string, line, col int) (value.Value, error) {
	if strings.ContainsAny(lexeme, ".") {
		f, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			return value.Value{}, geneerrors.NewParseError("malformed float numeral '"+lexeme+"'", line, col).WithCause(err)
		}
		return value.FloatVal(f), nil
	}
	i, err := strconv.ParseInt(lexeme, 10, 64)
	if err != nil {
		return value.Value{}, geneerrors.NewParseError("malformed integer numeral '"+lexeme+"'", line, col).WithCause(err)
	}
	return value.IntVal(i), nil
}

// parseProps reads zero or more `^key value`, `^^key`, `^!key` entries,
// stopping at the first token that doesn't start a prop.
func (p *Parser) parseProps() (map[string]value.Value, error) {
	props := map[string]value.Value{}
	for {
		switch p.peek().Type {
		case lexer.TokenCaret:
			p.advance()
			key, err := p.expectSymbolName()
			if err != nil {
				return nil, err
			}
			v, err := p.parseForm()
			if err != nil {
				return nil, err
			}
			props[key] = v
		case lexer.TokenCaretCaret:
			p.advance()
			key, err := p.expectSymbolName()
			if err != nil {
				return nil, err
			}
			props[key] = value.BoolVal(true)
		case lexer.TokenCaretBang:
			p.advance()
			key, err := p.expectSymbolName()
			if err != nil {
				return nil, err
			}
			props[key] = value.BoolVal(false)
		default:
			return props, nil
		}
	}
}

func (p *Parser) expectSymbolName() (string, error) {
	tok := p.peek()
	if tok.Type != lexer.TokenSymbol {
		return "", geneerrors.NewParseError("expected a property name after '^'", tok.Line, tok.Column)
	}
	p.advance()
	return tok.Lexeme, nil
}

func (p *Parser) parseArray() (value.Value, error) {
	open := p.advance() // '['
	var elems []value.Value
	for !p.check(lexer.TokenRBracket) {
		if p.check(lexer.TokenEOF) {
			return value.Value{}, geneerrors.NewParseError("unterminated array literal", open.Line, open.Column)
		}
		v, err := p.parseForm()
		if err != nil {
			return value.Value{}, err
		}
		elems = append(elems, v)
	}
	p.advance() // ']'
	return value.ArrayVal(elems), nil
}

func (p *Parser) parseMap() (value.Value, error) {
	open := p.advance() // '{'
	entries := map[string]value.Value{}
	for !p.check(lexer.TokenRBrace) {
		if p.check(lexer.TokenEOF) {
			return value.Value{}, geneerrors.NewParseError("unterminated map literal", open.Line, open.Column)
		}
		props, err := p.parseProps()
		if err != nil {
			return value.Value{}, err
		}
		for k, v := range props {
			entries[k] = v
		}
		if len(props) == 0 {
			return value.Value{}, geneerrors.NewParseError("expected '^key value' entry in map literal", p.peek().Line, p.peek().Column)
		}
	}
	p.advance() // '}'
	return value.MapVal(entries), nil
}

// parseGene reads `( kind ^prop val ... data ... )`, with props and data
// forms freely interspersed as the grammar allows.
func (p *Parser) parseGene() (value.Value, error) {
	open := p.advance() // '('
	if p.check(lexer.TokenRParen) {
		p.advance()
		return value.GeneVal(value.VoidVal(), nil, nil), nil
	}
	kind, err := p.parseForm()
	if err != nil {
		return value.Value{}, err
	}
	props := map[string]value.Value{}
	var data []value.Value
	for !p.check(lexer.TokenRParen) {
		if p.check(lexer.TokenEOF) {
			return value.Value{}, geneerrors.NewParseError("unterminated gene form", open.Line, open.Column)
		}
		if p.isPropStart() {
			more, err := p.parseProps()
			if err != nil {
				return value.Value{}, err
			}
			for k, v := range more {
				props[k] = v
			}
			continue
		}
		v, err := p.parseForm()
		if err != nil {
			return value.Value{}, err
		}
		data = append(data, v)
	}
	p.advance() // ')'
	return value.GeneVal(kind, props, data), nil
}

func (p *Parser) isPropStart() bool {
	switch p.peek().Type {
	case lexer.TokenCaret, lexer.TokenCaretCaret, lexer.TokenCaretBang:
		return true
	default:
		return false
	}
}

func (p *Parser) peek() lexer.Token { return p.tokens[p.current] }

func (p *Parser) advance() lexer.Token {
	tok := p.tokens[p.current]
	if tok.Type != lexer.TokenEOF {
		p.current++
	}
	return tok
}

func (p *Parser) check(t lexer.TokenType) bool { return p.peek().Type == t }
