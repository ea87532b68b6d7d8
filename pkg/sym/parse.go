package sym

import (
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

// Parse reads an expression from its text form. The grammar covers the
// operators + - * / ^ (with ^ binding tightest and associating right),
// parentheses, integer and decimal literals, identifiers, function calls,
// and der(...) derivative terms:
//
//	y + 2*x
//	-(a + b)/2
//	k*sin(theta)^2
//	der(x) + v
//
// Identifiers start with a letter or underscore and may contain letters,
// digits, underscores, and dots (dots appear in namespaced symbols such as
// "plant.x"). Parse returns an error describing the offending position for
// malformed input.
func Parse(src string) (Expr, error) {
	toks, err := scan(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.atEOF() {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.peek().text, p.peek().pos)
	}
	return e.Simplify(), nil
}

// MustParse is Parse for known-good input, panicking on error.
// It is intended for tests and package examples.
func MustParse(src string) Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokOp     // + - * / ^
	tokLParen // (
	tokRParen // )
	tokComma  // ,
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func scan(src string) ([]token, error) {
	var toks []token
	runes := []rune(src)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case strings.ContainsRune("+-*/^", r):
			toks = append(toks, token{kind: tokOp, text: string(r), pos: i})
			i++
		case r == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case r == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		case unicode.IsDigit(r):
			start := i
			seenDot := false
			for i < len(runes) && (unicode.IsDigit(runes[i]) || (runes[i] == '.' && !seenDot)) {
				if runes[i] == '.' {
					// A dot only continues the number when a digit follows;
					// otherwise it belongs to a namespaced identifier.
					if i+1 >= len(runes) || !unicode.IsDigit(runes[i+1]) {
						break
					}
					seenDot = true
				}
				i++
			}
			toks = append(toks, token{kind: tokNumber, text: string(runes[start:i]), pos: start})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && isIdentRune(runes[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: string(runes[start:i]), pos: start})
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", string(r), i)
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(runes)})
	return toks, nil
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.'
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }
func (p *parser) next() token { t := p.toks[p.pos]; p.pos++; return t }
func (p *parser) atEOF() bool { return p.peek().kind == tokEOF }

func (p *parser) acceptOp(op string) bool {
	if t := p.peek(); t.kind == tokOp && t.text == op {
		p.pos++
		return true
	}
	return false
}

// parseExpr handles + and - at the lowest precedence.
func (p *parser) parseExpr() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.acceptOp("+"):
			right, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			left = AddOf(left, right)
		case p.acceptOp("-"):
			right, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			left = SubOf(left, right)
		default:
			return left, nil
		}
	}
}

// parseTerm handles * and /.
func (p *parser) parseTerm() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.acceptOp("*"):
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = MulOf(left, right)
		case p.acceptOp("/"):
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = DivOf(left, right)
		default:
			return left, nil
		}
	}
}

// parseUnary handles prefix minus.
func (p *parser) parseUnary() (Expr, error) {
	if p.acceptOp("-") {
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return NegOf(e), nil
	}
	return p.parsePower()
}

// parsePower handles ^ with right associativity: a^b^c is a^(b^c).
func (p *parser) parsePower() (Expr, error) {
	base, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	if p.acceptOp("^") {
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return PowOf(base, exp), nil
	}
	return base, nil
}

func (p *parser) parseAtom() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		r, ok := new(big.Rat).SetString(t.text)
		if !ok {
			return nil, fmt.Errorf("invalid number %q at offset %d", t.text, t.pos)
		}
		return NumFromRat(r), nil
	case tokIdent:
		if p.peek().kind != tokLParen {
			return V(t.text), nil
		}
		p.next() // consume "("
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		if t.text == "der" {
			if len(args) != 1 {
				return nil, fmt.Errorf("der takes exactly one argument, got %d at offset %d", len(args), t.pos)
			}
			return DerOf(args[0]), nil
		}
		return CallOf(t.text, args...), nil
	case tokLParen:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis at offset %d", p.peek().pos)
		}
		p.next()
		return e, nil
	case tokEOF:
		return nil, fmt.Errorf("unexpected end of expression")
	default:
		return nil, fmt.Errorf("unexpected %q at offset %d", t.text, t.pos)
	}
}

// parseArgs reads a comma-separated argument list up to the closing paren.
// The opening paren has already been consumed.
func (p *parser) parseArgs() ([]Expr, error) {
	if p.peek().kind == tokRParen {
		p.next()
		return nil, nil
	}
	var args []Expr
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		switch p.peek().kind {
		case tokComma:
			p.next()
		case tokRParen:
			p.next()
			return args, nil
		default:
			return nil, fmt.Errorf("expected ',' or ')' at offset %d", p.peek().pos)
		}
	}
}
