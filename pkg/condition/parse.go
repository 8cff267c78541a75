package condition

import (
	"strings"

	"github.com/matzehuels/refbump/pkg/errors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokString
	tokWord
	tokLParen
	tokRParen
	tokEq
	tokNeq
	tokNot
	tokAnd
	tokOr
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func lex(expr string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, pos: i})
			i++
		case c == '=':
			if i+1 >= len(expr) || expr[i+1] != '=' {
				return nil, syntaxError(expr, i, "expected ==")
			}
			toks = append(toks, token{kind: tokEq, pos: i})
			i += 2
		case c == '!':
			if i+1 < len(expr) && expr[i+1] == '=' {
				toks = append(toks, token{kind: tokNeq, pos: i})
				i += 2
			} else {
				toks = append(toks, token{kind: tokNot, pos: i})
				i++
			}
		case c == '<' || c == '>':
			return nil, syntaxError(expr, i, "relational operators are not supported")
		case c == '\'' || c == '"':
			end := strings.IndexByte(expr[i+1:], c)
			if end < 0 {
				return nil, syntaxError(expr, i, "unterminated string")
			}
			toks = append(toks, token{kind: tokString, text: expr[i+1 : i+1+end], pos: i})
			i += end + 2
		case c == '$':
			end, err := scanProperty(expr, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: expr[i:end], pos: i})
			i = end
		case isWordByte(c):
			start := i
			for i < len(expr) && isWordByte(expr[i]) {
				i++
			}
			word := expr[start:i]
			switch strings.ToLower(word) {
			case "and":
				toks = append(toks, token{kind: tokAnd, pos: start})
			case "or":
				toks = append(toks, token{kind: tokOr, pos: start})
			default:
				toks = append(toks, token{kind: tokWord, text: word, pos: start})
			}
		default:
			return nil, syntaxError(expr, i, "unexpected character %q", c)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(expr)}), nil
}

// scanProperty returns the end offset of a $(Name) reference at i.
func scanProperty(expr string, i int) (int, error) {
	if i+1 >= len(expr) || expr[i+1] != '(' {
		return 0, syntaxError(expr, i, "expected $(")
	}
	end := strings.IndexByte(expr[i:], ')')
	if end < 0 {
		return 0, syntaxError(expr, i, "unterminated property reference")
	}
	return i + end + 1, nil
}

func isWordByte(c byte) bool {
	return c == '_' || c == '-' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

type parser struct {
	expr string
	toks []token
	pos  int
}

func parse(expr string) (node, error) {
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{expr: expr, toks: toks}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, syntaxError(expr, t.pos, "unexpected trailing input")
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	switch t := p.peek(); t.kind {
	case tokNot:
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{x}, nil
	case tokLParen:
		p.next()
		x, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, syntaxError(p.expr, closing.pos, "expected )")
		}
		return x, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	switch p.peek().kind {
	case tokEq, tokNeq:
		op := p.next()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return compareNode{left: left, right: right, negate: op.kind == tokNeq}, nil
	}
	return boolNode{left}, nil
}

func (p *parser) parseOperand() (operand, error) {
	t := p.next()
	switch t.kind {
	case tokString, tokWord:
		return compileOperand(p.expr, t)
	case tokEOF:
		return nil, syntaxError(p.expr, t.pos, "unexpected end of expression")
	}
	return nil, syntaxError(p.expr, t.pos, "expected a value")
}

// compileOperand splits text into literal and $(Name) segments.
func compileOperand(expr string, t token) (operand, error) {
	var parts operand
	s := t.text
	for {
		i := strings.Index(s, "$(")
		if i < 0 {
			if s != "" {
				parts = append(parts, segment{literal: s})
			}
			break
		}
		if i > 0 {
			parts = append(parts, segment{literal: s[:i]})
		}
		end := strings.IndexByte(s[i:], ')')
		if end < 0 {
			return nil, syntaxError(expr, t.pos, "unterminated property reference")
		}
		name := strings.TrimSpace(s[i+2 : i+end])
		if name == "" || strings.ContainsAny(name, ".:()[]'\"") {
			return nil, syntaxError(expr, t.pos, "unsupported property expression $(%s)", name)
		}
		parts = append(parts, segment{property: name, isRef: true})
		s = s[i+end+1:]
	}
	if strings.ContainsAny(t.text, "@%") {
		for _, seg := range parts {
			if !seg.isRef && (strings.Contains(seg.literal, "@(") || strings.Contains(seg.literal, "%(")) {
				return nil, syntaxError(expr, t.pos, "item and metadata references are not supported")
			}
		}
	}
	return parts, nil
}

func syntaxError(expr string, pos int, format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidCondition, "condition %q at %d: "+format, append([]any{expr, pos}, args...)...)
}
