// Copyright © 2021 The Lust authors

// Package parser reads lust source text into expression trees.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	parsec "github.com/prataprc/goparsec"

	"github.com/ZekeMedley/lust/lust"
)

// Parse reads every expression in src. The name identifies the source in
// error messages, typically a file path or "repl".
func Parse(name string, src []byte) ([]*lust.Expr, error) {
	p := newParser()
	s := parsec.NewScanner(stripComments(src))
	var out []*lust.Expr
	node, s := p.expr(s)
	for node != nil {
		if p.err != nil {
			return nil, fmt.Errorf("%s: %w", name, p.err)
		}
		out = append(out, node.(*lust.Expr))
		node, s = p.expr(s)
	}
	if p.err != nil {
		return nil, fmt.Errorf("%s: %w", name, p.err)
	}
	_, s = s.SkipWS()
	if !s.Endof() {
		return nil, fmt.Errorf("%s: unexpected input at offset %d", name, s.GetCursor())
	}
	return out, nil
}

// ParseExpr reads exactly one expression from src.
func ParseExpr(name string, src []byte) (*lust.Expr, error) {
	exprs, err := Parse(name, src)
	if err != nil {
		return nil, err
	}
	if len(exprs) != 1 {
		return nil, fmt.Errorf("%s: expected one expression, found %d", name, len(exprs))
	}
	return exprs[0], nil
}

type parser struct {
	expr parsec.Parser
	err  error
}

func newParser() *parser {
	p := &parser{}
	atom := parsec.Token(`[^()\s;]+`, "ATOM")
	open := parsec.Atom("(", "OPEN")
	clos := parsec.Atom(")", "CLOSE")
	list := parsec.And(p.nodifyList, open, parsec.Kleene(nil, &p.expr), clos)
	p.expr = parsec.OrdChoice(p.nodifyExpr, list, atom)
	return p
}

func (p *parser) nodifyList(nodes []parsec.ParsecNode) parsec.ParsecNode {
	items := nodes[1].([]parsec.ParsecNode)
	if len(items) == 0 {
		return lust.Nil()
	}
	cells := make([]*lust.Expr, len(items))
	for i, item := range items {
		cells[i] = item.(*lust.Expr)
	}
	return lust.List(cells...)
}

func (p *parser) nodifyExpr(nodes []parsec.ParsecNode) parsec.ParsecNode {
	switch node := nodes[0].(type) {
	case *lust.Expr:
		return node
	case *parsec.Terminal:
		e, err := p.classifyAtom(node.Value)
		if err != nil && p.err == nil {
			p.err = fmt.Errorf("offset %d: %w", node.Position, err)
		}
		return e
	}
	return nodes[0]
}

func (p *parser) classifyAtom(v string) (*lust.Expr, error) {
	if strings.HasPrefix(v, `#\`) {
		return classifyChar(v)
	}
	if c := v[0]; c == '-' && len(v) > 1 || c >= '0' && c <= '9' {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return lust.Int(n), nil
		} else if numeric(v) {
			return nil, fmt.Errorf("integer literal out of range: %s", v)
		}
	}
	switch v {
	case "true":
		return lust.Bool(true), nil
	case "false":
		return lust.Bool(false), nil
	}
	return lust.Symbol(v), nil
}

func classifyChar(v string) (*lust.Expr, error) {
	switch name := v[2:]; name {
	case "space":
		return lust.Char(' '), nil
	case "newline":
		return lust.Char('\n'), nil
	case "tab":
		return lust.Char('\t'), nil
	default:
		runes := []rune(name)
		if len(runes) != 1 {
			return nil, fmt.Errorf("unknown character literal %s", v)
		}
		return lust.Char(runes[0]), nil
	}
}

func numeric(v string) bool {
	if v[0] == '-' {
		v = v[1:]
	}
	if v == "" {
		return false
	}
	for _, c := range v {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// stripComments blanks ; to end of line so the token scanner never sees
// comment text. The language has no string literals, so a semicolon always
// begins a comment. Replacing with spaces preserves offsets.
func stripComments(src []byte) []byte {
	out := make([]byte, len(src))
	copy(out, src)
	comment := false
	for i, c := range out {
		switch {
		case c == '\n':
			comment = false
		case c == ';':
			comment = true
		}
		if comment {
			out[i] = ' '
		}
	}
	return out
}
