// Copyright © 2021 The Lust authors

/*
Package lust compiles lust expressions to native machine code and executes
them. The package implements the whole pipeline: closure conversion lifts
anonymous functions to the top level, every function is declared before any
body is emitted so functions may reference each other freely, bodies are
lowered through the codegen backend, and the finalized entry function is
invoked directly, returning a decoded expression.

Programs arrive already parsed as Expr trees; the parser package produces
them from source text.
*/
package lust

import (
	"bytes"
	"fmt"
)

// Type is the type of an Expr.
type Type uint8

// Possible Expr types. The set is closed: a list's meaning (primitive call,
// binding form, conditional, function literal, call) is decided structurally
// from its head at compile time, never from a runtime tag.
const (
	Invalid Type = iota
	TInteger
	TChar
	TBool
	TNil
	TSymbol
	TList
)

var typeStrings = []string{
	Invalid:  "INVALID",
	TInteger: "integer",
	TChar:    "char",
	TBool:    "bool",
	TNil:     "nil",
	TSymbol:  "symbol",
	TList:    "list",
}

func (t Type) String() string {
	if int(t) >= len(typeStrings) {
		return typeStrings[Invalid]
	}
	return typeStrings[t]
}

// Expr is a lust expression. The same representation serves source syntax
// and decoded runtime results.
type Expr struct {
	// Type discriminates which of the remaining fields are meaningful.
	Type Type

	// Int holds the value of a TInteger expression.
	Int int64

	// Char holds the value of a TChar expression.
	Char rune

	// Bool holds the value of a TBool expression.
	Bool bool

	// Str holds a TSymbol's name.
	Str string

	// Cells holds a TList's elements.
	Cells []*Expr
}

// Int returns an integer expression.
func Int(v int64) *Expr { return &Expr{Type: TInteger, Int: v} }

// Char returns a character expression.
func Char(c rune) *Expr { return &Expr{Type: TChar, Char: c} }

// Bool returns a boolean expression.
func Bool(v bool) *Expr { return &Expr{Type: TBool, Bool: v} }

// Nil returns the nil expression.
func Nil() *Expr { return &Expr{Type: TNil} }

// Symbol returns a symbol expression.
func Symbol(name string) *Expr { return &Expr{Type: TSymbol, Str: name} }

// List returns a list expression over the given cells.
func List(cells ...*Expr) *Expr { return &Expr{Type: TList, Cells: cells} }

// Equal reports structural equality.
func Equal(a, b *Expr) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case TInteger:
		return a.Int == b.Int
	case TChar:
		return a.Char == b.Char
	case TBool:
		return a.Bool == b.Bool
	case TNil:
		return true
	case TSymbol:
		return a.Str == b.Str
	case TList:
		if len(a.Cells) != len(b.Cells) {
			return false
		}
		for i := range a.Cells {
			if !Equal(a.Cells[i], b.Cells[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func (e *Expr) String() string {
	var buf bytes.Buffer
	e.write(&buf)
	return buf.String()
}

func (e *Expr) write(buf *bytes.Buffer) {
	switch e.Type {
	case TInteger:
		fmt.Fprintf(buf, "%d", e.Int)
	case TChar:
		switch e.Char {
		case ' ':
			buf.WriteString(`#\space`)
		case '\n':
			buf.WriteString(`#\newline`)
		case '\t':
			buf.WriteString(`#\tab`)
		default:
			fmt.Fprintf(buf, `#\%c`, e.Char)
		}
	case TBool:
		if e.Bool {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case TNil:
		buf.WriteString("()")
	case TSymbol:
		buf.WriteString(e.Str)
	case TList:
		buf.WriteByte('(')
		for i, c := range e.Cells {
			if i > 0 {
				buf.WriteByte(' ')
			}
			c.write(buf)
		}
		buf.WriteByte(')')
	default:
		buf.WriteString("#<invalid>")
	}
}

// closureHead is the head symbol of the internal closure-construction form
// produced by the replacement pass of closure conversion.
const closureHead = "__closure"

// IsPrimcall decomposes a primitive application, resolving the operator
// against the closed primitive table.
func (e *Expr) IsPrimcall() (op string, args []*Expr, ok bool) {
	if e.Type != TList || len(e.Cells) == 0 {
		return "", nil, false
	}
	head := e.Cells[0]
	if head.Type != TSymbol {
		return "", nil, false
	}
	if _, ok := primitives[head.Str]; !ok {
		return "", nil, false
	}
	return head.Str, e.Cells[1:], true
}

// Binding is one name/init pair of a let form.
type Binding struct {
	Name string
	Init *Expr
}

// IsLet decomposes a binding form (let ((name expr) ...) body...). The form
// requires at least one binding and at least one body expression.
func (e *Expr) IsLet() (bindings []Binding, body []*Expr, ok bool) {
	if e.Type != TList || len(e.Cells) < 3 {
		return nil, nil, false
	}
	if e.Cells[0].Type != TSymbol || e.Cells[0].Str != "let" {
		return nil, nil, false
	}
	bs := e.Cells[1]
	if bs.Type != TList || len(bs.Cells) == 0 {
		return nil, nil, false
	}
	for _, b := range bs.Cells {
		if b.Type != TList || len(b.Cells) != 2 || b.Cells[0].Type != TSymbol {
			return nil, nil, false
		}
		bindings = append(bindings, Binding{Name: b.Cells[0].Str, Init: b.Cells[1]})
	}
	return bindings, e.Cells[2:], true
}

// IsConditional decomposes (if cond then else). The else arm may be absent,
// in which case els is nil and the arm produces nil at runtime.
func (e *Expr) IsConditional() (cond, then, els *Expr, ok bool) {
	if e.Type != TList || len(e.Cells) < 3 || len(e.Cells) > 4 {
		return nil, nil, nil, false
	}
	if e.Cells[0].Type != TSymbol || e.Cells[0].Str != "if" {
		return nil, nil, nil, false
	}
	cond, then = e.Cells[1], e.Cells[2]
	if len(e.Cells) == 4 {
		els = e.Cells[3]
	}
	return cond, then, els, true
}

// IsFn decomposes an anonymous function literal (fn (params...) body...).
func (e *Expr) IsFn() (params []string, body []*Expr, ok bool) {
	if e.Type != TList || len(e.Cells) < 3 {
		return nil, nil, false
	}
	if e.Cells[0].Type != TSymbol || e.Cells[0].Str != "fn" {
		return nil, nil, false
	}
	switch ps := e.Cells[1]; ps.Type {
	case TNil:
		// Zero parameters read as the empty list.
	case TList:
		for _, p := range ps.Cells {
			if p.Type != TSymbol {
				return nil, nil, false
			}
			params = append(params, p.Str)
		}
	default:
		return nil, nil, false
	}
	return params, e.Cells[2:], true
}

// IsClosure decomposes the internal (__closure name fv...) form.
func (e *Expr) IsClosure() (name string, frees []string, ok bool) {
	if e.Type != TList || len(e.Cells) < 2 {
		return "", nil, false
	}
	if e.Cells[0].Type != TSymbol || e.Cells[0].Str != closureHead {
		return "", nil, false
	}
	if e.Cells[1].Type != TSymbol {
		return "", nil, false
	}
	for _, c := range e.Cells[2:] {
		if c.Type != TSymbol {
			return "", nil, false
		}
		frees = append(frees, c.Str)
	}
	return e.Cells[1].Str, frees, true
}

// IsFncall decomposes a function application: any nonempty list whose head
// is not a special form or primitive operator.
func (e *Expr) IsFncall() (head *Expr, args []*Expr, ok bool) {
	if e.Type != TList || len(e.Cells) == 0 {
		return nil, nil, false
	}
	head = e.Cells[0]
	switch head.Type {
	case TSymbol:
		switch head.Str {
		case "let", "if", "fn", closureHead:
			return nil, nil, false
		}
		if _, prim := primitives[head.Str]; prim {
			return nil, nil, false
		}
		return head, e.Cells[1:], true
	case TList:
		if len(head.Cells) == 0 {
			// A literal () in application position is not callable.
			return nil, nil, false
		}
		return head, e.Cells[1:], true
	}
	return nil, nil, false
}

// specialForm reports whether name is claimed by the syntax rather than
// usable as a variable.
func specialForm(name string) bool {
	switch name {
	case "let", "if", "fn", closureHead:
		return true
	}
	_, prim := primitives[name]
	return prim
}
