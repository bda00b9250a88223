package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/silica-hdl/silica/internal/ir"
)

// The AST interchange document carries expressions as source text
// ("G+4", "M*M", "C.L"). This file is the small precedence-climbing parser
// that turns them into ir expression trees. It is not the language parser -
// that is an external collaborator - just the decoder for the expression
// leaves of the interchange format.

type exprParser struct {
	src string
	pos int
}

// ParseExpr parses a value expression: naturals, parameter names, dotted
// existential references, and + - * / % with the usual precedence.
func ParseExpr(src string) (ir.Expr, error) {
	p := &exprParser{src: src}
	e, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("unexpected %q at offset %d in expression %q", p.src[p.pos:], p.pos, src)
	}
	return e, nil
}

// ParseTime parses a time expression: either a bare offset expression
// (eventless) or `event + offset` / `event - offset` with a leading
// identifier naming the anchoring time parameter.
func ParseTime(src string) (ir.TimeExpr, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return ir.TimeExpr{}, fmt.Errorf("empty time expression")
	}

	// A leading identifier anchors the time at that event.
	if isIdentStart(rune(trimmed[0])) {
		p := &exprParser{src: trimmed}
		event := p.parseIdent()
		p.skipSpace()
		if strings.ContainsRune(event, '.') {
			return ir.TimeExpr{}, fmt.Errorf("time expression %q cannot be anchored at a dotted reference", src)
		}
		if p.pos == len(p.src) {
			return ir.At(event, ir.Nat(0)), nil
		}
		op := p.src[p.pos]
		if op != '+' && op != '-' {
			return ir.TimeExpr{}, fmt.Errorf("expected '+' or '-' after event %q in time expression %q", event, src)
		}
		p.pos++
		offset, err := p.parseAdditive()
		if err != nil {
			return ir.TimeExpr{}, err
		}
		p.skipSpace()
		if p.pos != len(p.src) {
			return ir.TimeExpr{}, fmt.Errorf("unexpected %q in time expression %q", p.src[p.pos:], src)
		}
		if op == '-' {
			offset = &ir.Bin{Op: ir.OpSub, L: ir.Nat(0), R: offset}
		}
		return ir.At(event, offset), nil
	}

	// Eventless literal offset (used in already-concrete documents).
	offset, err := ParseExpr(trimmed)
	if err != nil {
		return ir.TimeExpr{}, err
	}
	return ir.TimeExpr{Offset: offset}, nil
}

// cmpOps in match order: two-character operators before their one-character
// prefixes.
var cmpOps = []ir.CmpOp{ir.CmpEq, ir.CmpLe, ir.CmpGe, ir.CmpLt, ir.CmpGt}

// ParseGuard parses a `where` clause comparison, e.g. "M > 1" or
// "W % 8 == 0".
func ParseGuard(src string) (ir.CmpOp, ir.Expr, ir.Expr, error) {
	for _, op := range cmpOps {
		idx := strings.Index(src, string(op))
		if idx < 0 {
			continue
		}
		l, err := ParseExpr(src[:idx])
		if err != nil {
			return "", nil, nil, err
		}
		r, err := ParseExpr(src[idx+len(op):])
		if err != nil {
			return "", nil, nil, err
		}
		return op, l, r, nil
	}
	return "", nil, nil, fmt.Errorf("no comparison operator in guard %q", src)
}

// ParsePortRef parses "port" or "instance.port".
func ParsePortRef(src string) (string, string, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return "", "", fmt.Errorf("empty port reference")
	}
	parts := strings.Split(trimmed, ".")
	switch len(parts) {
	case 1:
		return "", parts[0], nil
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return "", "", fmt.Errorf("malformed port reference %q", src)
		}
		return parts[0], parts[1], nil
	default:
		return "", "", fmt.Errorf("malformed port reference %q", src)
	}
}

func (p *exprParser) parseAdditive() (ir.Expr, error) {
	l, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return l, nil
		}
		var op ir.BinOp
		switch p.src[p.pos] {
		case '+':
			op = ir.OpAdd
		case '-':
			op = ir.OpSub
		default:
			return l, nil
		}
		p.pos++
		r, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		l = &ir.Bin{Op: op, L: l, R: r}
	}
}

func (p *exprParser) parseMultiplicative() (ir.Expr, error) {
	l, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return l, nil
		}
		var op ir.BinOp
		switch p.src[p.pos] {
		case '*':
			op = ir.OpMul
		case '/':
			op = ir.OpDiv
		case '%':
			op = ir.OpMod
		default:
			return l, nil
		}
		p.pos++
		r, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		l = &ir.Bin{Op: op, L: l, R: r}
	}
}

func (p *exprParser) parsePrimary() (ir.Expr, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, fmt.Errorf("unexpected end of expression %q", p.src)
	}

	c := rune(p.src[p.pos])
	switch {
	case c == '(':
		p.pos++
		e, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ')' {
			return nil, fmt.Errorf("missing ')' in expression %q", p.src)
		}
		p.pos++
		return e, nil

	case unicode.IsDigit(c):
		start := p.pos
		for p.pos < len(p.src) && unicode.IsDigit(rune(p.src[p.pos])) {
			p.pos++
		}
		n, err := strconv.ParseInt(p.src[start:p.pos], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad natural %q: %w", p.src[start:p.pos], err)
		}
		return ir.Nat(n), nil

	case isIdentStart(c):
		name := p.parseIdent()
		if inst, param, ok := strings.Cut(name, "."); ok {
			return ir.ExistsRef{Instance: inst, Param: param}, nil
		}
		return ir.Param(name), nil

	default:
		return nil, fmt.Errorf("unexpected character %q in expression %q", c, p.src)
	}
}

// parseIdent consumes an identifier, optionally dotted (instance.param).
func (p *exprParser) parseIdent() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if isIdentStart(c) || unicode.IsDigit(c) || (c == '.' && p.pos > start) {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func isIdentStart(c rune) bool {
	return unicode.IsLetter(c) || c == '_'
}
