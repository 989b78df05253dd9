package formula

import (
	"strconv"

	"github.com/rotisserie/eris"
)

// node is an immutable expression-tree node.
type node interface{ isNode() }

type numberLit struct{ val float64 }

type columnRef struct{ name string }

type unaryNeg struct{ operand node }

type binaryOp struct {
	op          rune // '+', '-', '*', '/'
	left, right node
}

type call struct {
	fn   string
	args []node
}

func (numberLit) isNode() {}
func (columnRef) isNode() {}
func (unaryNeg) isNode()  {}
func (binaryOp) isNode()  {}
func (call) isNode()      {}

// arity bounds per function; max -1 means variadic.
var functions = map[string]struct{ min, max int }{
	"abs":     {1, 1},
	"sqrt":    {1, 1},
	"log":     {1, 1},
	"log10":   {1, 1},
	"exp":     {1, 1},
	"round":   {1, 1},
	"pow":     {2, 2},
	"min":     {2, -1},
	"max":     {2, -1},
	"average": {1, -1},
}

// Parsed is a compiled formula: the expression tree plus the distinct
// quoted column names it references, in first-appearance order. A Parsed
// is parsed once and evaluated per row; it is never re-parsed.
type Parsed struct {
	src  string
	root node
	cols []string
}

// Parse tokenizes and parses an expression string. Standard arithmetic
// precedence, parentheses, unary negation, and the function set declared
// above are supported. Unknown functions fail at parse time.
func Parse(expr string) (*Parsed, error) {
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, eris.Errorf("formula: unexpected %q at position %d", p.peek().text, p.peek().pos)
	}
	out := &Parsed{src: expr, root: root}
	collectColumns(root, &out.cols, make(map[string]struct{}))
	return out, nil
}

// Source returns the original expression text.
func (p *Parsed) Source() string { return p.src }

// Columns returns the distinct column names the expression references.
func (p *Parsed) Columns() []string {
	out := make([]string, len(p.cols))
	copy(out, p.cols)
	return out
}

func collectColumns(n node, out *[]string, seen map[string]struct{}) {
	switch v := n.(type) {
	case columnRef:
		if _, ok := seen[v.name]; !ok {
			seen[v.name] = struct{}{}
			*out = append(*out, v.name)
		}
	case unaryNeg:
		collectColumns(v.operand, out, seen)
	case binaryOp:
		collectColumns(v.left, out, seen)
		collectColumns(v.right, out, seen)
	case call:
		for _, a := range v.args {
			collectColumns(a, out, seen)
		}
	}
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.peek()
	if t.kind != kind {
		return t, eris.Errorf("formula: expected %s at position %d, got %q", what, t.pos, t.text)
	}
	return p.next(), nil
}

// parseExpr handles + and -.
func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokPlus:
			p.next()
			right, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			left = binaryOp{op: '+', left: left, right: right}
		case tokMinus:
			p.next()
			right, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			left = binaryOp{op: '-', left: left, right: right}
		default:
			return left, nil
		}
	}
}

// parseTerm handles * and /.
func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokStar:
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = binaryOp{op: '*', left: left, right: right}
		case tokSlash:
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = binaryOp{op: '/', left: left, right: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (node, error) {
	if p.peek().kind == tokMinus {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNeg{operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		return numberLit{val: t.num}, nil
	case tokColumn:
		p.next()
		return columnRef{name: t.text}, nil
	case tokLParen:
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	case tokIdent:
		return p.parseCall()
	default:
		return nil, eris.Errorf("formula: unexpected %q at position %d", t.text, t.pos)
	}
}

func (p *parser) parseCall() (node, error) {
	name := p.next()
	spec, ok := functions[name.text]
	if !ok {
		return nil, eris.Errorf("formula: unknown function %q at position %d", name.text, name.pos)
	}
	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	var args []node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	if len(args) < spec.min || (spec.max >= 0 && len(args) > spec.max) {
		return nil, eris.Errorf("formula: %s takes %s, got %d arguments",
			name.text, arityString(spec.min, spec.max), len(args))
	}
	return call{fn: name.text, args: args}, nil
}

func arityString(min, max int) string {
	switch {
	case max < 0:
		return strconv.Itoa(min) + " or more arguments"
	case min == max && min == 1:
		return "1 argument"
	case min == max:
		return strconv.Itoa(min) + " arguments"
	default:
		return strconv.Itoa(min) + " to " + strconv.Itoa(max) + " arguments"
	}
}
