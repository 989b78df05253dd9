package formula

import (
	"math"

	"github.com/kvirves/rik-screener/internal/table"
)

// Eval evaluates the expression against one row. Any absent operand, a
// zero or absent denominator, and any non-finite intermediate result all
// yield Absent for that row; evaluation never panics and never affects
// other rows.
func (p *Parsed) Eval(t *table.Table, row int) table.Value {
	f, ok := evalNode(p.root, t, row)
	if !ok {
		return table.Absent
	}
	return table.Number(f)
}

func evalNode(n node, t *table.Table, row int) (float64, bool) {
	switch v := n.(type) {
	case numberLit:
		return v.val, true
	case columnRef:
		return t.At(row, v.name).Float()
	case unaryNeg:
		f, ok := evalNode(v.operand, t, row)
		if !ok {
			return 0, false
		}
		return -f, true
	case binaryOp:
		return evalBinary(v, t, row)
	case call:
		return evalCall(v, t, row)
	default:
		return 0, false
	}
}

func evalBinary(b binaryOp, t *table.Table, row int) (float64, bool) {
	left, ok := evalNode(b.left, t, row)
	if !ok {
		return 0, false
	}
	right, ok := evalNode(b.right, t, row)
	if !ok {
		return 0, false
	}
	var out float64
	switch b.op {
	case '+':
		out = left + right
	case '-':
		out = left - right
	case '*':
		out = left * right
	case '/':
		if right == 0 {
			return 0, false
		}
		out = left / right
	}
	return finite(out)
}

func evalCall(c call, t *table.Table, row int) (float64, bool) {
	args := make([]float64, len(c.args))
	for i, a := range c.args {
		f, ok := evalNode(a, t, row)
		if !ok {
			return 0, false
		}
		args[i] = f
	}
	switch c.fn {
	case "abs":
		return finite(math.Abs(args[0]))
	case "sqrt":
		return finite(math.Sqrt(args[0]))
	case "log":
		return finite(math.Log(args[0]))
	case "log10":
		return finite(math.Log10(args[0]))
	case "exp":
		return finite(math.Exp(args[0]))
	case "round":
		return finite(math.Round(args[0]))
	case "pow":
		return finite(math.Pow(args[0], args[1]))
	case "min":
		out := args[0]
		for _, f := range args[1:] {
			out = math.Min(out, f)
		}
		return finite(out)
	case "max":
		out := args[0]
		for _, f := range args[1:] {
			out = math.Max(out, f)
		}
		return finite(out)
	case "average":
		var sum float64
		for _, f := range args {
			sum += f
		}
		return finite(sum / float64(len(args)))
	default:
		return 0, false
	}
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
