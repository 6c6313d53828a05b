package analysis

import (
	"fmt"

	"github.com/gogpu/naga/ir"
)

// Uniformity describes the uniform control-flow characteristics of an
// expression: whether it produces a non-uniform result, and whether it
// requires the surrounding control flow to be uniform.
//
// Both fields are witnesses: the first operand encountered that
// introduces the property, not merely a boolean. Join keeps the
// leftmost witness, so diagnostics point at the earliest cause.
type Uniformity struct {
	// NonUniformResult is the expression whose value may differ across
	// invocations in the same execution group, if any.
	NonUniformResult *ir.ExpressionHandle
	// RequireUniform is the expression that can only execute correctly
	// under uniform control flow (a derivative, an auto-LOD sample), if
	// any.
	RequireUniform *ir.ExpressionHandle
}

// nonUniformResult builds a Uniformity witnessing that expr produces a
// non-uniform result.
func nonUniformResult(expr ir.ExpressionHandle) Uniformity {
	return Uniformity{NonUniformResult: &expr}
}

// requireUniform builds a Uniformity witnessing that expr requires
// uniform control flow.
func requireUniform(expr ir.ExpressionHandle) Uniformity {
	return Uniformity{RequireUniform: &expr}
}

// Join combines two Uniformity values. Each field keeps u's witness if
// present, otherwise other's — left-biased so that traversal order
// determines which expression is reported in diagnostics.
func (u Uniformity) Join(other Uniformity) Uniformity {
	result := u
	if result.NonUniformResult == nil {
		result.NonUniformResult = other.NonUniformResult
	}
	if result.RequireUniform == nil {
		result.RequireUniform = other.RequireUniform
	}
	return result
}

// Disruptor returns the UniformityDisruptor this Uniformity's
// NonUniformResult witness represents, if any.
func (u Uniformity) Disruptor() *UniformityDisruptor {
	if u.NonUniformResult == nil {
		return nil
	}
	d := UniformityDisruptor{Expression: u.NonUniformResult}
	return &d
}

// ExitFlags is a bitset over the ways a statement block may end
// execution early.
type ExitFlags uint8

const (
	// ExitMayReturn indicates control flow may return from the function.
	ExitMayReturn ExitFlags = 1 << 0
	// ExitMayKill indicates control flow may be killed (fragment
	// discard).
	ExitMayKill ExitFlags = 1 << 1
)

// Has reports whether all bits in flag are set.
func (f ExitFlags) Has(flag ExitFlags) bool {
	return f&flag == flag
}

// UniformityDisruptor names the earliest reason the current program
// point is in non-uniform control flow: a non-uniform expression the
// flow is conditioned on, a preceding Return, or a preceding Kill.
// Exactly one field is set.
type UniformityDisruptor struct {
	Expression *ir.ExpressionHandle
	Return     bool
	Kill       bool
}

// String renders the disruptor for diagnostics.
func (d UniformityDisruptor) String() string {
	switch {
	case d.Expression != nil:
		return fmt.Sprintf("expression %d produced a non-uniform result, and control flow depends on it", *d.Expression)
	case d.Return:
		return "there is a Return earlier in the control flow of the function"
	case d.Kill:
		return "there is a Kill earlier in the control flow of the function"
	default:
		return "unknown disruptor"
	}
}

// disruptorFromExit derives a UniformityDisruptor from a block's exit
// flags. MAY_RETURN takes precedence over MAY_KILL: a return is
// strictly more specific diagnostic information than a kill, since it
// names exactly the function whose flow was disrupted.
func disruptorFromExit(flags ExitFlags) *UniformityDisruptor {
	switch {
	case flags.Has(ExitMayReturn):
		return &UniformityDisruptor{Return: true}
	case flags.Has(ExitMayKill):
		return &UniformityDisruptor{Kill: true}
	default:
		return nil
	}
}

// orDisruptor returns d if non-nil, else fallback.
func orDisruptor(d, fallback *UniformityDisruptor) *UniformityDisruptor {
	if d != nil {
		return d
	}
	return fallback
}
