package analysis

import (
	"fmt"

	"github.com/gogpu/naga/ir"
)

// ExpressionInfo holds the analysis results for a single expression.
type ExpressionInfo struct {
	// Uniformity describes whether this expression's value may vary
	// across invocations, and whether it requires uniform control flow.
	Uniformity Uniformity
	// RefCount is the number of value-type or assignable references made
	// to this expression from other expressions and statements.
	RefCount uint32

	// assignableGlobal is set when this expression is, or transitively
	// accesses into, a GlobalVariable expression — the global that a
	// Store/ImageStore targeting this expression would affect.
	assignableGlobal *ir.GlobalVariableHandle
}

// FunctionInfo holds the analysis results for a single function.
type FunctionInfo struct {
	// Uniformity describes the function body's own control-flow
	// characteristics, accumulated across its top-level statements.
	Uniformity Uniformity
	// MayKill reports whether executing the function may reach a Kill
	// statement, directly or through a called function.
	MayKill bool
	// SamplingSet holds every distinct (image, sampler) pair this
	// function samples with, directly or through calls.
	SamplingSet map[SamplingKey]struct{}

	globalUses  []GlobalUse
	expressions []ExpressionInfo
}

// GlobalVariableCount returns the number of global variables tracked by
// this function's use mask (equal to the module's global variable count).
func (fi *FunctionInfo) GlobalVariableCount() int {
	return len(fi.globalUses)
}

// ExpressionCount returns the number of expressions in this function.
func (fi *FunctionInfo) ExpressionCount() int {
	return len(fi.expressions)
}

// GlobalUse returns how this function uses the given global variable.
func (fi *FunctionInfo) GlobalUse(handle ir.GlobalVariableHandle) GlobalUse {
	return fi.globalUses[handle]
}

// Expression returns the analysis results for the given expression.
func (fi *FunctionInfo) Expression(handle ir.ExpressionHandle) *ExpressionInfo {
	return &fi.expressions[handle]
}

// DominatesGlobalUse reports whether fi's use of every global variable is
// a superset of other's use of that same variable. Used to check whether
// a call site can be reordered or cached without widening global access.
func (fi *FunctionInfo) DominatesGlobalUse(other *FunctionInfo) bool {
	for i, use := range other.globalUses {
		if !fi.globalUses[i].contains(use) {
			return false
		}
	}
	return true
}

// AnalysisError is the common interface implemented by every error this
// package returns.
type AnalysisError interface {
	error
	analysisError()
}

// ExpectedGlobalVariableError reports that an ImageSample's image or
// sampler operand did not resolve directly to a GlobalVariable
// expression.
type ExpectedGlobalVariableError struct {
	Expr ir.ExpressionHandle
	Got  ir.Expression
}

func (e *ExpectedGlobalVariableError) Error() string {
	return fmt.Sprintf("expression %d is not a global variable: %#v", e.Expr, e.Got.Kind)
}

func (*ExpectedGlobalVariableError) analysisError() {}

// NonUniformControlFlowError reports that an expression requiring
// uniform control flow (a derivative, an auto-LOD sample, ...) was
// reached from non-uniform flow.
type NonUniformControlFlowError struct {
	Witness   ir.ExpressionHandle
	Disruptor UniformityDisruptor
}

func (e *NonUniformControlFlowError) Error() string {
	return fmt.Sprintf("required uniformity of control flow for expression %d is not fulfilled because %s", e.Witness, e.Disruptor.String())
}

func (*NonUniformControlFlowError) analysisError() {}

// Analysis holds the FunctionInfo of every function and entry point in a
// module.
type Analysis struct {
	functions   []*FunctionInfo
	entryPoints []*FunctionInfo
}

// New computes the Analysis for module. Ordinary functions are processed
// in arena order before entry points, so that a function's FunctionInfo
// is available at every one of its call sites by the time it is needed:
// callees precede callers in the arena by construction.
//
// Entry points in this IR reference their body through the same Function
// arena ordinary functions live in, so their FunctionInfo is simply the
// already-computed entry referenced by EntryPoint.Function; it is never
// recomputed.
func New(module *ir.Module) (*Analysis, error) {
	a := &Analysis{
		functions:   make([]*FunctionInfo, 0, len(module.Functions)),
		entryPoints: make([]*FunctionInfo, 0, len(module.EntryPoints)),
	}
	for i := range module.Functions {
		info, err := a.processFunction(&module.Functions[i], module.GlobalVariables)
		if err != nil {
			return nil, err
		}
		a.functions = append(a.functions, info)
	}
	for _, ep := range module.EntryPoints {
		if int(ep.Function) >= len(a.functions) {
			return nil, fmt.Errorf("entry point %q references out-of-range function %d", ep.Name, ep.Function)
		}
		a.entryPoints = append(a.entryPoints, a.functions[ep.Function])
	}
	return a, nil
}

// Function returns the FunctionInfo for the function at handle.
func (a *Analysis) Function(handle ir.FunctionHandle) *FunctionInfo {
	return a.functions[handle]
}

// EntryPointCount returns the number of entry points in the analyzed module.
func (a *Analysis) EntryPointCount() int {
	return len(a.entryPoints)
}

// EntryPoint returns the FunctionInfo for the entry point at index, in
// the same order as module.EntryPoints.
func (a *Analysis) EntryPoint(index int) *FunctionInfo {
	return a.entryPoints[index]
}
