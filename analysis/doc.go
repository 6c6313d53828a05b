// Package analysis computes static per-function and per-expression
// properties of a naga IR module: uniform control flow, global-variable
// use masks, image/sampler pairings, expression reference counts, and
// early-exit flags.
//
// The analysis is a single pass over each function's expression arena
// (in handle order) followed by a recursive descent over its statement
// tree. It never mutates the module; call New once per module and index
// the result.
//
//	info, err := analysis.New(module)
//	if err != nil {
//	    // the module contains a real control-flow violation: an
//	    // expression that requires uniform control flow (a derivative,
//	    // auto-LOD sample, or similar) was reached from non-uniform flow.
//	}
//	fn := info.Function(someFunctionHandle)
//	fmt.Println(fn.MayKill, fn.SamplingSet)
package analysis
