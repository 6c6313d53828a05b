package analysis

import "github.com/gogpu/naga/ir"

// processFunction builds the FunctionInfo for fun: first every expression
// in arena order, then a recursive descent over the statement tree
// rooted at fun.Body.
func (a *Analysis) processFunction(fun *ir.Function, globals []ir.GlobalVariable) (*FunctionInfo, error) {
	info := &FunctionInfo{
		SamplingSet: make(map[SamplingKey]struct{}),
		globalUses:  make([]GlobalUse, len(globals)),
		expressions: make([]ExpressionInfo, len(fun.Expressions)),
	}

	for i := range fun.Expressions {
		handle := ir.ExpressionHandle(i)
		if err := info.processExpression(handle, fun.Expressions, globals, a.functions); err != nil {
			return nil, err
		}
	}

	uniformity, exit, err := info.processBlock(fun.Body, a.functions, nil)
	if err != nil {
		return nil, err
	}
	info.Uniformity = uniformity
	info.MayKill = exit.Has(ExitMayKill)
	return info, nil
}
