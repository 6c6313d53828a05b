package analysis

import (
	"fmt"

	"github.com/gogpu/naga/ir"
)

// addRefImpl adds a value-type reference to the expression at handle,
// bumping its reference count and, if it resolves to an assignable
// global, marking that global's use mask with use.
func (fi *FunctionInfo) addRefImpl(handle ir.ExpressionHandle, use GlobalUse) Uniformity {
	info := &fi.expressions[handle]
	info.RefCount++
	if info.assignableGlobal != nil {
		fi.globalUses[*info.assignableGlobal] |= use
	}
	return info.Uniformity
}

// addRef adds an ordinary (read) reference to the expression at handle.
func (fi *FunctionInfo) addRef(handle ir.ExpressionHandle) Uniformity {
	return fi.addRefImpl(handle, UseRead)
}

// addAssignableRef adds a potentially-assignable reference to the
// expression at handle: the destination of a Store or ImageStore, which
// may transit through Access and AccessIndex. If handle resolves to a
// global, that global is carried up into *out.
func (fi *FunctionInfo) addAssignableRef(handle ir.ExpressionHandle, out **ir.GlobalVariableHandle) Uniformity {
	info := &fi.expressions[handle]
	info.RefCount++
	if info.assignableGlobal != nil {
		gv := *info.assignableGlobal
		*out = &gv
	}
	return info.Uniformity
}

// processCall inherits a called function's sampling set and global use
// mask into fi, and returns the callee's own uniformity.
func (fi *FunctionInfo) processCall(callee *FunctionInfo) Uniformity {
	for key := range callee.SamplingSet {
		fi.SamplingSet[key] = struct{}{}
	}
	for i, use := range callee.globalUses {
		fi.globalUses[i] |= use
	}
	return callee.Uniformity
}

// processExpression computes the Uniformity of the expression at handle
// and records it, along with its (possible) assignable global, in
// fi.expressions. otherFunctions must already hold a FunctionInfo for
// every function this expression might call into — satisfied because
// functions are analyzed in arena order and a callee always precedes its
// callers.
func (fi *FunctionInfo) processExpression(handle ir.ExpressionHandle, exprs []ir.Expression, globals []ir.GlobalVariable, otherFunctions []*FunctionInfo) error {
	var assignableGlobal *ir.GlobalVariableHandle
	var u Uniformity

	switch k := exprs[handle].Kind.(type) {
	case ir.Literal:
		u = Uniformity{}
	case ir.ExprConstant:
		u = Uniformity{}
	case ir.ExprZeroValue:
		u = Uniformity{}
	case ir.ExprCompose:
		for _, c := range k.Components {
			u = u.Join(fi.addRef(c))
		}
	case ir.ExprAccess:
		u = fi.addAssignableRef(k.Base, &assignableGlobal).Join(fi.addRef(k.Index))
	case ir.ExprAccessIndex:
		u = fi.addAssignableRef(k.Base, &assignableGlobal)
	case ir.ExprSplat:
		u = fi.addRef(k.Value)
	case ir.ExprSwizzle:
		u = fi.addRef(k.Vector)
	case ir.ExprFunctionArgument:
		u = nonUniformResult(handle)
	case ir.ExprGlobalVariable:
		gv := k.Variable
		assignableGlobal = &gv
		u = globalVariableUniformity(handle, globals[k.Variable])
	case ir.ExprLocalVariable:
		u = nonUniformResult(handle)
	case ir.ExprLoad:
		u = fi.addRef(k.Pointer)
	case ir.ExprImageSample:
		sampleU, err := fi.processImageSample(handle, k, exprs)
		if err != nil {
			return err
		}
		u = sampleU
	case ir.ExprImageLoad:
		u = fi.addRef(k.Image).Join(fi.addRef(k.Coordinate))
		if k.ArrayIndex != nil {
			u = u.Join(fi.addRef(*k.ArrayIndex))
		}
		if k.Sample != nil {
			u = u.Join(fi.addRef(*k.Sample))
		}
		if k.Level != nil {
			u = u.Join(fi.addRef(*k.Level))
		}
	case ir.ExprImageQuery:
		queryU := Uniformity{}
		if sz, ok := k.Query.(ir.ImageQuerySize); ok && sz.Level != nil {
			queryU = fi.addRef(*sz.Level)
		}
		u = fi.addRefImpl(k.Image, UseQuery).Join(queryU)
	case ir.ExprUnary:
		u = fi.addRef(k.Expr)
	case ir.ExprBinary:
		u = fi.addRef(k.Left).Join(fi.addRef(k.Right))
	case ir.ExprSelect:
		u = fi.addRef(k.Condition).Join(fi.addRef(k.Accept)).Join(fi.addRef(k.Reject))
	case ir.ExprDerivative:
		// explicit derivatives require uniform control flow
		u = requireUniform(handle).Join(fi.addRef(k.Expr))
	case ir.ExprRelational:
		u = fi.addRef(k.Argument)
	case ir.ExprMath:
		u = fi.addRef(k.Arg)
		if k.Arg1 != nil {
			u = u.Join(fi.addRef(*k.Arg1))
		}
		if k.Arg2 != nil {
			u = u.Join(fi.addRef(*k.Arg2))
		}
		if k.Arg3 != nil {
			u = u.Join(fi.addRef(*k.Arg3))
		}
	case ir.ExprAs:
		u = fi.addRef(k.Expr)
	case ir.ExprCallResult:
		if int(k.Function) >= len(otherFunctions) || otherFunctions[k.Function] == nil {
			return fmt.Errorf("call result references unresolved function %d", k.Function)
		}
		u = fi.processCall(otherFunctions[k.Function])
	case ir.ExprArrayLength:
		u = fi.addRefImpl(k.Array, UseQuery)
	case ir.ExprAtomicResult:
		u = nonUniformResult(handle)
	default:
		u = nonUniformResult(handle)
	}

	fi.expressions[handle] = ExpressionInfo{
		Uniformity:       u,
		assignableGlobal: assignableGlobal,
	}
	return nil
}

// processImageSample implements the ImageSample expression rule: it
// registers the (image, sampler) SamplingKey, requires both operands
// resolve directly to a GlobalVariable expression, and joins the
// uniformity contributions of every operand, including the level of
// detail.
func (fi *FunctionInfo) processImageSample(handle ir.ExpressionHandle, k ir.ExprImageSample, exprs []ir.Expression) (Uniformity, error) {
	image, err := globalVariableOperand(exprs, k.Image)
	if err != nil {
		return Uniformity{}, err
	}
	sampler, err := globalVariableOperand(exprs, k.Sampler)
	if err != nil {
		return Uniformity{}, err
	}
	fi.SamplingSet[SamplingKey{Image: image, Sampler: sampler}] = struct{}{}

	arrayFlags := Uniformity{}
	if k.ArrayIndex != nil {
		arrayFlags = fi.addRef(*k.ArrayIndex)
	}

	var levelFlags Uniformity
	switch lvl := k.Level.(type) {
	case ir.SampleLevelAuto:
		// implicit derivatives for LOD require uniform control flow
		levelFlags = requireUniform(handle)
	case ir.SampleLevelZero:
		levelFlags = Uniformity{}
	case ir.SampleLevelExact:
		levelFlags = fi.addRef(lvl.Level)
	case ir.SampleLevelBias:
		levelFlags = fi.addRef(lvl.Bias)
	case ir.SampleLevelGradient:
		levelFlags = fi.addRef(lvl.X).Join(fi.addRef(lvl.Y))
	}

	drefFlags := Uniformity{}
	if k.DepthRef != nil {
		drefFlags = fi.addRef(*k.DepthRef)
	}

	return fi.addRef(k.Image).
		Join(fi.addRef(k.Sampler)).
		Join(fi.addRef(k.Coordinate)).
		Join(arrayFlags).
		Join(levelFlags).
		Join(drefFlags), nil
}

// globalVariableOperand requires that the expression at handle is a
// direct GlobalVariable reference, as ImageSample's image and sampler
// operands must be, and returns the variable it names.
func globalVariableOperand(exprs []ir.Expression, handle ir.ExpressionHandle) (ir.GlobalVariableHandle, error) {
	if gv, ok := exprs[handle].Kind.(ir.ExprGlobalVariable); ok {
		return gv.Variable, nil
	}
	return 0, &ExpectedGlobalVariableError{Expr: handle, Got: exprs[handle]}
}

// globalVariableUniformity classifies a GlobalVariable expression's
// result according to the variable it names.
func globalVariableUniformity(handle ir.ExpressionHandle, gv ir.GlobalVariable) Uniformity {
	if isGlobalVariableUniform(gv) {
		return Uniformity{}
	}
	return nonUniformResult(handle)
}

// isGlobalVariableUniform reports whether every invocation in an
// execution group observes the same value for gv.
func isGlobalVariableUniform(gv ir.GlobalVariable) bool {
	if b, ok := gv.IOBinding.(ir.BuiltinBinding); ok {
		switch b.Builtin {
		// per-polygon and per-work-group built-ins are uniform
		case ir.BuiltinFrontFacing, ir.BuiltinWorkGroupID, ir.BuiltinWorkGroupSize:
			return true
		default:
			return false
		}
	}

	switch gv.Space {
	case ir.SpaceInput:
		// only flat inputs are uniform
		if loc, ok := gv.IOBinding.(ir.LocationBinding); ok {
			return loc.Interpolation != nil && loc.Interpolation.Kind == ir.InterpolationFlat
		}
		return false
	case ir.SpaceOutput, ir.SpaceFunction, ir.SpacePrivate, ir.SpaceWorkGroup:
		return false
	case ir.SpaceUniform, ir.SpacePushConstant:
		return true
	case ir.SpaceHandle, ir.SpaceStorage:
		// storage data is only uniform when read-only
		return !gv.StorageAccess.Contains(ir.AccessStore)
	default:
		return false
	}
}
