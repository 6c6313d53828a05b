package analysis

import (
	"fmt"

	"github.com/gogpu/naga/ir"
)

// processBlock computes the combined Uniformity and ExitFlags of a
// sequence of statements, given the UniformityDisruptor already in
// effect when the block starts (nil if control flow is uniform here).
//
// It returns a NonUniformControlFlowError if any statement's uniformity
// requires uniform control flow while a disruptor is already active.
func (fi *FunctionInfo) processBlock(statements ir.Block, otherFunctions []*FunctionInfo, disruptor *UniformityDisruptor) (Uniformity, ExitFlags, error) {
	var blockUniformity Uniformity
	var blockExit ExitFlags

	for _, stmt := range statements {
		curUniformity, curExit, err := fi.processStatement(stmt, otherFunctions, disruptor)
		if err != nil {
			return Uniformity{}, 0, err
		}

		if curUniformity.RequireUniform != nil && disruptor != nil {
			return Uniformity{}, 0, &NonUniformControlFlowError{
				Witness:   *curUniformity.RequireUniform,
				Disruptor: *disruptor,
			}
		}
		disruptor = orDisruptor(disruptor, disruptorFromExit(curExit))
		blockUniformity = blockUniformity.Join(curUniformity)
		blockExit |= curExit
	}

	return blockUniformity, blockExit, nil
}

func (fi *FunctionInfo) processStatement(stmt ir.Statement, otherFunctions []*FunctionInfo, disruptor *UniformityDisruptor) (Uniformity, ExitFlags, error) {
	switch k := stmt.Kind.(type) {
	case ir.StmtEmit, ir.StmtBreak, ir.StmtContinue, ir.StmtBarrier:
		return Uniformity{}, 0, nil

	case ir.StmtKill:
		return Uniformity{}, ExitMayKill, nil

	case ir.StmtBlock:
		return fi.processBlock(k.Block, otherFunctions, disruptor)

	case ir.StmtIf:
		conditionUniformity := fi.addRef(k.Condition)
		if conditionUniformity.RequireUniform != nil && disruptor != nil {
			return Uniformity{}, 0, &NonUniformControlFlowError{
				Witness:   *conditionUniformity.RequireUniform,
				Disruptor: *disruptor,
			}
		}
		branchDisruptor := orDisruptor(disruptor, conditionUniformity.Disruptor())
		acceptUniformity, acceptExit, err := fi.processBlock(k.Accept, otherFunctions, branchDisruptor)
		if err != nil {
			return Uniformity{}, 0, err
		}
		rejectUniformity, rejectExit, err := fi.processBlock(k.Reject, otherFunctions, branchDisruptor)
		if err != nil {
			return Uniformity{}, 0, err
		}
		return conditionUniformity.Join(acceptUniformity).Join(rejectUniformity), acceptExit | rejectExit, nil

	case ir.StmtSwitch:
		return fi.processSwitch(k, otherFunctions, disruptor)

	case ir.StmtLoop:
		bodyUniformity, bodyExit, err := fi.processBlock(k.Body, otherFunctions, disruptor)
		if err != nil {
			return Uniformity{}, 0, err
		}
		// No fixpoint: the continuing block (and any back edge to the
		// top of the body on the next iteration) is treated as disrupted
		// by whatever the body may have done on this pass, which is
		// conservative but requires no iteration to converge.
		branchDisruptor := orDisruptor(disruptor, disruptorFromExit(bodyExit))
		continuingUniformity, continuingExit, err := fi.processBlock(k.Continuing, otherFunctions, branchDisruptor)
		if err != nil {
			return Uniformity{}, 0, err
		}
		if k.BreakIf != nil {
			breakUniformity := fi.addRef(*k.BreakIf)
			if breakUniformity.RequireUniform != nil && branchDisruptor != nil {
				return Uniformity{}, 0, &NonUniformControlFlowError{
					Witness:   *breakUniformity.RequireUniform,
					Disruptor: *branchDisruptor,
				}
			}
			continuingUniformity = continuingUniformity.Join(breakUniformity)
		}
		return bodyUniformity.Join(continuingUniformity), bodyExit | continuingExit, nil

	case ir.StmtReturn:
		var uniformity Uniformity
		if k.Value != nil {
			uniformity = fi.addRef(*k.Value)
		}
		// Conservative: a Return always sets MAY_RETURN, even when the
		// flow up to this point was itself uniform.
		return uniformity, ExitMayReturn, nil

	case ir.StmtStore:
		return fi.addRefImpl(k.Pointer, UseWrite).Join(fi.addRef(k.Value)), 0, nil

	case ir.StmtImageStore:
		var arrayUniformity Uniformity
		if k.ArrayIndex != nil {
			arrayUniformity = fi.addRef(*k.ArrayIndex)
		}
		uniformity := arrayUniformity.
			Join(fi.addRefImpl(k.Image, UseWrite)).
			Join(fi.addRef(k.Coordinate)).
			Join(fi.addRef(k.Value))
		return uniformity, 0, nil

	case ir.StmtCall:
		if int(k.Function) >= len(otherFunctions) || otherFunctions[k.Function] == nil {
			return Uniformity{}, 0, fmt.Errorf("call statement references unresolved function %d", k.Function)
		}
		callee := otherFunctions[k.Function]
		uniformity := fi.processCall(callee)
		for _, arg := range k.Arguments {
			uniformity = uniformity.Join(fi.addRef(arg))
		}
		if k.Result != nil {
			uniformity = uniformity.Join(fi.addRef(*k.Result))
		}
		var exit ExitFlags
		if callee.MayKill {
			exit = ExitMayKill
		}
		return uniformity, exit, nil

	case ir.StmtAtomic:
		uniformity := fi.addRefImpl(k.Pointer, UseWrite).Join(fi.addRef(k.Value))
		if k.Result != nil {
			uniformity = uniformity.Join(fi.addRef(*k.Result))
		}
		return uniformity, 0, nil

	case ir.StmtWorkGroupUniformLoad:
		// The built-in's contract guarantees a uniform result, but the
		// Result expression is still a produced value like any other and
		// must be ref-counted, matching StmtAtomic and StmtCall above.
		return fi.addRef(k.Pointer).Join(fi.addRef(k.Result)), 0, nil

	case ir.StmtRayQuery:
		return fi.processRayQuery(k), 0, nil

	default:
		return Uniformity{}, 0, nil
	}
}

// processSwitch implements the Switch rule generalized to this IR's
// representation, where the default case is an ordinary SwitchCase
// tagged with SwitchValueDefault rather than a separate field, and may
// appear at any position in Cases.
//
// Non-default cases chain their disruptor across a fallthrough exactly
// as upstream naga does. The default case always starts from
// branchDisruptor (the disruptor in effect at the switch itself, or the
// one introduced by a non-uniform selector) regardless of where it sits
// among Cases, matching upstream's separate before-the-loop treatment of
// default.
func (fi *FunctionInfo) processSwitch(stmt ir.StmtSwitch, otherFunctions []*FunctionInfo, disruptor *UniformityDisruptor) (Uniformity, ExitFlags, error) {
	uniformity := fi.addRef(stmt.Selector)
	var exit ExitFlags
	branchDisruptor := orDisruptor(disruptor, uniformity.Disruptor())
	caseDisruptor := disruptor

	for _, c := range stmt.Cases {
		curDisruptor := caseDisruptor
		if _, isDefault := c.Value.(ir.SwitchValueDefault); isDefault {
			curDisruptor = branchDisruptor
		}

		caseUniformity, caseExit, err := fi.processBlock(c.Body, otherFunctions, curDisruptor)
		if err != nil {
			return Uniformity{}, 0, err
		}
		uniformity = uniformity.Join(caseUniformity)
		exit |= caseExit

		if c.FallThrough {
			caseDisruptor = orDisruptor(caseDisruptor, disruptorFromExit(caseExit))
		} else {
			caseDisruptor = branchDisruptor
		}
	}

	return uniformity, exit, nil
}

func (fi *FunctionInfo) processRayQuery(stmt ir.StmtRayQuery) Uniformity {
	uniformity := fi.addRef(stmt.Query)
	switch fun := stmt.Fun.(type) {
	case ir.RayQueryInitialize:
		uniformity = uniformity.Join(fi.addRef(fun.AccelerationStructure)).Join(fi.addRef(fun.Descriptor))
	case ir.RayQueryProceed:
		uniformity = uniformity.Join(fi.addRef(fun.Result))
	case ir.RayQueryTerminate:
		// no operands
	}
	return uniformity
}
