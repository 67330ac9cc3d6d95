// Package scriptengine implements the tree-walking interpreter for the
// payoff DSL: a visitor-free, switch-on-node-kind evaluator that
// maintains a value stack and a filter stack, drives a model.Model
// through the pricing primitives, and appends to a PayLog.
package scriptengine

import (
	"context"
	"fmt"

	"github.com/wyfcoding/ore/internal/model"
	"github.com/wyfcoding/ore/internal/oreerr"
	"github.com/wyfcoding/ore/internal/randomvar"
	"github.com/wyfcoding/ore/internal/scriptast"
	"github.com/wyfcoding/ore/internal/valuetype"
)

// Engine evaluates one AST against one Context and one Model.
type Engine struct {
	Model model.Model
	Ctx   *valuetype.Context
	Log   *PayLog

	// Interactive, when true, causes Run to return an *InteractiveStop
	// carrying the current stacks and node location instead of failing
	// outright, matching "optional interactive mode"; batch runs
	// leave this false.
	Interactive bool

	valueStack  []valuetype.ValueType
	filterStack []randomvar.Filter
	lastPos     scriptast.Pos
}

// New builds an Engine over m and ctx, writing cashflows to log.
func New(m model.Model, ctx *valuetype.Context, log *PayLog) *Engine {
	return &Engine{Model: m, Ctx: ctx, Log: log}
}

// InteractiveStop is returned from Run in place of the evaluation error
// when Interactive is true; it carries the last-visited node's location
// and copies of both stacks.
type InteractiveStop struct {
	Pos         scriptast.Pos
	ValueStack  []valuetype.ValueType
	FilterStack []randomvar.Filter
}

func (s *InteractiveStop) Error() string {
	return fmt.Sprintf("interactive stop at %d:%d", s.Pos.Line, s.Pos.Col)
}

// Run resets the AST's variable-resolution caches, seeds the stacks with
// the sentinel zero-variable and the all-true filter, and evaluates root.
// On success the value stack contains only the sentinel and the filter
// stack only the initial all-true filter (testable property #3). An
// error implementing oreerr.Located is stamped with the last-visited
// node's source location; any other error is returned unchanged.
func (e *Engine) Run(ctx context.Context, root *scriptast.Node) error {
	root.ResetCache()
	e.valueStack = []valuetype.ValueType{valuetype.FromNumber(randomvar.NewDeterministic(e.Model.Size(), 0))}
	e.filterStack = []randomvar.Filter{randomvar.NewFilterDeterministic(e.Model.Size(), true)}

	if err := e.evalStmt(ctx, root); err != nil {
		if e.Interactive {
			return &InteractiveStop{Pos: e.lastPos, ValueStack: append([]valuetype.ValueType{}, e.valueStack...), FilterStack: append([]randomvar.Filter{}, e.filterStack...)}
		}
		return oreerr.Locate(err, oreerr.Location{Line: e.lastPos.Line, Col: e.lastPos.Col})
	}
	if len(e.valueStack) != 1 || len(e.filterStack) != 1 {
		return fmt.Errorf("script engine: stack imbalance after run (values=%d filters=%d)", len(e.valueStack), len(e.filterStack))
	}
	return nil
}

func (e *Engine) checkpoint(ctx context.Context, n *scriptast.Node) error {
	e.lastPos = n.Pos
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (e *Engine) pushValue(v valuetype.ValueType) { e.valueStack = append(e.valueStack, v) }

func (e *Engine) popValue() valuetype.ValueType {
	n := len(e.valueStack)
	v := e.valueStack[n-1]
	e.valueStack = e.valueStack[:n-1]
	return v
}

func (e *Engine) pushFilter(f randomvar.Filter) { e.filterStack = append(e.filterStack, f) }

func (e *Engine) popFilter() randomvar.Filter {
	n := len(e.filterStack)
	f := e.filterStack[n-1]
	e.filterStack = e.filterStack[:n-1]
	return f
}

func (e *Engine) topFilter() randomvar.Filter { return e.filterStack[len(e.filterStack)-1] }

func loc(n *scriptast.Node) oreerr.Location { return oreerr.Location{Line: n.Pos.Line, Col: n.Pos.Col} }

// evalStmt evaluates a statement node with no net effect on either stack.
func (e *Engine) evalStmt(ctx context.Context, n *scriptast.Node) error {
	if err := e.checkpoint(ctx, n); err != nil {
		return err
	}
	switch n.Kind {
	case scriptast.KindSeq:
		for _, c := range n.Children {
			if err := e.evalStmt(ctx, c); err != nil {
				return err
			}
		}
		return nil
	case scriptast.KindDeclScalar:
		zero := valuetype.FromNumber(randomvar.NewDeterministic(e.Model.Size(), 0))
		return e.Ctx.Declare(n.Name, zero)
	case scriptast.KindDeclArray:
		if err := e.evalExpr(ctx, n.Children[0]); err != nil {
			return err
		}
		sizeVal := e.popValue()
		sizeRV, err := sizeVal.CheckNumeric()
		if err != nil {
			return oreerr.NewType(loc(n), "array size must be Number: %v", err)
		}
		if !sizeRV.Deterministic() {
			return oreerr.NewBounds(loc(n), "array %q size must be deterministic", n.Name)
		}
		size := int(sizeRV.At(0))
		zero := valuetype.FromNumber(randomvar.NewDeterministic(e.Model.Size(), 0))
		if err := e.Ctx.DeclareArray(n.Name, size, zero); err != nil {
			return oreerr.NewBounds(loc(n), "%v", err)
		}
		return nil
	case scriptast.KindAssignScalar:
		return e.evalAssignScalar(ctx, n)
	case scriptast.KindAssignElement:
		return e.evalAssignElement(ctx, n)
	case scriptast.KindIf:
		return e.evalIf(ctx, n)
	case scriptast.KindFor:
		return e.evalFor(ctx, n)
	case scriptast.KindRequire:
		return e.evalRequire(ctx, n)
	case scriptast.KindCall:
		// Expression used as a statement (e.g. bare `pay(...)`, or
		// SORT/PERMUTE); evaluate for side effects and discard the result.
		if err := e.evalExpr(ctx, n); err != nil {
			return err
		}
		e.popValue()
		return nil
	default:
		return oreerr.NewType(loc(n), "node kind %d is not a statement", n.Kind)
	}
}

func (e *Engine) evalAssignScalar(ctx context.Context, n *scriptast.Node) error {
	if e.Ctx.IsConstant(n.Name) {
		return oreerr.NewType(loc(n), "cannot assign to constant %q", n.Name)
	}
	if err := e.evalExpr(ctx, n.Children[0]); err != nil {
		return err
	}
	rhs := e.popValue()
	cur, declared, err := e.Ctx.Scalar(n.Name)
	if err != nil {
		return oreerr.NewType(loc(n), "%v", err)
	}
	if !declared {
		return oreerr.NewType(loc(n), "variable %q not declared", n.Name)
	}
	newVal, err := e.maskedAssign(n, cur, rhs)
	if err != nil {
		return err
	}
	if _, err := e.Ctx.SetScalar(n.Name, newVal); err != nil {
		return oreerr.NewType(loc(n), "%v", err)
	}
	return nil
}

func (e *Engine) evalAssignElement(ctx context.Context, n *scriptast.Node) error {
	if e.Ctx.IsConstant(n.Name) {
		return oreerr.NewType(loc(n), "cannot assign to constant %q", n.Name)
	}
	if err := e.evalExpr(ctx, n.Children[0]); err != nil {
		return err
	}
	idxVal := e.popValue()
	idx, err := e.resolveIndex(n, idxVal)
	if err != nil {
		return err
	}
	arr, declared, err := e.Ctx.Array(n.Name)
	if err != nil {
		return oreerr.NewType(loc(n), "%v", err)
	}
	if !declared {
		return oreerr.NewType(loc(n), "array %q not declared", n.Name)
	}
	if idx < 1 || idx > len(arr) {
		return oreerr.NewBounds(loc(n), "index %d out of range for array %q of size %d", idx, n.Name, len(arr))
	}
	if err := e.evalExpr(ctx, n.Children[1]); err != nil {
		return err
	}
	rhs := e.popValue()
	newVal, err := e.maskedAssign(n, arr[idx-1], rhs)
	if err != nil {
		return err
	}
	if _, err := e.Ctx.SetArrayElement(n.Name, idx-1, newVal); err != nil {
		return oreerr.NewType(loc(n), "%v", err)
	}
	return nil
}

// maskedAssign implements assignment contract: Number targets
// become select(mask, rhs, current); Event/Currency/Index/DayCounter
// targets require rhs to already match current wherever mask holds.
func (e *Engine) maskedAssign(n *scriptast.Node, cur, rhs valuetype.ValueType) (valuetype.ValueType, error) {
	mask := e.topFilter()
	if cur.Kind == valuetype.KindNumber {
		rhsRV, err := rhs.CheckNumeric()
		if err != nil {
			return valuetype.ValueType{}, oreerr.NewType(loc(n), "numeric target requires Number source: %v", err)
		}
		result := randomvar.Select(mask, rhsRV, cur.Number)
		result.UpdateDeterministic()
		return valuetype.FromNumber(result), nil
	}
	if !valuetype.AssignableTo(rhs.Kind, cur.Kind) {
		return valuetype.ValueType{}, oreerr.NewType(loc(n), "cannot assign %s into %s target", rhs.Kind, cur.Kind)
	}
	if mask.AllFalse() {
		return cur, nil
	}
	if !sameNonNumeric(cur, rhs) {
		return valuetype.ValueType{}, oreerr.NewType(loc(n), "type-safe assign failed: %s target value differs from source under active mask", cur.Kind)
	}
	return cur, nil
}

func sameNonNumeric(a, b valuetype.ValueType) bool {
	switch a.Kind {
	case valuetype.KindEvent:
		return a.Event.Equal(b.Event)
	case valuetype.KindCurrency:
		return a.Currency == b.Currency
	case valuetype.KindIndex:
		return a.Index == b.Index
	case valuetype.KindDayCounter:
		return a.DayCount == b.DayCount
	}
	return false
}

func (e *Engine) resolveIndex(n *scriptast.Node, v valuetype.ValueType) (int, error) {
	rv, err := v.CheckNumeric()
	if err != nil {
		return 0, oreerr.NewType(loc(n), "subscript must be Number: %v", err)
	}
	if !rv.Deterministic() {
		return 0, oreerr.NewBounds(loc(n), "subscript must be deterministic")
	}
	return int(rv.At(0)), nil
}

func (e *Engine) evalIf(ctx context.Context, n *scriptast.Node) error {
	if err := e.evalExpr(ctx, n.Children[0]); err != nil {
		return err
	}
	condVal := e.popValue()
	cond, err := condVal.CheckFilter()
	if err != nil {
		return oreerr.NewType(loc(n), "IF condition must be Filter: %v", err)
	}
	mask := randomvar.And(e.topFilter(), cond)
	e.pushFilter(mask)
	if !(mask.Deterministic() && !mask.At(0)) {
		if err := e.evalStmt(ctx, n.Children[1]); err != nil {
			e.popFilter()
			return err
		}
	}
	e.popFilter()

	if len(n.Children) > 2 {
		notMask := randomvar.And(e.topFilter(), randomvar.Not(cond))
		e.pushFilter(notMask)
		if !(notMask.Deterministic() && !notMask.At(0)) {
			if err := e.evalStmt(ctx, n.Children[2]); err != nil {
				e.popFilter()
				return err
			}
		}
		e.popFilter()
	}
	return nil
}

func (e *Engine) evalFor(ctx context.Context, n *scriptast.Node) error {
	if e.Ctx.IsConstant(n.Name) {
		return oreerr.NewType(loc(n), "FOR loop variable %q must not be constant", n.Name)
	}
	if _, declared, err := e.Ctx.Scalar(n.Name); err != nil || !declared {
		return oreerr.NewType(loc(n), "FOR loop variable %q must be declared with NUMBER before use", n.Name)
	}
	from, err := e.evalDeterministicNumber(ctx, n.Children[0])
	if err != nil {
		return err
	}
	to, err := e.evalDeterministicNumber(ctx, n.Children[1])
	if err != nil {
		return err
	}
	step, err := e.evalDeterministicNumber(ctx, n.Children[2])
	if err != nil {
		return err
	}
	if step == 0 {
		return oreerr.NewBounds(loc(n), "FOR step must not be 0")
	}
	size := e.Model.Size()
	for cl := from; (step > 0 && cl <= to) || (step < 0 && cl >= to); cl += step {
		if _, err := e.Ctx.SetScalar(n.Name, valuetype.FromNumber(randomvar.NewDeterministic(size, cl))); err != nil {
			return oreerr.NewType(loc(n), "%v", err)
		}
		if err := e.evalStmt(ctx, n.Children[3]); err != nil {
			return err
		}
		after, declared, err := e.Ctx.Scalar(n.Name)
		if err != nil || !declared {
			return oreerr.NewType(loc(n), "FOR loop variable %q became invalid", n.Name)
		}
		afterRV, err := after.CheckNumeric()
		if err != nil || !afterRV.Deterministic() || afterRV.At(0) != cl {
			return oreerr.NewBounds(loc(n), "FOR loop variable %q must not be modified inside the loop body", n.Name)
		}
	}
	return nil
}

func (e *Engine) evalDeterministicNumber(ctx context.Context, n *scriptast.Node) (float64, error) {
	if err := e.evalExpr(ctx, n); err != nil {
		return 0, err
	}
	v := e.popValue()
	rv, err := v.CheckNumeric()
	if err != nil {
		return 0, oreerr.NewType(loc(n), "expected Number: %v", err)
	}
	if !rv.Deterministic() {
		return 0, oreerr.NewBounds(loc(n), "expected deterministic Number")
	}
	return rv.At(0), nil
}

// evalExpr evaluates n and pushes exactly one ValueType.
func (e *Engine) evalExpr(ctx context.Context, n *scriptast.Node) error {
	if err := e.checkpoint(ctx, n); err != nil {
		return err
	}
	switch n.Kind {
	case scriptast.KindNumberLit:
		e.pushValue(valuetype.FromNumber(randomvar.NewDeterministic(e.Model.Size(), n.NumberValue)))
		return nil
	case scriptast.KindIdent:
		return e.evalIdent(n)
	case scriptast.KindSubscript:
		return e.evalSubscriptRead(ctx, n)
	case scriptast.KindUnaryMinus:
		return e.evalUnaryNumeric(ctx, n, randomvar.Neg)
	case scriptast.KindNot:
		return e.evalUnaryFilter(ctx, n)
	case scriptast.KindAdd:
		return e.evalBinaryNumeric(ctx, n, randomvar.Add)
	case scriptast.KindSub:
		return e.evalBinaryNumeric(ctx, n, randomvar.Sub)
	case scriptast.KindMul:
		return e.evalBinaryNumeric(ctx, n, randomvar.Mul)
	case scriptast.KindDiv:
		return e.evalBinaryNumeric(ctx, n, randomvar.Div)
	case scriptast.KindEq:
		return e.evalCompare(ctx, n, randomvar.Eq)
	case scriptast.KindNeq:
		return e.evalCompare(ctx, n, randomvar.Neq)
	case scriptast.KindLt:
		return e.evalCompare(ctx, n, randomvar.Lt)
	case scriptast.KindLte:
		return e.evalCompare(ctx, n, randomvar.Lte)
	case scriptast.KindGt:
		return e.evalCompare(ctx, n, randomvar.Gt)
	case scriptast.KindGte:
		return e.evalCompare(ctx, n, randomvar.Gte)
	case scriptast.KindAnd:
		return e.evalShortCircuit(ctx, n, true)
	case scriptast.KindOr:
		return e.evalShortCircuit(ctx, n, false)
	case scriptast.KindCall:
		return e.evalCall(ctx, n)
	default:
		return oreerr.NewType(loc(n), "node kind %d is not an expression", n.Kind)
	}
}

func (e *Engine) evalIdent(n *scriptast.Node) error {
	if isArray, ok := n.CachedResolution(); ok {
		if isArray {
			return oreerr.NewType(loc(n), "array %q used without subscript", n.Name)
		}
	}
	v, declared, err := e.Ctx.Scalar(n.Name)
	if err != nil {
		n.CacheResolution(true)
		return oreerr.NewType(loc(n), "%v", err)
	}
	if !declared {
		return oreerr.NewType(loc(n), "undeclared variable %q", n.Name)
	}
	n.CacheResolution(false)
	e.pushValue(v)
	return nil
}

func (e *Engine) evalSubscriptRead(ctx context.Context, n *scriptast.Node) error {
	if err := e.evalExpr(ctx, n.Children[0]); err != nil {
		return err
	}
	idxVal := e.popValue()
	idx, err := e.resolveIndex(n, idxVal)
	if err != nil {
		return err
	}
	arr, declared, err := e.Ctx.Array(n.Name)
	if err != nil {
		return oreerr.NewType(loc(n), "%v", err)
	}
	if !declared {
		return oreerr.NewType(loc(n), "undeclared array %q", n.Name)
	}
	n.CacheResolution(true)
	if idx < 1 || idx > len(arr) {
		return oreerr.NewBounds(loc(n), "index %d out of range for array %q of size %d", idx, n.Name, len(arr))
	}
	e.pushValue(arr[idx-1])
	return nil
}

func (e *Engine) evalUnaryNumeric(ctx context.Context, n *scriptast.Node, f func(randomvar.RandomVariable) randomvar.RandomVariable) error {
	if err := e.evalExpr(ctx, n.Children[0]); err != nil {
		return err
	}
	v := e.popValue()
	rv, err := v.CheckNumeric()
	if err != nil {
		return oreerr.NewType(loc(n), "%v", err)
	}
	e.pushValue(valuetype.FromNumber(f(rv)))
	return nil
}

func (e *Engine) evalUnaryFilter(ctx context.Context, n *scriptast.Node) error {
	if err := e.evalExpr(ctx, n.Children[0]); err != nil {
		return err
	}
	v := e.popValue()
	fv, err := v.CheckFilter()
	if err != nil {
		return oreerr.NewType(loc(n), "%v", err)
	}
	e.pushValue(valuetype.FromFilter(randomvar.Not(fv)))
	return nil
}

func (e *Engine) evalBinaryNumeric(ctx context.Context, n *scriptast.Node, f func(a, b randomvar.RandomVariable) randomvar.RandomVariable) error {
	if err := e.evalExpr(ctx, n.Children[0]); err != nil {
		return err
	}
	lhs := e.popValue()
	if err := e.evalExpr(ctx, n.Children[1]); err != nil {
		return err
	}
	rhs := e.popValue()
	lv, err := lhs.CheckNumeric()
	if err != nil {
		return oreerr.NewType(loc(n), "left operand: %v", err)
	}
	rv, err := rhs.CheckNumeric()
	if err != nil {
		return oreerr.NewType(loc(n), "right operand: %v", err)
	}
	e.pushValue(valuetype.FromNumber(f(lv, rv)))
	return nil
}

func (e *Engine) evalCompare(ctx context.Context, n *scriptast.Node, f func(a, b randomvar.RandomVariable) randomvar.Filter) error {
	if err := e.evalExpr(ctx, n.Children[0]); err != nil {
		return err
	}
	lhs := e.popValue()
	if err := e.evalExpr(ctx, n.Children[1]); err != nil {
		return err
	}
	rhs := e.popValue()
	lv, err := lhs.CheckNumeric()
	if err != nil {
		return oreerr.NewType(loc(n), "left operand: %v", err)
	}
	rv, err := rhs.CheckNumeric()
	if err != nil {
		return oreerr.NewType(loc(n), "right operand: %v", err)
	}
	e.pushValue(valuetype.FromFilter(f(lv, rv)))
	return nil
}

// evalShortCircuit implements AND/OR: when the left operand is a
// deterministic absorbing value (false for AND, true for OR) the right
// operand is never evaluated, so its side effects (e.g. a nested call
// with REQUIRE-like effects) genuinely do not occur, not merely get
// discarded.
func (e *Engine) evalShortCircuit(ctx context.Context, n *scriptast.Node, isAnd bool) error {
	if err := e.evalExpr(ctx, n.Children[0]); err != nil {
		return err
	}
	lhs := e.popValue()
	lf, err := lhs.CheckFilter()
	if err != nil {
		return oreerr.NewType(loc(n), "left operand: %v", err)
	}
	if lf.Deterministic() {
		absorbing := !lf.At(0)
		if !isAnd {
			absorbing = lf.At(0)
		}
		if absorbing {
			e.pushValue(valuetype.FromFilter(lf))
			return nil
		}
		if err := e.evalExpr(ctx, n.Children[1]); err != nil {
			return err
		}
		rhs := e.popValue()
		rf, err := rhs.CheckFilter()
		if err != nil {
			return oreerr.NewType(loc(n), "right operand: %v", err)
		}
		e.pushValue(valuetype.FromFilter(rf))
		return nil
	}
	if err := e.evalExpr(ctx, n.Children[1]); err != nil {
		return err
	}
	rhs := e.popValue()
	rf, err := rhs.CheckFilter()
	if err != nil {
		return oreerr.NewType(loc(n), "right operand: %v", err)
	}
	if isAnd {
		e.pushValue(valuetype.FromFilter(randomvar.And(lf, rf)))
	} else {
		e.pushValue(valuetype.FromFilter(randomvar.Or(lf, rf)))
	}
	return nil
}

func (e *Engine) evalRequire(ctx context.Context, n *scriptast.Node) error {
	if err := e.evalExpr(ctx, n.Children[0]); err != nil {
		return err
	}
	v := e.popValue()
	cond, err := v.CheckFilter()
	if err != nil {
		return oreerr.NewType(loc(n), "REQUIRE condition must be Filter: %v", err)
	}
	mask := e.topFilter()
	implication := randomvar.Or(randomvar.Not(mask), cond)
	if !implication.AllTrue() {
		return oreerr.NewRequire(loc(n), "REQUIRE predicate failed under active mask")
	}
	return nil
}
