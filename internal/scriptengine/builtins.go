package scriptengine

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/wyfcoding/ore/internal/model"
	"github.com/wyfcoding/ore/internal/oreerr"
	"github.com/wyfcoding/ore/internal/randomvar"
	"github.com/wyfcoding/ore/internal/scriptast"
	"github.com/wyfcoding/ore/internal/valuetype"
)

// evalCall dispatches a function-call node to a built-in. Every built-in
// pushes exactly one ValueType, matching evalExpr's contract; SORT and
// PERMUTE (invoked only as bare statements) push a deterministic zero and
// rely on evalStmt's KindCall case to discard it.
func (e *Engine) evalCall(ctx context.Context, n *scriptast.Node) error {
	name := strings.ToUpper(n.Name)
	switch name {
	case "PAY":
		return e.callPay(ctx, n, "Pay", 0, -1)
	case "LOGPAY":
		return e.callLogPay(ctx, n)
	case "NPV":
		return e.callNpv(ctx, n, nil)
	case "NPVMEM":
		return e.callNpvMem(ctx, n)
	case "DISCOUNT":
		return e.callDiscount(ctx, n)
	case "BLACK":
		return e.callBlack(ctx, n)
	case "FWDCOMP":
		return e.callFwdCompAvg(ctx, n, false)
	case "FWDAVG":
		return e.callFwdCompAvg(ctx, n, true)
	case "ABOVEPROB":
		return e.callBarrierProb(ctx, n, true)
	case "BELOWPROB":
		return e.callBarrierProb(ctx, n, false)
	case "INDEXEVAL":
		return e.callIndexEval(ctx, n)
	case "HISTFIXING":
		return e.callHistFixing(ctx, n)
	case "SIZE":
		return e.callSize(n)
	case "DATEINDEX":
		return e.callDateIndex(ctx, n)
	case "SORT":
		return e.callSort(n)
	case "PERMUTE":
		return e.callPermute(n)
	case "ABS":
		return e.callUnaryNumeric(ctx, n, randomvar.Abs)
	case "EXP":
		return e.callUnaryNumeric(ctx, n, randomvar.Exp)
	case "LOG":
		return e.callUnaryNumeric(ctx, n, randomvar.Log)
	case "SQRT":
		return e.callUnaryNumeric(ctx, n, randomvar.Sqrt)
	case "NORMALCDF":
		return e.callUnaryNumeric(ctx, n, randomvar.NormalCdf)
	case "NORMALPDF":
		return e.callUnaryNumeric(ctx, n, randomvar.NormalPdf)
	case "POW":
		return e.callBinaryNumeric(ctx, n, randomvar.Pow)
	case "MIN":
		return e.callBinaryNumeric(ctx, n, randomvar.Min)
	case "MAX":
		return e.callBinaryNumeric(ctx, n, randomvar.Max)
	default:
		return oreerr.NewParse(loc(n), "unknown function %q", n.Name)
	}
}

func (e *Engine) argCount(n *scriptast.Node, want int) error {
	if len(n.Children) != want {
		return oreerr.NewType(loc(n), "%s expects %d argument(s), got %d", n.Name, want, len(n.Children))
	}
	return nil
}

func (e *Engine) evalNumberArg(ctx context.Context, n *scriptast.Node, idx int) (randomvar.RandomVariable, error) {
	return e.evalNumberAt(ctx, n, n.Children, idx)
}

func (e *Engine) evalNumberAt(ctx context.Context, n *scriptast.Node, args []*scriptast.Node, idx int) (randomvar.RandomVariable, error) {
	if err := e.evalExpr(ctx, args[idx]); err != nil {
		return randomvar.RandomVariable{}, err
	}
	v := e.popValue()
	rv, err := v.CheckNumeric()
	if err != nil {
		return randomvar.RandomVariable{}, oreerr.NewType(loc(n), "%s argument %d: %v", n.Name, idx+1, err)
	}
	return rv, nil
}

func (e *Engine) evalEventArg(ctx context.Context, n *scriptast.Node, idx int) (time.Time, error) {
	return e.evalEventAt(ctx, n, n.Children, idx)
}

func (e *Engine) evalEventAt(ctx context.Context, n *scriptast.Node, args []*scriptast.Node, idx int) (time.Time, error) {
	if err := e.evalExpr(ctx, args[idx]); err != nil {
		return time.Time{}, err
	}
	v := e.popValue()
	t, err := v.CheckEvent()
	if err != nil {
		return time.Time{}, oreerr.NewType(loc(n), "%s argument %d: %v", n.Name, idx+1, err)
	}
	return t, nil
}

func (e *Engine) evalCurrencyArg(ctx context.Context, n *scriptast.Node, idx int) (string, error) {
	return e.evalCurrencyAt(ctx, n, n.Children, idx)
}

func (e *Engine) evalCurrencyAt(ctx context.Context, n *scriptast.Node, args []*scriptast.Node, idx int) (string, error) {
	if err := e.evalExpr(ctx, args[idx]); err != nil {
		return "", err
	}
	v := e.popValue()
	c, err := v.CheckCurrency()
	if err != nil {
		return "", oreerr.NewType(loc(n), "%s argument %d: %v", n.Name, idx+1, err)
	}
	return c, nil
}

func (e *Engine) evalIndexArg(ctx context.Context, n *scriptast.Node, idx int) (string, error) {
	if err := e.evalExpr(ctx, n.Children[idx]); err != nil {
		return "", err
	}
	v := e.popValue()
	ix, err := v.CheckIndex()
	if err != nil {
		return "", oreerr.NewType(loc(n), "%s argument %d: %v", n.Name, idx+1, err)
	}
	return ix, nil
}

func (e *Engine) deterministicInt(rv randomvar.RandomVariable, n *scriptast.Node, what string) (int, error) {
	if !rv.Deterministic() {
		return 0, oreerr.NewBounds(loc(n), "%s must be deterministic", what)
	}
	return int(rv.At(0)), nil
}

// doPay implements pay contract: a payment on or before the
// reference date is a deterministic zero (testable property #6), and is
// still logged with its raw amount when logged is true.
func (e *Engine) doPay(ctx context.Context, n *scriptast.Node, args []*scriptast.Node, logged bool, cashflowType string, legNo, slot int) error {
	amount, err := e.evalNumberAt(ctx, n, args, 0)
	if err != nil {
		return err
	}
	obs, err := e.evalEventAt(ctx, n, args, 1)
	if err != nil {
		return err
	}
	payDate, err := e.evalEventAt(ctx, n, args, 2)
	if err != nil {
		return err
	}
	ccy, err := e.evalCurrencyAt(ctx, n, args, 3)
	if err != nil {
		return err
	}

	var pv randomvar.RandomVariable
	if !payDate.After(e.Model.ReferenceDate()) {
		pv = randomvar.NewDeterministic(e.Model.Size(), 0)
	} else {
		if payDate.Before(obs) {
			return oreerr.NewModel(loc(n), nil, "pay date %s before obs date %s", payDate, obs)
		}
		pv, err = e.Model.Pay(amount, obs, payDate, ccy)
		if err != nil {
			return oreerr.NewModel(loc(n), err, "pay")
		}
	}
	if logged {
		mask := e.topFilter()
		masked := randomvar.Select(mask, amount, randomvar.NewDeterministic(amount.Size(), 0))
		e.Log.Append(PayLogEntry{Amount: masked, Mask: mask, Obs: obs, Pay: payDate, Currency: ccy, LegNo: legNo, CashflowType: cashflowType, Slot: slot})
	}
	e.pushValue(valuetype.FromNumber(pv))
	return nil
}

func (e *Engine) callPay(ctx context.Context, n *scriptast.Node, cashflowType string, legNo, slot int) error {
	if err := e.argCount(n, 4); err != nil {
		return err
	}
	return e.doPay(ctx, n, n.Children, false, cashflowType, legNo, slot)
}

// callLogPay handles logpay's optional trailing legNo/cashflowTypeName/slot
// block: 4 args (base), 5 (+legNo), or 7 (+legNo, cashflowTypeName, slot).
// cashflowTypeName is carried on an Index-kind value since the DSL's value
// system has no dedicated generic string variant (see DESIGN.md).
func (e *Engine) callLogPay(ctx context.Context, n *scriptast.Node) error {
	switch len(n.Children) {
	case 4:
		return e.doPay(ctx, n, n.Children, true, "LogPay", 0, -1)
	case 5:
		legRV, err := e.evalNumberArg(ctx, n, 4)
		if err != nil {
			return err
		}
		legNo, err := e.deterministicInt(legRV, n, "LOGPAY leg number")
		if err != nil {
			return err
		}
		return e.doPay(ctx, n, n.Children[:4], true, "LogPay", legNo, -1)
	case 7:
		legRV, err := e.evalNumberArg(ctx, n, 4)
		if err != nil {
			return err
		}
		legNo, err := e.deterministicInt(legRV, n, "LOGPAY leg number")
		if err != nil {
			return err
		}
		typeName, err := e.evalIndexArg(ctx, n, 5)
		if err != nil {
			return err
		}
		slotRV, err := e.evalNumberArg(ctx, n, 6)
		if err != nil {
			return err
		}
		slot, err := e.deterministicInt(slotRV, n, "LOGPAY slot")
		if err != nil {
			return err
		}
		return e.doPay(ctx, n, n.Children[:4], true, typeName, legNo, slot)
	default:
		return oreerr.NewType(loc(n), "LOGPAY expects 4, 5, or 7 arguments, got %d", len(n.Children))
	}
}

func (e *Engine) callNpv(ctx context.Context, n *scriptast.Node, slot *int) error {
	if err := e.argCount(n, 2); err != nil {
		return err
	}
	return e.doNpv(ctx, n, n.Children, slot)
}

func (e *Engine) doNpv(ctx context.Context, n *scriptast.Node, args []*scriptast.Node, slot *int) error {
	amount, err := e.evalNumberAt(ctx, n, args, 0)
	if err != nil {
		return err
	}
	obs, err := e.evalEventAt(ctx, n, args, 1)
	if err != nil {
		return err
	}
	//: the observation date is clamped up to referenceDate() — NPV is
	// never asked for in the past.
	if obs.Before(e.Model.ReferenceDate()) {
		obs = e.Model.ReferenceDate()
	}
	opts := model.NpvOptions{MemorySlot: slot}
	out, err := e.Model.Npv(amount, obs, opts)
	if err != nil {
		return oreerr.NewModel(loc(n), err, "npv")
	}
	e.pushValue(valuetype.FromNumber(out))
	return nil
}

func (e *Engine) callNpvMem(ctx context.Context, n *scriptast.Node) error {
	if err := e.argCount(n, 3); err != nil {
		return err
	}
	slotRV, err := e.evalNumberArg(ctx, n, 2)
	if err != nil {
		return err
	}
	slot, err := e.deterministicInt(slotRV, n, "NPVMEM slot")
	if err != nil {
		return err
	}
	return e.doNpv(ctx, n, n.Children[:2], &slot)
}

func (e *Engine) callDiscount(ctx context.Context, n *scriptast.Node) error {
	if err := e.argCount(n, 3); err != nil {
		return err
	}
	obs, err := e.evalEventArg(ctx, n, 0)
	if err != nil {
		return err
	}
	payDate, err := e.evalEventArg(ctx, n, 1)
	if err != nil {
		return err
	}
	ccy, err := e.evalCurrencyArg(ctx, n, 2)
	if err != nil {
		return err
	}
	df, err := e.Model.Discount(obs, payDate, ccy)
	if err != nil {
		return oreerr.NewModel(loc(n), err, "discount")
	}
	e.pushValue(valuetype.FromNumber(df))
	return nil
}

// callBlack implements black(cp, obsDate, expiryDate, strike, forward,
// vol), requiring obs <= expiry and computing dt via the model's day
// count rather than accepting a caller-supplied year fraction.
func (e *Engine) callBlack(ctx context.Context, n *scriptast.Node) error {
	if err := e.argCount(n, 6); err != nil {
		return err
	}
	cpRV, err := e.evalNumberArg(ctx, n, 0)
	if err != nil {
		return err
	}
	cpInt, err := e.deterministicInt(cpRV, n, "BLACK call/put flag")
	if err != nil {
		return err
	}
	cp := model.Put
	if cpInt > 0 {
		cp = model.Call
	}
	obs, err := e.evalEventArg(ctx, n, 1)
	if err != nil {
		return err
	}
	expiry, err := e.evalEventArg(ctx, n, 2)
	if err != nil {
		return err
	}
	if expiry.Before(obs) {
		return oreerr.NewModel(loc(n), nil, "BLACK expiry %s before obs %s", expiry, obs)
	}
	strike, err := e.evalNumberArg(ctx, n, 3)
	if err != nil {
		return err
	}
	fwd, err := e.evalNumberArg(ctx, n, 4)
	if err != nil {
		return err
	}
	vol, err := e.evalNumberArg(ctx, n, 5)
	if err != nil {
		return err
	}
	if !strike.Deterministic() || !fwd.Deterministic() || !vol.Deterministic() {
		return oreerr.NewBounds(loc(n), "BLACK strike/forward/vol must be deterministic")
	}
	dt := e.Model.Dt(obs, expiry)
	price := model.Black76(cp, dt, strike.At(0), fwd.At(0), vol.At(0))
	e.pushValue(valuetype.FromNumber(randomvar.NewDeterministic(e.Model.Size(), price)))
	return nil
}

// flagArg reads a deterministic ±1 boolean-encoded Number argument, per
// requirement that includeSpread/nakedOption/localCapFloor are
// encoded as +1/-1 and must be deterministic.
func (e *Engine) flagArg(ctx context.Context, n *scriptast.Node, idx int, what string) (bool, error) {
	rv, err := e.evalNumberArg(ctx, n, idx)
	if err != nil {
		return false, err
	}
	if !rv.Deterministic() {
		return false, oreerr.NewBounds(loc(n), "%s must be deterministic", what)
	}
	v := rv.At(0)
	if v == 1 {
		return true, nil
	}
	if v == -1 {
		return false, nil
	}
	return false, oreerr.NewType(loc(n), "%s must be +1 or -1, got %v", what, v)
}

// callFwdCompAvg implements fwdComp/fwdAvg with its cumulative optional
// blocks: base (4 args), +spread/gearing (6), +lookback block (10),
// +cap/floor block (14). A block present means every argument of the
// prior blocks up to it must also be present
func (e *Engine) callFwdCompAvg(ctx context.Context, n *scriptast.Node, isAverage bool) error {
	nargs := len(n.Children)
	if nargs != 4 && nargs != 6 && nargs != 10 && nargs != 14 {
		return oreerr.NewType(loc(n), "fwdComp/fwdAvg expects 4, 6, 10, or 14 arguments, got %d", nargs)
	}
	index, err := e.evalIndexArg(ctx, n, 0)
	if err != nil {
		return err
	}
	obs, err := e.evalEventArg(ctx, n, 1)
	if err != nil {
		return err
	}
	start, err := e.evalEventArg(ctx, n, 2)
	if err != nil {
		return err
	}
	end, err := e.evalEventArg(ctx, n, 3)
	if err != nil {
		return err
	}
	p := model.FwdCompParams{IsAverage: isAverage, Index: index, Obs: obs, Start: start, End: end}

	if nargs >= 6 {
		p.HasSpreadGearing = true
		spreadRV, err := e.evalNumberArg(ctx, n, 4)
		if err != nil {
			return err
		}
		gearingRV, err := e.evalNumberArg(ctx, n, 5)
		if err != nil {
			return err
		}
		if !spreadRV.Deterministic() || !gearingRV.Deterministic() {
			return oreerr.NewBounds(loc(n), "fwdComp/fwdAvg spread/gearing must be deterministic")
		}
		p.Spread, p.Gearing = spreadRV.At(0), gearingRV.At(0)
	}
	if nargs >= 10 {
		p.HasLookbackBlock = true
		lookbackRV, err := e.evalNumberArg(ctx, n, 6)
		if err != nil {
			return err
		}
		cutoffRV, err := e.evalNumberArg(ctx, n, 7)
		if err != nil {
			return err
		}
		fixingDaysRV, err := e.evalNumberArg(ctx, n, 8)
		if err != nil {
			return err
		}
		if !lookbackRV.Deterministic() || !cutoffRV.Deterministic() || !fixingDaysRV.Deterministic() {
			return oreerr.NewBounds(loc(n), "fwdComp/fwdAvg lookback block must be deterministic")
		}
		p.Lookback = int(lookbackRV.At(0))
		p.RateCutoff = int(cutoffRV.At(0))
		p.FixingDays = int(fixingDaysRV.At(0))
		p.IncludeSpread, err = e.flagArg(ctx, n, 9, "includeSpread")
		if err != nil {
			return err
		}
	}
	if nargs >= 14 {
		p.HasCapFloorBlock = true
		capRV, err := e.evalNumberArg(ctx, n, 10)
		if err != nil {
			return err
		}
		floorRV, err := e.evalNumberArg(ctx, n, 11)
		if err != nil {
			return err
		}
		if !capRV.Deterministic() || !floorRV.Deterministic() {
			return oreerr.NewBounds(loc(n), "fwdComp/fwdAvg cap/floor must be deterministic")
		}
		p.Cap, p.Floor = capRV.At(0), floorRV.At(0)
		p.NakedOption, err = e.flagArg(ctx, n, 12, "nakedOption")
		if err != nil {
			return err
		}
		p.LocalCapFloor, err = e.flagArg(ctx, n, 13, "localCapFloor")
		if err != nil {
			return err
		}
	}

	out, err := e.Model.FwdCompAvg(p)
	if err != nil {
		return oreerr.NewModel(loc(n), err, "fwdCompAvg")
	}
	e.pushValue(valuetype.FromNumber(out))
	return nil
}

func (e *Engine) callBarrierProb(ctx context.Context, n *scriptast.Node, above bool) error {
	if err := e.argCount(n, 4); err != nil {
		return err
	}
	index, err := e.evalIndexArg(ctx, n, 0)
	if err != nil {
		return err
	}
	obs1, err := e.evalEventArg(ctx, n, 1)
	if err != nil {
		return err
	}
	obs2, err := e.evalEventArg(ctx, n, 2)
	if err != nil {
		return err
	}
	barrierRV, err := e.evalNumberArg(ctx, n, 3)
	if err != nil {
		return err
	}
	if !barrierRV.Deterministic() {
		return oreerr.NewBounds(loc(n), "barrier level must be deterministic")
	}
	out, err := e.Model.BarrierProbability(index, obs1, obs2, barrierRV.At(0), above)
	if err != nil {
		return oreerr.NewModel(loc(n), err, "barrierProbability")
	}
	e.pushValue(valuetype.FromNumber(out))
	return nil
}

// callIndexEval handles indexEval(index, obsDate[, fwdDate]). A supplied
// fwdDate must be strictly after obsDate; equal dates are treated as no
// forward date being given at all.
func (e *Engine) callIndexEval(ctx context.Context, n *scriptast.Node) error {
	if len(n.Children) != 2 && len(n.Children) != 3 {
		return oreerr.NewType(loc(n), "INDEXEVAL expects 2 or 3 arguments, got %d", len(n.Children))
	}
	index, err := e.evalIndexArg(ctx, n, 0)
	if err != nil {
		return err
	}
	obs, err := e.evalEventArg(ctx, n, 1)
	if err != nil {
		return err
	}
	var fwdPtr *time.Time
	if len(n.Children) == 3 {
		fwd, err := e.evalEventArg(ctx, n, 2)
		if err != nil {
			return err
		}
		if fwd.After(obs) {
			fwdPtr = &fwd
		}
	}
	out, err := e.Model.Eval(index, obs, fwdPtr)
	if err != nil {
		return oreerr.NewModel(loc(n), err, "eval")
	}
	e.pushValue(valuetype.FromNumber(out))
	return nil
}

func (e *Engine) callHistFixing(ctx context.Context, n *scriptast.Node) error {
	if err := e.argCount(n, 2); err != nil {
		return err
	}
	index, err := e.evalIndexArg(ctx, n, 0)
	if err != nil {
		return err
	}
	obs, err := e.evalEventArg(ctx, n, 1)
	if err != nil {
		return err
	}
	found, err := e.Model.HistoricalFixing(index, obs)
	if err != nil {
		return oreerr.NewModel(loc(n), err, "historicalFixing")
	}
	e.pushValue(valuetype.FromFilter(randomvar.NewFilterDeterministic(e.Model.Size(), found)))
	return nil
}

// callSize reads the declared length of an array argument without
// evaluating it as a value, since SIZE's argument names a vector rather
// than producing one.
func (e *Engine) callSize(n *scriptast.Node) error {
	if err := e.argCount(n, 1); err != nil {
		return err
	}
	arg := n.Children[0]
	if arg.Kind != scriptast.KindIdent {
		return oreerr.NewType(loc(n), "SIZE expects an array name")
	}
	size, declared := e.Ctx.ArrayLen(arg.Name)
	if !declared {
		return oreerr.NewType(loc(n), "SIZE: %q is not a declared array", arg.Name)
	}
	e.pushValue(valuetype.FromNumber(randomvar.NewDeterministic(e.Model.Size(), float64(size))))
	return nil
}

// callDateIndex implements DATEINDEX(target, array, op): it searches the
// Event array for the first element matching target under the comparator
// stashed in n.Op (EQ/GEQ/GT), returning its 1-based index or 0 if none
// matches.
func (e *Engine) callDateIndex(ctx context.Context, n *scriptast.Node) error {
	if len(n.Children) != 2 {
		return oreerr.NewType(loc(n), "DATEINDEX expects 2 arguments")
	}
	arrNode := n.Children[1]
	if arrNode.Kind != scriptast.KindIdent {
		return oreerr.NewType(loc(n), "DATEINDEX expects an array name")
	}
	arr, declared, err := e.Ctx.Array(arrNode.Name)
	if err != nil {
		return oreerr.NewType(loc(n), "%v", err)
	}
	if !declared {
		return oreerr.NewType(loc(n), "DATEINDEX: %q is not a declared array", arrNode.Name)
	}
	target, err := e.evalEventArg(ctx, n, 0)
	if err != nil {
		return err
	}
	op := strings.ToUpper(n.Op)
	if op == "" {
		op = "EQ"
	}
	found := 0
	for i, elem := range arr {
		d, err := elem.CheckEvent()
		if err != nil {
			return oreerr.NewType(loc(n), "DATEINDEX: array %q element %d is not an Event", arrNode.Name, i+1)
		}
		match := false
		switch op {
		case "EQ":
			match = d.Equal(target)
		case "GEQ":
			match = !d.Before(target)
		case "GT":
			match = d.After(target)
		default:
			return oreerr.NewParse(loc(n), "DATEINDEX: unknown comparator %q", n.Op)
		}
		if match {
			found = i + 1
			break
		}
	}
	e.pushValue(valuetype.FromNumber(randomvar.NewDeterministic(e.Model.Size(), float64(found))))
	return nil
}

// identArrayArg resolves argument idx of n as a declared array, requiring
// it to be an identifier and, when want >= 0, matching length want.
func (e *Engine) identArrayArg(n *scriptast.Node, idx int, builtin string, want int) ([]valuetype.ValueType, string, error) {
	node := n.Children[idx]
	if node.Kind != scriptast.KindIdent {
		return nil, "", oreerr.NewType(loc(n), "%s expects an array name", builtin)
	}
	arr, declared, err := e.Ctx.Array(node.Name)
	if err != nil {
		return nil, "", oreerr.NewType(loc(n), "%v", err)
	}
	if !declared {
		return nil, "", oreerr.NewType(loc(n), "%s: %q is not a declared array", builtin, node.Name)
	}
	if want >= 0 && len(arr) != want {
		return nil, "", oreerr.NewBounds(loc(n), "%s: array %q size %d must match size %d", builtin, node.Name, len(arr), want)
	}
	return arr, node.Name, nil
}

// callSort sorts the values of x ascending (the active filter is not
// consulted), writing the result into y (defaulting to x) and, if given, the 1-based
// permutation used into p: SORT(x), SORT(x, y), or SORT(x, y, p).
// Sorting under path-dependent (non-deterministic) lanes has no single
// well-defined order, so every element must be deterministic.
func (e *Engine) callSort(n *scriptast.Node) error {
	nargs := len(n.Children)
	if nargs < 1 || nargs > 3 {
		return oreerr.NewType(loc(n), "SORT expects 1 to 3 arguments, got %d", nargs)
	}
	arr, xName, err := e.identArrayArg(n, 0, "SORT", -1)
	if err != nil {
		return err
	}
	yName := xName
	pName := ""
	if nargs >= 2 {
		if _, yName, err = e.identArrayArg(n, 1, "SORT", len(arr)); err != nil {
			return err
		}
	}
	if nargs == 3 {
		if _, pName, err = e.identArrayArg(n, 2, "SORT", len(arr)); err != nil {
			return err
		}
	}

	type indexedVal struct {
		v   float64
		idx int
	}
	vals := make([]indexedVal, len(arr))
	for i, elem := range arr {
		rv, err := elem.CheckNumeric()
		if err != nil || !rv.Deterministic() {
			return oreerr.NewType(loc(n), "SORT: array %q element %d is not a deterministic Number", xName, i+1)
		}
		vals[i] = indexedVal{v: rv.At(0), idx: i}
	}
	sort.SliceStable(vals, func(i, j int) bool { return vals[i].v < vals[j].v })

	for i, sv := range vals {
		if _, err := e.Ctx.SetArrayElement(yName, i, valuetype.FromNumber(randomvar.NewDeterministic(e.Model.Size(), sv.v))); err != nil {
			return oreerr.NewType(loc(n), "%v", err)
		}
		if pName != "" {
			p := valuetype.FromNumber(randomvar.NewDeterministic(e.Model.Size(), float64(sv.idx+1)))
			if _, err := e.Ctx.SetArrayElement(pName, i, p); err != nil {
				return oreerr.NewType(loc(n), "%v", err)
			}
		}
	}
	e.pushValue(valuetype.FromNumber(randomvar.NewDeterministic(e.Model.Size(), 0)))
	return nil
}

// callPermute reorders x by the 1-based permutation p, writing into y:
// PERMUTE(x, y, p). In the 2-argument form PERMUTE(x, p), p takes the
// second position and y defaults to x (in place), per "if p absent:
// p←y, y←x".
func (e *Engine) callPermute(n *scriptast.Node) error {
	nargs := len(n.Children)
	if nargs < 2 || nargs > 3 {
		return oreerr.NewType(loc(n), "PERMUTE expects 2 or 3 arguments, got %d", nargs)
	}
	arr, xName, err := e.identArrayArg(n, 0, "PERMUTE", -1)
	if err != nil {
		return err
	}
	yName := xName
	permIdx := 1
	if nargs == 3 {
		if _, yName, err = e.identArrayArg(n, 1, "PERMUTE", len(arr)); err != nil {
			return err
		}
		permIdx = 2
	}
	perm, _, err := e.identArrayArg(n, permIdx, "PERMUTE", len(arr))
	if err != nil {
		return err
	}

	seen := make([]bool, len(arr))
	out := make([]valuetype.ValueType, len(arr))
	for i, p := range perm {
		rv, err := p.CheckNumeric()
		if err != nil || !rv.Deterministic() {
			return oreerr.NewType(loc(n), "PERMUTE: permutation element %d is not a deterministic Number", i+1)
		}
		idx := int(rv.At(0))
		if idx < 1 || idx > len(arr) {
			return oreerr.NewBounds(loc(n), "PERMUTE: permutation index %d out of range", idx)
		}
		if seen[idx-1] {
			return oreerr.NewBounds(loc(n), "PERMUTE: index %d used more than once", idx)
		}
		seen[idx-1] = true
		out[i] = arr[idx-1]
	}
	for i, v := range out {
		if _, err := e.Ctx.SetArrayElement(yName, i, v); err != nil {
			return oreerr.NewType(loc(n), "%v", err)
		}
	}
	e.pushValue(valuetype.FromNumber(randomvar.NewDeterministic(e.Model.Size(), 0)))
	return nil
}

func (e *Engine) callUnaryNumeric(ctx context.Context, n *scriptast.Node, f func(randomvar.RandomVariable) randomvar.RandomVariable) error {
	if err := e.argCount(n, 1); err != nil {
		return err
	}
	rv, err := e.evalNumberArg(ctx, n, 0)
	if err != nil {
		return err
	}
	e.pushValue(valuetype.FromNumber(f(rv)))
	return nil
}

func (e *Engine) callBinaryNumeric(ctx context.Context, n *scriptast.Node, f func(a, b randomvar.RandomVariable) randomvar.RandomVariable) error {
	if err := e.argCount(n, 2); err != nil {
		return err
	}
	a, err := e.evalNumberArg(ctx, n, 0)
	if err != nil {
		return err
	}
	b, err := e.evalNumberArg(ctx, n, 1)
	if err != nil {
		return err
	}
	e.pushValue(valuetype.FromNumber(f(a, b)))
	return nil
}
