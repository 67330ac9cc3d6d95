package valuation

import (
	"github.com/wyfcoding/ore/internal/scriptast"
	"github.com/wyfcoding/ore/internal/valuetype"
)

// Trade is one portfolio entry: a parsed payoff script and the Context it
// runs against. The script's convention is to assign its net payoff
// RandomVariable to a scalar named by ResultVar (defaults to "NPV");
// calculators read that scalar once the engine has run to completion.
type Trade struct {
	ID           string
	NettingSetID string
	Currency     string
	Script       *scriptast.Node
	Ctx          *valuetype.Context

	// ResultVarName overrides the default "NPV" result-variable name.
	ResultVarName string

	// StoreFlows selects cube depth 2 (NPV + cashflow) for this trade;
	// the driver enables the CashflowCalculator for the whole cube as
	// soon as any one trade requests it "depth 2 is
	// selected when storeFlows=true".
	StoreFlows bool
}

// ResultVar returns the configured result-variable name, defaulting to
// "NPV".
func (t *Trade) ResultVar() string {
	if t.ResultVarName == "" {
		return "NPV"
	}
	return t.ResultVarName
}
