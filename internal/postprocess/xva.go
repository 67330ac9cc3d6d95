package postprocess

import (
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/ore/internal/model"
)

// XVAParams carries the curves and spreads needed to turn an exposure
// profile into valuation adjustments.
type XVAParams struct {
	CounterpartyCurve *CreditCurve
	OwnCurve          *CreditCurve

	// FundingSpread prices FBA/FCA; CollateralSpread and FloorRate price
	// COLVA/CollateralFloor. All are flat annualised rates.
	FundingSpread    float64
	CollateralSpread float64
	FloorRate        float64

	// UseSurvivalProbabilityFVA selects, of the four FBA/FCA variants, the
	// one weighted by the product of own and counterparty survival
	// probability versus the unweighted one.
	UseSurvivalProbabilityFVA bool

	// DIM is the undiscounted expected initial margin path (ComputeXVA
	// applies df to it); nil disables MVA. FundingSpreadIM is the funding spread applied to it.
	DIM             DiscountFunc
	FundingSpreadIM float64

	KVA KVAParams
}

// KVAParams parameterises the optional capital-charge calculation.
type KVAParams struct {
	Enabled bool
	// Alpha is the cost-of-capital / capital hurdle rate.
	Alpha float64
	// CapitalCoefficient is the regulator risk weight applied to EEE_B
	// for KVA-CCR.
	CapitalCoefficient float64
	// CVARiskWeight scales stand-alone CVA into a CVA capital charge for
	// KVA-CVA.
	CVARiskWeight float64
}

// XVAResult is one netting set's (or, in stand-alone mode, one trade's)
// valuation adjustments.
type XVAResult struct {
	ID string

	CVA             decimal.Decimal
	DVA             decimal.Decimal
	FBA             decimal.Decimal
	FCA             decimal.Decimal
	MVA             decimal.Decimal
	COLVA           decimal.Decimal
	CollateralFloor decimal.Decimal
	KVACCR          decimal.Decimal
	KVACVA          decimal.Decimal
}

// ComputeXVA integrates the exposure profile against the supplied curves
// and spreads into a full XVAResult formulas. The per-date accumulation
// runs in float64, since it walks the same vectorized exposure arrays the
// Monte Carlo engine produces; the totals are converted to decimal.Decimal
// once, at the boundary, since they are the final money amounts a report
// persists and displays.
func ComputeXVA(id string, exp *NettingSetExposure, df DiscountFunc, p XVAParams) *XVAResult {
	var cva, dva, fba, fca, mva, colva, collateralFloor, kvaccr, kvacva float64

	cptyLGD := 1 - p.CounterpartyCurve.Recovery
	ownLGD := 1 - p.OwnCurve.Recovery

	for d := 1; d < len(exp.Dates); d++ {
		prev, cur := exp.Dates[d-1], exp.Dates[d]
		dfPrev, dfCur := df(prev), df(cur)

		pdCpty := p.CounterpartyCurve.SurvivalProbability(prev) - p.CounterpartyCurve.SurvivalProbability(cur)
		cva += cptyLGD * pdCpty * 0.5 * (exp.EPE[d-1]*dfPrev + exp.EPE[d]*dfCur)

		pdOwn := p.OwnCurve.SurvivalProbability(prev) - p.OwnCurve.SurvivalProbability(cur)
		dva += ownLGD * pdOwn * 0.5 * (exp.ENE[d-1]*dfPrev + exp.ENE[d]*dfCur)

		dt := model.YearFrac(prev, cur)

		spWeight := 1.0
		if p.UseSurvivalProbabilityFVA {
			spWeight = p.CounterpartyCurve.SurvivalProbability(cur) * p.OwnCurve.SurvivalProbability(cur)
		}
		fca += p.FundingSpread * exp.EPE[d] * dfCur * dt * spWeight
		fba += p.FundingSpread * exp.ENE[d] * dfCur * dt * spWeight

		if p.DIM != nil {
			spMVA := p.CounterpartyCurve.SurvivalProbability(cur) * p.OwnCurve.SurvivalProbability(cur)
			mva += p.FundingSpreadIM * p.DIM(cur) * dfCur * dt * spMVA
		}

		colva += p.CollateralSpread * exp.ExpColl[d] * dfCur * dt
		shortfall := p.FloorRate - p.CollateralSpread
		if shortfall > 0 {
			collateralFloor += shortfall * exp.ExpColl[d] * dfCur * dt
		}

		if p.KVA.Enabled {
			kvaccr += p.KVA.Alpha * p.KVA.CapitalCoefficient * exp.EEEB[d] * dfCur * dt
		}
	}

	if p.KVA.Enabled {
		kvacva = p.KVA.Alpha * p.KVA.CVARiskWeight * cva
	}

	return &XVAResult{
		ID:              id,
		CVA:             decimal.NewFromFloat(cva),
		DVA:             decimal.NewFromFloat(dva),
		FBA:             decimal.NewFromFloat(fba),
		FCA:             decimal.NewFromFloat(fca),
		MVA:             decimal.NewFromFloat(mva),
		COLVA:           decimal.NewFromFloat(colva),
		CollateralFloor: decimal.NewFromFloat(collateralFloor),
		KVACCR:          decimal.NewFromFloat(kvaccr),
		KVACVA:          decimal.NewFromFloat(kvacva),
	}
}
