package postprocess

import (
	"github.com/wyfcoding/ore/internal/cube"
	"github.com/wyfcoding/ore/internal/oreerr"
	"github.com/wyfcoding/ore/internal/valuation"
)

// stage tracks PostProcess's construction state machine:
// constructed-with-inputs -> updateStandAloneXVA -> updateNettingSetKVA ->
// updateAllocatedXVA. Accessors below refuse to return data for a stage
// that has not yet run.
type stage int

const (
	stageConstructed stage = iota
	stageStandAlone
	stageKVA
	stageAllocated
)

// PostProcess aggregates one filled cube into exposure profiles and XVA,
// with optional trade-level allocation. Build with New, then call Run (or
// the three update methods in order) before using any accessor.
type PostProcess struct {
	cube      *cube.Cube
	portfolio []*valuation.Trade

	csas      map[string]CSA
	discount  DiscountFunc
	pfeAlpha  float64
	closeOut  []bool
	xvaParams map[string]XVAParams

	allocationMode          AllocationMode
	marginalAllocationLimit float64

	netExposures map[string]*NetExposure
	helpers      map[string]*CollateralExposureHelper
	exposures    map[string]*NettingSetExposure

	nettingSetXVA map[string]*XVAResult
	standAlone    map[string]*XVAResult   // keyed by trade ID
	allocations   map[string][]Allocation // keyed by netting set ID

	stg stage
}

// New builds a PostProcess from a filled cube, the portfolio that produced
// it (in the same order used by the driver), a CSA per netting set, the
// base-currency discount curve, the PFE quantile level, an optional
// close-out flag per date, and an XVAParams per netting set.
func New(c *cube.Cube, portfolio []*valuation.Trade, csas map[string]CSA, discount DiscountFunc, pfeAlpha float64, closeOut []bool, xvaParams map[string]XVAParams, mode AllocationMode, marginalAllocationLimit float64) (*PostProcess, error) {
	netExposures, err := BuildNetExposures(c, portfolio)
	if err != nil {
		return nil, err
	}

	p := &PostProcess{
		cube:                    c,
		portfolio:               portfolio,
		csas:                    csas,
		discount:                discount,
		pfeAlpha:                pfeAlpha,
		closeOut:                closeOut,
		xvaParams:               xvaParams,
		allocationMode:          mode,
		marginalAllocationLimit: marginalAllocationLimit,
		netExposures:            netExposures,
		helpers:                 make(map[string]*CollateralExposureHelper),
		exposures:               make(map[string]*NettingSetExposure),
		nettingSetXVA:           make(map[string]*XVAResult),
		standAlone:              make(map[string]*XVAResult),
		allocations:             make(map[string][]Allocation),
		stg:                     stageConstructed,
	}
	return p, nil
}

func (p *PostProcess) nettingSetID(trade *valuation.Trade) string {
	if trade.NettingSetID != "" {
		return trade.NettingSetID
	}
	return trade.ID
}

// Run executes the full pipeline: updateStandAloneXVA, updateNettingSetKVA,
// updateAllocatedXVA, in that order.
func (p *PostProcess) Run() error {
	if err := p.updateStandAloneXVA(); err != nil {
		return err
	}
	if err := p.updateNettingSetKVA(); err != nil {
		return err
	}
	return p.updateAllocatedXVA()
}

// updateStandAloneXVA computes each netting set's exposure profile and
// CVA/DVA/FVA/MVA/COLVA/CollateralFloor (KVA deferred to the next stage),
// plus every trade's stand-alone figures used by RelativeXVA allocation.
func (p *PostProcess) updateStandAloneXVA() error {
	if p.stg != stageConstructed {
		return oreerr.NewAggregation("postprocess: updateStandAloneXVA called out of order")
	}

	for id, ne := range p.netExposures {
		csa, ok := p.csas[id]
		if !ok {
			return oreerr.NewAggregation("postprocess: no CSA configured for netting set %q", id)
		}
		h := NewCollateralExposureHelper(ne, csa)
		exp, err := ComputeNettingSetExposure(ne, h, p.discount, p.pfeAlpha, p.closeOut)
		if err != nil {
			return err
		}
		params, ok := p.xvaParams[id]
		if !ok {
			return oreerr.NewAggregation("postprocess: no XVA parameters configured for netting set %q", id)
		}
		withoutKVA := params
		withoutKVA.KVA = KVAParams{}

		p.helpers[id] = h
		p.exposures[id] = exp
		p.nettingSetXVA[id] = ComputeXVA(id, exp, p.discount, withoutKVA)
	}

	for i, trade := range p.portfolio {
		id := p.nettingSetID(trade)
		csa := p.csas[id]
		params := p.xvaParams[id]
		params.KVA = KVAParams{}
		res, err := StandAloneXVA(p.cube, trade, i, csa, p.discount, p.pfeAlpha, p.closeOut, params)
		if err != nil {
			return err
		}
		p.standAlone[trade.ID] = res
	}

	p.stg = stageStandAlone
	return nil
}

// updateNettingSetKVA folds the optional capital charge into each netting
// set's XVAResult, using that set's own KVAParams.
func (p *PostProcess) updateNettingSetKVA() error {
	if p.stg != stageStandAlone {
		return oreerr.NewAggregation("postprocess: updateNettingSetKVA called out of order")
	}
	for id, exp := range p.exposures {
		params := p.xvaParams[id]
		if !params.KVA.Enabled {
			continue
		}
		full := ComputeXVA(id, exp, p.discount, params)
		res := p.nettingSetXVA[id]
		res.KVACCR = full.KVACCR
		res.KVACVA = full.KVACVA
	}
	p.stg = stageKVA
	return nil
}

// updateAllocatedXVA distributes each netting set's CVA/DVA back to its
// trades per the configured AllocationMode.
func (p *PostProcess) updateAllocatedXVA() error {
	if p.stg != stageKVA {
		return oreerr.NewAggregation("postprocess: updateAllocatedXVA called out of order")
	}

	byNettingSet := make(map[string][]*valuation.Trade)
	for _, trade := range p.portfolio {
		id := p.nettingSetID(trade)
		byNettingSet[id] = append(byNettingSet[id], trade)
	}

	for id, trades := range byNettingSet {
		xva := p.nettingSetXVA[id]

		var allocs []Allocation
		var err error
		switch p.allocationMode {
		case AllocationNone:
			allocs = AllocateNone(trades)
		case AllocationMarginal:
			allocs, err = AllocateMarginal(p.cube, trades, p.netExposures[id], p.helpers[id], p.discount, p.xvaParams[id], p.marginalAllocationLimit)
		case AllocationRelativeFairValueGross:
			allocs, err = AllocateRelativeFairValueGross(trades, p.t0NPVByTrade(trades), xva.CVA, xva.DVA)
		case AllocationRelativeFairValueNet:
			allocs, err = AllocateRelativeFairValueNet(trades, p.t0NPVByTrade(trades), xva.CVA, xva.DVA)
		case AllocationRelativeXVA:
			allocs, err = AllocateRelativeXVA(trades, p.standAlone, xva.CVA, xva.DVA)
		default:
			err = oreerr.NewAggregation("postprocess: unknown allocation mode %d", p.allocationMode)
		}
		if err != nil {
			return err
		}
		p.allocations[id] = allocs
	}

	p.stg = stageAllocated
	return nil
}

func (p *PostProcess) t0NPVByTrade(trades []*valuation.Trade) map[string]float64 {
	out := make(map[string]float64, len(trades))
	for _, trade := range trades {
		ti := p.cube.TradeIndex(trade.ID)
		v, err := p.cube.GetT0(ti, cube.SlotNPV)
		if err != nil {
			continue
		}
		out[trade.ID] = float64(v)
	}
	return out
}

// ExposureProfile returns nettingSetID's exposure profile. Valid once
// updateStandAloneXVA has run.
func (p *PostProcess) ExposureProfile(nettingSetID string) (*NettingSetExposure, error) {
	if p.stg < stageStandAlone {
		return nil, oreerr.NewAggregation("postprocess: ExposureProfile called before updateStandAloneXVA")
	}
	exp, ok := p.exposures[nettingSetID]
	if !ok {
		return nil, oreerr.NewAggregation("postprocess: unknown netting set %q", nettingSetID)
	}
	return exp, nil
}

// NettingSetXVA returns nettingSetID's CVA/DVA/FVA/MVA/COLVA (and KVA, once
// updateNettingSetKVA has run).
func (p *PostProcess) NettingSetXVA(nettingSetID string) (*XVAResult, error) {
	if p.stg < stageStandAlone {
		return nil, oreerr.NewAggregation("postprocess: NettingSetXVA called before updateStandAloneXVA")
	}
	res, ok := p.nettingSetXVA[nettingSetID]
	if !ok {
		return nil, oreerr.NewAggregation("postprocess: unknown netting set %q", nettingSetID)
	}
	return res, nil
}

// StandAloneTradeXVA returns tradeID's stand-alone CVA/DVA.
func (p *PostProcess) StandAloneTradeXVA(tradeID string) (*XVAResult, error) {
	if p.stg < stageStandAlone {
		return nil, oreerr.NewAggregation("postprocess: StandAloneTradeXVA called before updateStandAloneXVA")
	}
	res, ok := p.standAlone[tradeID]
	if !ok {
		return nil, oreerr.NewAggregation("postprocess: unknown trade %q", tradeID)
	}
	return res, nil
}

// Allocations returns nettingSetID's per-trade allocation. Valid only once
// updateAllocatedXVA has run.
func (p *PostProcess) Allocations(nettingSetID string) ([]Allocation, error) {
	if p.stg < stageAllocated {
		return nil, oreerr.NewAggregation("postprocess: Allocations called before updateAllocatedXVA")
	}
	return p.allocations[nettingSetID], nil
}
