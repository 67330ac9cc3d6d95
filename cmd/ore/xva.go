package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/ore/internal/oreconfig"
	"github.com/wyfcoding/ore/internal/postprocess"
)

// buildXVAInputs reads a single flat CSA/XVAParams pair from the xva
// config group and applies it to every netting set the portfolio
// produces. Per-netting-set CSA/curve configuration files are an
// "instrument construction"-adjacent external collaborator out of scope
// ; this mirrors model.FlatModel's flat-curve simplification
// for the same reason (see DESIGN.md's Open Question decisions).
func buildXVAInputs(xva oreconfig.Group, asOf time.Time, nettingSetIDs []string) (map[string]postprocess.CSA, map[string]postprocess.XVAParams, float64) {
	cptyHazard := groupFloat(xva, "cptyHazardRate", 0.01)
	cptyRecovery := groupFloat(xva, "cptyRecovery", 0.4)
	ownHazard := groupFloat(xva, "ownHazardRate", 0.005)
	ownRecovery := groupFloat(xva, "ownRecovery", 0.4)

	pillar := asOf.AddDate(50, 0, 0)
	cptyCurve := postprocess.NewCreditCurve(asOf, []time.Time{pillar}, []float64{cptyHazard}, cptyRecovery)
	ownCurve := postprocess.NewCreditCurve(asOf, []time.Time{pillar}, []float64{ownHazard}, ownRecovery)

	params := postprocess.XVAParams{
		CounterpartyCurve:         cptyCurve,
		OwnCurve:                  ownCurve,
		FundingSpread:             groupFloat(xva, "fundingSpread", 0),
		CollateralSpread:          groupFloat(xva, "collateralSpread", 0),
		FloorRate:                 groupFloat(xva, "floorRate", 0),
		UseSurvivalProbabilityFVA: strings.EqualFold(xva.GetDefault("useSurvivalProbabilityFVA", "N"), "Y"),
		KVA: postprocess.KVAParams{
			Enabled:            strings.EqualFold(xva.GetDefault("kvaEnabled", "N"), "Y"),
			Alpha:              groupFloat(xva, "kvaAlpha", 0),
			CapitalCoefficient: groupFloat(xva, "kvaCapitalCoefficient", 0),
			CVARiskWeight:      groupFloat(xva, "kvaCVARiskWeight", 0),
		},
	}

	csa := postprocess.CSA{
		Threshold:                    decimal.NewFromFloat(groupFloat(xva, "csaThreshold", 0)),
		MTA:                          decimal.NewFromFloat(groupFloat(xva, "csaMTA", 0)),
		IndependentAmount:            decimal.NewFromFloat(groupFloat(xva, "csaIndependentAmount", 0)),
		MarginPeriodOfRisk:           time.Duration(groupFloat(xva, "csaMarginPeriodOfRiskDays", 0)) * 24 * time.Hour,
		CalculationType:              calculationType(xva.GetDefault("csaCalculationType", "Symmetric")),
		FullInitialCollateralisation: strings.EqualFold(xva.GetDefault("csaFullInitialCollateralisation", "N"), "Y"),
	}

	csas := make(map[string]postprocess.CSA, len(nettingSetIDs))
	xvaParams := make(map[string]postprocess.XVAParams, len(nettingSetIDs))
	for _, id := range nettingSetIDs {
		c := csa
		c.NettingSetID = id
		csas[id] = c
		xvaParams[id] = params
	}

	pfeAlpha := groupFloat(xva, "pfeQuantile", 0.95)
	return csas, xvaParams, pfeAlpha
}

func calculationType(s string) postprocess.CalculationType {
	switch strings.ToLower(s) {
	case "asymmetriccva":
		return postprocess.AsymmetricCVA
	case "asymmetricdva":
		return postprocess.AsymmetricDVA
	case "nolag":
		return postprocess.NoLag
	default:
		return postprocess.Symmetric
	}
}

func allocationMode(s string) postprocess.AllocationMode {
	switch strings.ToLower(s) {
	case "marginal":
		return postprocess.AllocationMarginal
	case "relativefairvaluegross":
		return postprocess.AllocationRelativeFairValueGross
	case "relativefairvaluenet":
		return postprocess.AllocationRelativeFairValueNet
	case "relativexva":
		return postprocess.AllocationRelativeXVA
	default:
		return postprocess.AllocationNone
	}
}

func groupFloat(g oreconfig.Group, key string, def float64) float64 {
	v, ok := g.Get(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
