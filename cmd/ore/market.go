package main

import (
	"time"

	"github.com/wyfcoding/ore/internal/marketdata"
)

// flatInputs holds the three maps model.NewFlatModel consumes, derived
// from a quote store by a flat naming convention layered on top of's
// mandated CATEGORY/SUBCATEGORY/CURVE/CCY/... key shape:
//
//	IR/ZERO//<CCY>          -> flat zero rate for <CCY>
//	FX/SPOT//<CCY>          -> flat spot FX rate for <CCY> vs base currency
//	INDEX/LEVEL/<INDEX>     -> flat level for index <INDEX>
//
// This is a naming convention for the flat reference model, not curve
// bootstrapping (out of scope ): no interpolation or pillar
// structure is built, only a single level per key read at asOf.
func buildFlatInputs(store *marketdata.Store, asOf time.Time) (zeroRates, fxSpots, indexLevel map[string]float64) {
	zeroRates = map[string]float64{}
	fxSpots = map[string]float64{}
	indexLevel = map[string]float64{}

	for _, key := range store.Keys() {
		qk := marketdata.ParseKey(key)
		v, ok := store.Latest(key, asOf)
		if !ok {
			continue
		}
		switch qk.Category {
		case "IR":
			if qk.Subcategory == "ZERO" {
				zeroRates[qk.Ccy] = v
			}
		case "FX":
			if qk.Subcategory == "SPOT" {
				fxSpots[qk.Ccy] = v
			}
		case "INDEX":
			if qk.Subcategory == "LEVEL" {
				indexLevel[qk.Curve] = v
			}
		}
	}
	return zeroRates, fxSpots, indexLevel
}
