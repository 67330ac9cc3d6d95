package report

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/ore/internal/oreerr"
	"github.com/wyfcoding/ore/internal/postprocess"
)

var exposureHeader = []string{"time", "date", "EPE", "ENE", "EE_B", "EEE_B", "PFE", "expectedCollateral"}

// WriteExposureCSV writes one row per date-grid point of exp to w, per
// exposure report column contract.
func WriteExposureCSV(w io.Writer, exp *postprocess.NettingSetExposure) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exposureHeader); err != nil {
		return err
	}
	for i, d := range exp.Dates {
		row := []string{
			strconv.Itoa(i),
			d.Format("2006-01-02"),
			formatFloat(exp.EPE[i]),
			formatFloat(exp.ENE[i]),
			formatFloat(exp.EEB[i]),
			formatFloat(exp.EEEB[i]),
			formatFloat(valueAt(exp.PFE, i)),
			formatFloat(valueAt(exp.ExpColl, i)),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveExposureCSV writes exp's report to path.
func SaveExposureCSV(path string, exp *postprocess.NettingSetExposure) error {
	f, err := os.Create(path)
	if err != nil {
		return oreerr.NewIO(err, "report: creating %q", path)
	}
	defer f.Close()
	if err := WriteExposureCSV(f, exp); err != nil {
		return oreerr.NewIO(err, "report: writing %q", path)
	}
	return nil
}

var xvaHeader = []string{
	"tradeId", "nettingSetId", "CVA", "DVA", "FBA", "FCA", "MVA", "COLVA",
	"collateralFloor", "allocatedCVA", "allocatedDVA", "KVACCR", "KVACVA",
}

// XVARow is one row of the xva.csv report: either a netting-set total
// (TradeID empty) or a trade-level allocation (AllocatedCVA/DVA only).
type XVARow struct {
	TradeID      string
	NettingSetID string
	Result       *postprocess.XVAResult // nil for pure allocation rows
	Allocated    *postprocess.Allocation
}

// WriteXVACSV writes one row per entry of rows to w.
func WriteXVACSV(w io.Writer, rows []XVARow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(xvaHeader); err != nil {
		return err
	}
	for _, r := range rows {
		cva, dva, fba, fca := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
		mva, colva, floor := decimal.Zero, decimal.Zero, decimal.Zero
		kvaccr, kvacva := decimal.Zero, decimal.Zero
		if r.Result != nil {
			cva, dva, fba, fca = r.Result.CVA, r.Result.DVA, r.Result.FBA, r.Result.FCA
			mva, colva, floor = r.Result.MVA, r.Result.COLVA, r.Result.CollateralFloor
			kvaccr, kvacva = r.Result.KVACCR, r.Result.KVACVA
		}
		allocCVA, allocDVA := decimal.Zero, decimal.Zero
		if r.Allocated != nil {
			allocCVA, allocDVA = r.Allocated.AllocatedCVA, r.Allocated.AllocatedDVA
		}
		row := []string{
			r.TradeID,
			r.NettingSetID,
			cva.String(), dva.String(), fba.String(), fca.String(),
			mva.String(), colva.String(), floor.String(),
			allocCVA.String(), allocDVA.String(),
			kvaccr.String(), kvacva.String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveXVACSV writes rows to path.
func SaveXVACSV(path string, rows []XVARow) error {
	f, err := os.Create(path)
	if err != nil {
		return oreerr.NewIO(err, "report: creating %q", path)
	}
	defer f.Close()
	if err := WriteXVACSV(f, rows); err != nil {
		return oreerr.NewIO(err, "report: writing %q", path)
	}
	return nil
}

func valueAt(s []float64, i int) float64 {
	if i < 0 || i >= len(s) {
		return 0
	}
	return s[i]
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
