package report

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/wyfcoding/ore/internal/cube"
	"github.com/wyfcoding/ore/internal/oreerr"
)

var cashflowHeader = []string{"tradeId", "date", "expectedCashflow"}

// WriteCashflowCSV writes one row per (trade, date) of c's
// cube.SlotCashflow depth, averaged across samples — the expected
// cashflow report the "cashflow" config group enables. c must have
// been built with depth 2 (at least one trade requesting StoreFlows).
func WriteCashflowCSV(w io.Writer, c *cube.Cube) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cashflowHeader); err != nil {
		return err
	}
	for ti, tradeID := range c.TradeIDs() {
		for di, date := range c.Dates() {
			sum := 0.0
			for s := 0; s < c.Samples(); s++ {
				v, err := c.Get(ti, di, s, cube.SlotCashflow)
				if err != nil {
					return err
				}
				sum += float64(v)
			}
			mean := sum / float64(c.Samples())
			row := []string{tradeID, date.Format("2006-01-02"), formatFloat(mean)}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCashflowCSV writes c's cashflow report to path.
func SaveCashflowCSV(path string, c *cube.Cube) error {
	f, err := os.Create(path)
	if err != nil {
		return oreerr.NewIO(err, "report: creating %q", path)
	}
	defer f.Close()
	if err := WriteCashflowCSV(f, c); err != nil {
		return oreerr.NewIO(err, "report: writing %q", path)
	}
	return nil
}
