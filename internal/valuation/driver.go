package valuation

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/ore/internal/cube"
	"github.com/wyfcoding/ore/internal/model"
	"github.com/wyfcoding/ore/internal/obslog"
	"github.com/wyfcoding/ore/internal/scriptengine"
)

// ProgressEvent is the single reducer's unit of notification ("progress
// indicators are notified via a single reducer"), consumed by the
// Prometheus gauge and the WebSocket broadcaster.
type ProgressEvent struct {
	TradeIndex int
	TradeCount int
	TradeID    string
}

// Driver owns the cube for one valuation run. parallelizes the driver
// across the sample dimension; since model.Model already vectorizes every
// primitive across all N samples in a single call, that parallelism is
// instead realized here at trade granularity — the natural concurrency
// unit the vectorized engine exposes, since each trade's Engine.Run
// produces a RandomVariable spanning every sample in one pass and writes
// only its own disjoint trade-index slice of the cube. See DESIGN.md.
type Driver struct {
	Market   SimMarket
	DateGrid []time.Time
	Workers  int
	Progress func(ProgressEvent)
	Log      *obslog.Logger
}

// Run evaluates every trade in portfolio against m and returns the filled
// cube. Per-trade failures are caught, logged via ALOG, and leave that
// trade's slots at zero; the overall run continues.
func (d *Driver) Run(ctx context.Context, m model.Model, portfolio []*Trade) (*cube.Cube, error) {
	ids := make([]string, len(portfolio))
	storeFlows := false
	for i, t := range portfolio {
		ids[i] = t.ID
		if t.StoreFlows {
			storeFlows = true
		}
	}
	depth := 1
	if storeFlows {
		depth = 2
	}
	c, err := cube.New(ids, d.DateGrid, m.Size(), depth, m.ReferenceDate())
	if err != nil {
		return nil, err
	}

	workers := d.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	completed := 0

	for i, trade := range portfolio {
		i, trade := i, trade
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			d.runTrade(gctx, m, trade, i, c, storeFlows)
			mu.Lock()
			completed++
			n := completed
			mu.Unlock()
			if d.Progress != nil {
				d.Progress(ProgressEvent{TradeIndex: n, TradeCount: len(portfolio), TradeID: trade.ID})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return c, nil
}

func (d *Driver) alog(ctx context.Context, tradeID, format string, args ...any) {
	if d.Log == nil {
		return
	}
	d.Log.ALOG(ctx, tradeID, format, args...)
}

// runTrade evaluates one trade's script once and feeds the resulting NPV
// RandomVariable and PayLog to every registered calculator across the
// date grid. It never returns an error to its caller — every failure is
// ALOG'd and the corresponding cube slots are left at their zero default,
// matching per-trade recoverable-failure policy.
func (d *Driver) runTrade(ctx context.Context, m model.Model, trade *Trade, idx int, c *cube.Cube, storeFlows bool) {
	log := scriptengine.NewPayLog()
	eng := scriptengine.New(m, trade.Ctx, log)
	if err := eng.Run(ctx, trade.Script); err != nil {
		d.alog(ctx, trade.ID, "script evaluation failed: %v", err)
		return
	}
	resultVal, declared, err := trade.Ctx.Scalar(trade.ResultVar())
	if err != nil || !declared {
		d.alog(ctx, trade.ID, "result variable %q not found", trade.ResultVar())
		return
	}
	npv, err := resultVal.CheckNumeric()
	if err != nil {
		d.alog(ctx, trade.ID, "result variable %q is not Number: %v", trade.ResultVar(), err)
		return
	}

	tc := &TradeContext{Trade: trade, TradeIndex: idx, Model: m, Market: d.Market, NPV: npv, Log: log}

	calculators := []Calculator{NPVCalculator{}}
	if storeFlows {
		calculators = append(calculators, CashflowCalculator{})
	}

	for _, calc := range calculators {
		if err := calc.CalculateT0(ctx, tc, c); err != nil {
			d.alog(ctx, trade.ID, "calculateT0 slot %d: %v", calc.Slot(), err)
		}
	}
	for di, date := range d.DateGrid {
		var next *time.Time
		if di+1 < len(d.DateGrid) {
			next = &d.DateGrid[di+1]
		}
		for _, calc := range calculators {
			if err := calc.Calculate(ctx, tc, di, date, next, c); err != nil {
				d.alog(ctx, trade.ID, "calculate date %s slot %d: %v", date, calc.Slot(), err)
			}
		}
	}
}
