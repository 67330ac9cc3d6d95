package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wyfcoding/ore/internal/cube"
	"github.com/wyfcoding/ore/internal/marketdata"
	"github.com/wyfcoding/ore/internal/model"
	"github.com/wyfcoding/ore/internal/obslog"
	"github.com/wyfcoding/ore/internal/oreconfig"
	"github.com/wyfcoding/ore/internal/platform/events"
	"github.com/wyfcoding/ore/internal/platform/httpapi"
	"github.com/wyfcoding/ore/internal/platform/metrics"
	"github.com/wyfcoding/ore/internal/platform/store"
	"github.com/wyfcoding/ore/internal/portfolio"
	"github.com/wyfcoding/ore/internal/postprocess"
	"github.com/wyfcoding/ore/internal/report"
	"github.com/wyfcoding/ore/internal/valuation"
)

// usageError signals an exit-code -1 condition: a missing or
// unreadable config path, as opposed to a failure discovered once the run
// is underway.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// runOre drives one batch valuation from configPath, printing an OK/SKIP
// marker to stdout for each stage so an operator can see how far the run
// progressed even if a later stage fails.
func runOre(ctx context.Context, configPath string) error {
	cfg, err := oreconfig.Load(configPath)
	if err != nil {
		return &usageError{err}
	}

	env := oreconfig.LoadEnvOverrides()
	if _, err := obslog.Init(obslog.Config{Level: env.LogLevel, Format: "json", Output: "stdout"}); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	log := obslog.Get()

	runID := uuid.New().String()
	start := time.Now()

	runMetrics := metrics.New("run")
	if err := runMetrics.Register(); err != nil {
		log.Warn(ctx, "metrics registration failed, continuing without them", "error", err)
	}
	metrics.StartHTTPServer(env.HTTPAddr)

	var pub *events.Publisher
	if len(env.KafkaBrokers) > 0 {
		pub = events.NewPublisher(env.KafkaBrokers)
		defer pub.Close()
	}

	var persist *store.Store
	if env.MySQLDSN != "" {
		persist, err = store.Open(ctx, store.Config{MySQLDSN: env.MySQLDSN, RedisAddr: env.RedisAddr, S3Bucket: env.S3Bucket})
		if err != nil {
			log.Warn(ctx, "persistence unavailable, continuing without it", "error", err)
			persist = nil
		} else {
			defer persist.Close()
		}
	}

	// httpSrv backs the run's progress WebSocket broadcaster and, when
	// persistence is configured, the GET /runs/:id status surface. Real-time
	// service operation is out of scope, so it is consulted in-process for
	// progress fan-out here rather than bound to a listener.
	var httpSrv *httpapi.Server
	if persist != nil {
		httpSrv = httpapi.NewServer(persist)
	}

	inputPath, _ := cfg.Setup.Get("inputPath")
	outputPath, _ := cfg.Setup.Get("outputPath")
	asofRaw, _ := cfg.Setup.Get("asofDate")
	portfolioFile, _ := cfg.Setup.Get("portfolioFile")

	asOf, err := time.Parse(dateLayout, asofRaw)
	if err != nil {
		return fmt.Errorf("setup.asofDate %q: %w", asofRaw, err)
	}
	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		return fmt.Errorf("creating outputPath %q: %w", outputPath, err)
	}

	if pub != nil {
		_ = pub.PublishRunStarted(ctx, events.RunStarted{RunID: runID, AsOfDate: asOf, Portfolio: portfolioFile, StartedAt: start})
	}
	if persist != nil {
		_ = persist.SaveRunManifest(ctx, store.RunManifest{RunID: runID, AsOfDate: asOf, PortfolioFile: portfolioFile, Status: "running", StartedAt: start})
	}

	var finalErr error
	exitCode := 0
	defer func() {
		status := "completed"
		if finalErr != nil {
			status = "failed"
			exitCode = 1
		}
		completedAt := time.Now()
		if persist != nil {
			_ = persist.SaveRunManifest(ctx, store.RunManifest{
				RunID: runID, AsOfDate: asOf, PortfolioFile: portfolioFile, Status: status,
				StartedAt: start, CompletedAt: &completedAt, ExitCode: exitCode,
				ErrorMessage: errString(finalErr),
			})
		}
		if pub != nil {
			_ = pub.PublishRunCompleted(ctx, events.RunCompleted{RunID: runID, Duration: time.Since(start), ExitCode: exitCode, Error: errString(finalErr)})
		}
		runMetrics.RunDuration.Observe(time.Since(start).Seconds())
		runMetrics.RunsTotal.Inc()
	}()

	var c *cube.Cube
	var portfolioTrades []*valuation.Trade

	// Markets: load market data/fixings into the flat reference model's
	// inputs. Curve bootstrapping proper is out of scope.
	var zeroRates, fxSpots, indexLevel map[string]float64
	var fixingStore *marketdata.Store
	if cfg.Markets.Active() {
		if mf, ok := cfg.Setup.Get("marketDataFile"); ok && mf != "" {
			quotes, err := marketdata.Load(resolvePath(inputPath, mf))
			if err != nil {
				finalErr = err
				return err
			}
			mstore := marketdata.NewStore(quotes)
			zeroRates, fxSpots, indexLevel = buildFlatInputs(mstore, asOf)
		}
		if ff, ok := cfg.Setup.Get("fixingDataFile"); ok && ff != "" {
			quotes, err := marketdata.Load(resolvePath(inputPath, ff))
			if err != nil {
				finalErr = err
				return err
			}
			fixingStore = marketdata.NewStore(quotes)
		}
		stdoutStage("Markets", true)
	} else {
		stdoutStage("Markets", false)
	}
	// Curves: curve-config bootstrapping is an external collaborator, out
	// of scope; the flat levels above stand in for it.
	stdoutStage("Curves", false)

	baseCcy := cfg.Markets.GetDefault("baseCurrency", "USD")

	if cfg.Simulation.Active() {
		portfolioTrades, err = portfolio.Load(resolvePath(inputPath, portfolioFile))
		if err != nil {
			finalErr = err
			return err
		}

		dateGrid, err := buildDateGrid(cfg.Simulation, asOf)
		if err != nil {
			finalErr = err
			return err
		}

		samples := groupInt(cfg.Simulation, "samples", 1000)
		workers := groupInt(cfg.Simulation, "workers", 0)
		useRegression := strings.EqualFold(cfg.Simulation.GetDefault("regressionModel", "N"), "Y")

		var fixings model.FixingStore
		if fixingStore != nil {
			fixings = fixingStore
		}
		flat := model.NewFlatModel(samples, asOf, baseCcy, zeroRates, fxSpots, indexLevel, fixings)
		var m model.Model = flat
		if useRegression {
			m = model.NewRegressionModel(flat)
		}

		market := valuation.NewFlatSimMarket(baseCcy, fxSpots, samples)
		driver := &valuation.Driver{
			Market:   market,
			DateGrid: dateGrid,
			Workers:  workers,
			Log:      log,
			Progress: func(e valuation.ProgressEvent) {
				runMetrics.SetProgress(float64(e.TradeIndex) / float64(e.TradeCount))
				if httpSrv != nil {
					httpSrv.BroadcasterFor(runID).Publish(e)
				}
			},
		}

		stageStart := time.Now()
		c, err = driver.Run(ctx, m, portfolioTrades)
		runMetrics.StageDuration.WithLabelValues("Simulation").Observe(time.Since(stageStart).Seconds())
		if err != nil {
			finalErr = err
			return err
		}
		stdoutStage("Simulation", true)
	} else {
		stdoutStage("Simulation", false)
	}

	if c != nil && cfg.NPV.Active() {
		stageStart := time.Now()
		cubePath := filepath.Join(outputPath, "npv.cube")
		if err := report.SaveCube(cubePath, c); err != nil {
			finalErr = err
			return err
		}
		runMetrics.CubeWriteDuration.Observe(time.Since(stageStart).Seconds())
		if persist != nil {
			if body, err := os.ReadFile(cubePath); err == nil {
				_ = persist.UploadArtifact(ctx, runID+"/npv.cube", body)
			}
		}
		stdoutStage("NPV", true)
	} else {
		stdoutStage("NPV", false)
	}

	if c != nil && cfg.Cashflow.Active() {
		if c.Depth() < 2 {
			log.Warn(ctx, "cashflow stage active but no trade requested storeFlows, skipping report")
			stdoutStage("Cashflow", false)
		} else {
			path := filepath.Join(outputPath, "cashflow.csv")
			if err := report.SaveCashflowCSV(path, c); err != nil {
				finalErr = err
				return err
			}
			stdoutStage("Cashflow", true)
		}
	} else {
		stdoutStage("Cashflow", false)
	}

	var pp *postprocess.PostProcess
	if c != nil && cfg.XVA.Active() {
		stageStart := time.Now()
		nettingSetIDs := distinctNettingSets(portfolioTrades)
		csas, xvaParams, pfeAlpha := buildXVAInputs(cfg.XVA, asOf, nettingSetIDs)
		baseRate := zeroRates[baseCcy]
		discount := func(t time.Time) float64 { return discountFactor(baseRate, asOf, t) }
		closeOut := make([]bool, len(c.Dates()))
		mode := allocationMode(cfg.XVA.GetDefault("allocationMode", "None"))
		marginalLimit := groupFloat(cfg.XVA, "marginalAllocationLimit", 0)

		pp, err = postprocess.New(c, portfolioTrades, csas, discount, pfeAlpha, closeOut, xvaParams, mode, marginalLimit)
		if err != nil {
			finalErr = err
			return err
		}
		if err := pp.Run(); err != nil {
			finalErr = err
			return err
		}

		if err := writeXVAReports(pp, nettingSetIDs, outputPath); err != nil {
			finalErr = err
			return err
		}
		for _, id := range nettingSetIDs {
			runMetrics.XVADuration.WithLabelValues(id).Observe(time.Since(stageStart).Seconds())
		}
		stdoutStage("XVA", true)
	} else {
		stdoutStage("XVA", false)
	}

	if pp != nil && cfg.Sensitivity.Active() {
		shiftSize := groupFloat(cfg.Sensitivity, "shiftSize", 0.0001)
		baseRate := zeroRates[baseCcy]
		discount := func(t time.Time) float64 { return discountFactor(baseRate, asOf, t) }
		var rows []report.SensitivityRow
		for _, id := range distinctNettingSets(portfolioTrades) {
			exp, err := pp.ExposureProfile(id)
			if err != nil {
				continue
			}
			xva, err := pp.NettingSetXVA(id)
			if err != nil {
				continue
			}
			_, xvaParams, _ := buildXVAInputs(cfg.XVA, asOf, []string{id})
			for _, s := range postprocess.CVASpreadSensitivities(exp, discount, xvaParams[id], xva.CVA.InexactFloat64(), shiftSize) {
				rows = append(rows, report.SensitivityRow{NettingSetID: id, Sensitivity: s})
			}
		}
		if err := report.SaveSensitivityCSV(filepath.Join(outputPath, "sensitivity.csv"), rows); err != nil {
			finalErr = err
			return err
		}
		stdoutStage("Sensitivity", true)
	} else {
		stdoutStage("Sensitivity", false)
	}

	return nil
}

func writeXVAReports(pp *postprocess.PostProcess, nettingSetIDs []string, outputPath string) error {
	var rows []report.XVARow
	for _, id := range nettingSetIDs {
		xva, err := pp.NettingSetXVA(id)
		if err != nil {
			return err
		}
		rows = append(rows, report.XVARow{NettingSetID: id, Result: xva})

		exp, err := pp.ExposureProfile(id)
		if err == nil {
			if err := report.SaveExposureCSV(filepath.Join(outputPath, "exposure_"+sanitize(id)+".csv"), exp); err != nil {
				return err
			}
		}

		allocs, err := pp.Allocations(id)
		if err != nil {
			continue
		}
		for _, a := range allocs {
			alloc := a
			rows = append(rows, report.XVARow{TradeID: a.TradeID, NettingSetID: id, Allocated: &alloc})
		}
	}
	return report.SaveXVACSV(filepath.Join(outputPath, "xva.csv"), rows)
}

func distinctNettingSets(trades []*valuation.Trade) []string {
	seen := map[string]bool{}
	var ids []string
	for _, t := range trades {
		id := t.NettingSetID
		if id == "" {
			id = t.ID
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func discountFactor(rate float64, from, to time.Time) float64 {
	return math.Exp(-rate * model.YearFrac(from, to))
}

func resolvePath(inputPath, rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(inputPath, rel)
}

func sanitize(id string) string {
	return strings.NewReplacer("/", "_", " ", "_").Replace(id)
}

func stdoutStage(stage string, ran bool) {
	if ran {
		fmt.Println("OK", stage)
	} else {
		fmt.Println("SKIP", stage)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
