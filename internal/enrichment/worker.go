package enrichment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"memescope/internal/domain"
	"memescope/internal/observability"
	"memescope/internal/providers"
	"memescope/internal/scoring"
	"memescope/internal/signals"
	"memescope/internal/storage"
	"memescope/internal/trading"
)

// rugDrawdownFraction flags the outcome as a rug once the price (or the
// final multiplier) sits at least this far below peak.
const rugDrawdownFraction = 0.9

// successPeakMultiplier counts a launch as a creator success.
const successPeakMultiplier = 2.0

// Stores bundles the persistence dependencies of the worker.
type Stores struct {
	Tokens     storage.TokenStore
	Snapshots  storage.SnapshotStore
	Security   storage.SecurityStore
	Outcomes   storage.OutcomeStore
	Creators   storage.CreatorStore
	Signals    storage.SignalStore
	Timeseries storage.SnapshotTimeseriesStore // optional analytic mirror
}

// Providers bundles the external data dependencies of the worker.
type Providers struct {
	MintRPC   providers.MintRPC
	SwapQuote providers.SwapQuote
	Data      providers.TokenData
}

// WorkerConfig parameterises the worker pool.
type WorkerConfig struct {
	Workers     int     // pool size
	SOLPriceUSD float64 // SOL/USD conversion for trader P&L
}

// DefaultWorkerConfig returns the production defaults.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{Workers: 8, SOLPriceUSD: 150}
}

// Worker pops enrichment tasks and executes their stage: PRE_SCAN mint
// gating or a normal fetch-persist-score-signal-trade step. Each task
// is a failure isolation boundary.
type Worker struct {
	queue   Queue
	stores  Stores
	prov    Providers
	paper   *trading.PaperTrader
	real    *trading.RealTrader // nil when real trading is disabled
	copier  *trading.CopyTrader // nil when copy trading is disabled
	metrics *observability.Metrics
	cfg     WorkerConfig
	log     zerolog.Logger
	now     func() int64
}

// NewWorker creates a Worker.
func NewWorker(queue Queue, stores Stores, prov Providers, paper *trading.PaperTrader, real *trading.RealTrader, copier *trading.CopyTrader, metrics *observability.Metrics, cfg WorkerConfig, log zerolog.Logger) *Worker {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkerConfig().Workers
	}
	return &Worker{
		queue:   queue,
		stores:  stores,
		prov:    prov,
		paper:   paper,
		real:    real,
		copier:  copier,
		metrics: metrics,
		cfg:     cfg,
		log:     log.With().Str("component", "enrichment_worker").Logger(),
		now:     func() int64 { return time.Now().UnixMilli() },
	}
}

// Run performs startup recovery, then blocks running the worker pool
// until ctx is cancelled. Workers drain their current task on shutdown.
func (w *Worker) Run(ctx context.Context) error {
	w.recover(ctx)

	if w.metrics != nil {
		go w.pollQueueDepth(ctx)
	}

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

// pollQueueDepth keeps the depth gauge current.
func (w *Worker) pollQueueDepth(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := w.queue.Size(ctx); err == nil {
				w.metrics.SetQueueDepth(n)
			}
		}
	}
}

// recover runs the one-shot startup sequence: count, purge, rescore.
// All three are idempotent; failures are logged and skipped.
func (w *Worker) recover(ctx context.Context) {
	if n, err := w.queue.Size(ctx); err == nil {
		w.log.Info().Int64("queued", n).Msg("queue recovered")
	}
	if n, err := w.queue.PurgeStale(ctx); err != nil {
		w.log.Warn().Err(err).Msg("stale purge failed")
	} else if n > 0 && w.metrics != nil {
		w.metrics.TasksDropped.WithLabelValues("stale").Add(float64(n))
	}
	if _, err := w.queue.MigrateScores(ctx); err != nil {
		w.log.Warn().Err(err).Msg("score migration failed")
	}
}

func (w *Worker) loop(ctx context.Context) {
	for {
		t, err := w.queue.Get(ctx)
		if err != nil {
			return // cancelled
		}
		w.process(ctx, t)
	}
}

// process executes one task. A panic in a stage is contained here so a
// single bad token cannot take down the pool.
func (w *Worker) process(ctx context.Context, t *Task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Interface("panic", r).Str("key", t.Key()).Msg("task panicked")
		}
		w.metrics.RecordTaskProcessed(string(t.Stage), time.Since(start).Seconds())
	}()

	if t.Stage == domain.StagePreScan {
		w.preScan(ctx, t)
		return
	}
	w.enrich(ctx, t)
}

// OnDiscovery ingests a token-launch event: upsert the token record and
// schedule PRE_SCAN shortly in the future.
func (w *Worker) OnDiscovery(ctx context.Context, ev domain.DiscoveryEvent) error {
	chain := ev.Chain
	if chain == "" {
		chain = domain.ChainSolana
	}

	tok := &domain.Token{
		Address:        ev.Mint,
		Chain:          chain,
		Name:           ev.Name,
		Symbol:         ev.Symbol,
		Source:         ev.Source,
		Creator:        ev.Creator,
		InitialBuySOL:  ev.InitialBuySOL,
		InitialMcapSOL: ev.InitialMcapSOL,
		CurveProgress:  ev.CurveProgress,
		DiscoveredAt:   ev.DiscoveredAt,
		CreatedAt:      w.now(),
	}
	id, err := w.stores.Tokens.Upsert(ctx, tok)
	if err != nil {
		return err
	}
	if w.metrics != nil {
		w.metrics.TokensDiscovered.Inc()
	}

	task := &Task{
		Address:        ev.Mint,
		Chain:          chain,
		TokenID:        id,
		Stage:          domain.StagePreScan,
		DiscoveredAtMs: ev.DiscoveredAt,
		ScheduledAtMs:  w.now() + Schedule[domain.StagePreScan].Offset.Milliseconds(),
		Priority:       PriorityNormal,
	}
	if err := w.queue.Put(ctx, task, false); err != nil {
		if errors.Is(err, ErrQueueFull) {
			if w.metrics != nil {
				w.metrics.TasksDropped.WithLabelValues("queue_full").Inc()
			}
			return nil
		}
		return err
	}
	return nil
}

// preScan gates a fresh token on its mint account: hard flags drop it,
// soft flags accumulate a risk boost carried to INITIAL. An RPC outage
// never hard-rejects.
func (w *Worker) preScan(ctx context.Context, t *Task) {
	mi, err := w.prov.MintRPC.ParseMint(ctx, t.Address)
	if err != nil || mi == nil {
		mi = &providers.MintInfo{ParseError: true}
	}

	if !mi.ParseError {
		if mi.MintAuthority != nil && mi.FreezeAuthority != nil {
			w.reject(t, "both_authorities_active")
			return
		}
		if len(mi.Dangerous) > 0 {
			w.reject(t, "dangerous_extension")
			return
		}
	}

	sim, err := w.prov.SwapQuote.SimulateSell(ctx, t.Address, 1)
	if err != nil || sim == nil {
		sim = &providers.SellSimResult{APIError: true}
	}
	// "No route" alone can be an aggregator lag on a seconds-old pool.
	// It only rejects when the mint authority is also still active.
	if sim.NoRoute && !sim.APIError && mi.MintAuthority != nil {
		w.reject(t, "unsellable_with_mint_authority")
		return
	}

	boost := mintRiskBoost(mi)

	if w.paper != nil {
		w.microSnipe(ctx, t)
	}

	next := &Task{
		Address:        t.Address,
		Chain:          t.Chain,
		TokenID:        t.TokenID,
		Stage:          domain.StageInitial,
		DiscoveredAtMs: t.DiscoveredAtMs,
		ScheduledAtMs:  t.DiscoveredAtMs + Schedule[domain.StageInitial].Offset.Milliseconds(),
		Priority:       PriorityNormal,
		RiskBoost:      boost,
		MintInfo:       mi,
		SellSim:        sim,
	}
	if err := w.queue.Put(ctx, next, false); err != nil && !errors.Is(err, ErrQueueFull) {
		w.log.Error().Err(err).Str("key", next.Key()).Msg("enqueue failed")
	}
}

func (w *Worker) reject(t *Task, reason string) {
	if w.metrics != nil {
		w.metrics.TokensRejected.WithLabelValues(reason).Inc()
	}
	w.log.Info().Str("address", t.Address).Str("reason", reason).Msg("token rejected at pre-scan")
}

// microSnipe opens the tiny pre-signal entry off a quick price lookup.
func (w *Worker) microSnipe(ctx context.Context, t *Task) {
	info, err := w.prov.Data.Info(ctx, t.Address, true)
	if err != nil || info == nil || info.PriceUSD == nil {
		return
	}
	m := trading.MarketView{
		Mint:         t.Address,
		PriceUSD:     *info.PriceUSD,
		LiquidityUSD: info.LiquidityUSD,
		SOLPriceUSD:  w.cfg.SOLPriceUSD,
	}
	if err := w.paper.OnPreScanEntry(ctx, t.TokenID, m); err != nil {
		w.log.Warn().Err(err).Str("address", t.Address).Msg("micro snipe failed")
	}
}

// fetched is the merged result of one stage's concurrent provider calls.
type fetched struct {
	info    *providers.TokenInfo
	sec     *providers.SecurityReport
	holders *providers.HolderReport
	altDEX  *providers.AltDEXQuote
	agg     *providers.AggregatorReport
	candles []providers.Candle
}

// fetch runs the stage's provider calls concurrently. Each failure is
// logged and leaves its slot nil; scoring tolerates missing data.
func (w *Worker) fetch(ctx context.Context, t *Task, plan FetchPlan) *fetched {
	var f fetched
	var wg sync.WaitGroup

	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := fn()
			w.metrics.RecordProviderCall(name, time.Since(start).Seconds(), err)
			if err != nil {
				w.log.Debug().Err(err).Str("provider", name).Str("address", t.Address).
					Msg("provider call failed, treating as missing data")
			}
		}()
	}

	if plan.Info || plan.QuickPrice {
		run("info", func() error {
			info, err := w.prov.Data.Info(ctx, t.Address, plan.QuickPrice && !plan.Info)
			f.info = info
			return err
		})
	}
	if plan.Security {
		run("security", func() error {
			sec, err := w.prov.Data.Security(ctx, t.Address)
			f.sec = sec
			return err
		})
	}
	if plan.Holders {
		run("holders", func() error {
			h, err := w.prov.Data.Holders(ctx, t.Address)
			f.holders = h
			return err
		})
	}
	if plan.AltDEX {
		run("altdex", func() error {
			q, err := w.prov.Data.AltDEX(ctx, t.Address)
			f.altDEX = q
			return err
		})
	}
	if plan.Aggregator {
		run("aggregator", func() error {
			a, err := w.prov.Data.Aggregator(ctx, t.Address)
			f.agg = a
			return err
		})
	}
	if plan.Candles {
		run("candles", func() error {
			c, err := w.prov.Data.Candles(ctx, t.Address, 60)
			f.candles = c
			return err
		})
	}

	wg.Wait()
	return &f
}

// enrich executes a normal stage: fetch, persist, score, signal, trade,
// enqueue the next stage.
func (w *Worker) enrich(ctx context.Context, t *Task) {
	plan, ok := Schedule[t.Stage]
	if !ok {
		return
	}

	f := w.fetch(ctx, t, plan.Fetch)
	nowMs := w.now()

	prev, err := w.stores.Snapshots.GetLatest(ctx, t.TokenID)
	if err != nil {
		prev = nil
	}

	snap := buildSnapshot(t, f, nowMs)
	sctx := w.buildContext(ctx, t, f, snap, prev, nowMs)

	snap.ScoreV2 = scoring.ScoreV2(sctx)
	snap.ScoreV3 = scoring.ScoreV3(sctx)
	w.metrics.RecordScores(snap.ScoreV2, snap.ScoreV3)

	// A failed persist loses this snapshot only; the stage continues
	// from in-memory data and the next stage is still enqueued.
	snapID, err := w.stores.Snapshots.Insert(ctx, snap)
	if err != nil {
		w.log.Error().Err(err).Str("address", t.Address).Msg("snapshot persist failed")
	} else {
		w.persistHolders(ctx, t, f, snapID)
		w.mirrorTimeseries(ctx, t, snap)
	}

	if f.sec != nil {
		w.persistSecurity(ctx, t, f.sec, nowMs)
	}

	isRug := w.updateOutcome(ctx, t, snap, nowMs)

	res := signals.Evaluate(sctx, snap.ScoreV3)
	sig := &domain.Signal{
		TokenID:      t.TokenID,
		Status:       res.Action,
		Score:        snap.ScoreV3,
		NetScore:     res.Net,
		RulesFired:   res.RuleNames(),
		PriceUSD:     snap.PriceUSD,
		MarketCapUSD: snap.MarketCapUSD,
		LiquidityUSD: snap.LiquidityUSD,
		CreatedAt:    nowMs,
		UpdatedAt:    nowMs,
	}
	if err := w.stores.Signals.Transition(ctx, sig); err != nil {
		w.log.Error().Err(err).Str("address", t.Address).Msg("signal transition failed")
	}
	w.metrics.RecordSignal(sig.Status.String())

	w.trade(ctx, t, sig, snap, isRug)

	if t.Stage == domain.StageInitial && w.paper != nil {
		w.microSnipe(ctx, t)
	}

	if plan.PruneBelow > 0 && snap.ScoreV3 < plan.PruneBelow {
		if w.metrics != nil {
			w.metrics.TokensPruned.WithLabelValues(string(t.Stage)).Inc()
		}
		w.log.Info().Str("address", t.Address).Int("score", snap.ScoreV3).
			Int("prev_score", t.PrevScore).Str("stage", string(t.Stage)).Msg("token pruned")
		return
	}

	w.enqueueNext(ctx, t, snap.ScoreV3)
}

// enqueueNext schedules the following stage, carrying PRE_SCAN results
// and the score this stage just computed.
func (w *Worker) enqueueNext(ctx context.Context, t *Task, score int) {
	next := t.Stage.Next()
	if next == "" {
		return
	}
	task := &Task{
		Address:        t.Address,
		Chain:          t.Chain,
		TokenID:        t.TokenID,
		Stage:          next,
		DiscoveredAtMs: t.DiscoveredAtMs,
		ScheduledAtMs:  t.DiscoveredAtMs + Schedule[next].Offset.Milliseconds(),
		Priority:       PriorityNormal,
		PrevScore:      score,
		RiskBoost:      t.RiskBoost,
		MintInfo:       t.MintInfo,
		SellSim:        t.SellSim,
	}
	if err := w.queue.Put(ctx, task, false); err != nil && !errors.Is(err, ErrQueueFull) {
		w.log.Error().Err(err).Str("key", task.Key()).Msg("enqueue failed")
	}
}

// trade drives the traders off the fresh signal and snapshot.
func (w *Worker) trade(ctx context.Context, t *Task, sig *domain.Signal, snap *domain.Snapshot, isRug bool) {
	if snap.PriceUSD == nil {
		return
	}
	m := trading.MarketView{
		Mint:         t.Address,
		PriceUSD:     *snap.PriceUSD,
		LiquidityUSD: snap.LiquidityUSD,
		LPRemovedPct: snap.LPRemovedPct,
		IsRug:        isRug,
		SOLPriceUSD:  w.cfg.SOLPriceUSD,
	}

	if w.paper != nil {
		if err := w.paper.OnSignal(ctx, sig, m); err != nil {
			w.log.Error().Err(err).Str("address", t.Address).Msg("paper signal handling failed")
		}
		if err := w.paper.UpdatePositions(ctx, t.TokenID, m); err != nil {
			w.log.Error().Err(err).Str("address", t.Address).Msg("paper position update failed")
		}
	}
	if w.real != nil {
		if err := w.real.OnSignal(ctx, sig, m); err != nil {
			w.log.Error().Err(err).Str("address", t.Address).Msg("real signal handling failed")
		}
		if err := w.real.UpdatePositions(ctx, t.TokenID, m); err != nil {
			w.log.Error().Err(err).Str("address", t.Address).Msg("real position update failed")
		}
	}
	if w.copier != nil {
		if err := w.copier.UpdatePositions(ctx, t.TokenID, m); err != nil {
			w.log.Error().Err(err).Str("address", t.Address).Msg("copy position update failed")
		}
	}
}

// persistHolders stores the ranked holder rows for the snapshot.
func (w *Worker) persistHolders(ctx context.Context, t *Task, f *fetched, snapID int64) {
	if f.holders == nil || len(f.holders.Top) == 0 {
		return
	}
	rows := make([]*domain.TopHolder, 0, len(f.holders.Top))
	for _, h := range f.holders.Top {
		rows = append(rows, &domain.TopHolder{
			SnapshotID: snapID,
			TokenID:    t.TokenID,
			Rank:       h.Rank,
			Wallet:     h.Wallet,
			Balance:    h.Balance,
			SupplyPct:  h.SupplyPct,
			PnLUSD:     h.PnLUSD,
		})
	}
	if err := w.stores.Snapshots.InsertHolders(ctx, rows); err != nil {
		w.log.Error().Err(err).Str("address", t.Address).Msg("holder persist failed")
	}
}

// persistSecurity upserts the security report.
func (w *Worker) persistSecurity(ctx context.Context, t *Task, sec *providers.SecurityReport, nowMs int64) {
	row := &domain.TokenSecurity{
		TokenID:           t.TokenID,
		Mintable:          sec.Mintable,
		LPBurned:          sec.LPBurned,
		LPLocked:          sec.LPLocked,
		IsHoneypot:        sec.IsHoneypot,
		ContractRenounced: sec.ContractRenounced,
		BuyTaxPct:         sec.BuyTaxPct,
		SellTaxPct:        sec.SellTaxPct,
		LPLockDays:        sec.LPLockDays,
		Top10Pct:          sec.Top10Pct,
		DevBalancePct:     sec.DevBalancePct,
		RugcheckScore:     sec.RugcheckScore,
		SolSnifferScore:   sec.SolSnifferScore,
		Risks:             sec.Risks,
		UpdatedAt:         nowMs,
	}
	if err := w.stores.Security.Upsert(ctx, row); err != nil {
		w.log.Error().Err(err).Str("address", t.Address).Msg("security persist failed")
	}
}

// mirrorTimeseries appends the analytic point. Best-effort by contract.
func (w *Worker) mirrorTimeseries(ctx context.Context, t *Task, snap *domain.Snapshot) {
	if w.stores.Timeseries == nil {
		return
	}
	point := &storage.SnapshotPoint{
		TokenID:     t.TokenID,
		Address:     t.Address,
		Stage:       string(t.Stage),
		TimestampMs: snap.TimestampMs,
		ScoreV2:     int32(snap.ScoreV2),
		ScoreV3:     int32(snap.ScoreV3),
	}
	if snap.PriceUSD != nil {
		point.PriceUSD = *snap.PriceUSD
	}
	if snap.MarketCapUSD != nil {
		point.MarketCapUSD = *snap.MarketCapUSD
	}
	if snap.LiquidityUSD != nil {
		point.LiquidityUSD = *snap.LiquidityUSD
	}
	if snap.Volume1hUSD != nil {
		point.Volume1hUSD = *snap.Volume1hUSD
	}
	if snap.HolderCount != nil {
		point.HolderCount = int32(*snap.HolderCount)
	}
	if err := w.stores.Timeseries.InsertPoint(ctx, point); err != nil {
		w.log.Warn().Err(err).Str("address", t.Address).Msg("timeseries mirror failed")
	}
}

// updateOutcome raises the peak fields, finalises at HOUR_24, and
// mirrors the outcome into the token's signals. Reports whether the
// token currently looks rugged.
func (w *Worker) updateOutcome(ctx context.Context, t *Task, snap *domain.Snapshot, nowMs int64) bool {
	existing, err := w.stores.Outcomes.GetByToken(ctx, t.TokenID)
	if err != nil {
		existing = nil
	}

	o := &domain.TokenOutcome{TokenID: t.TokenID, UpdatedAt: nowMs}

	initial := snap.MarketCapUSD
	if existing != nil && existing.InitialMcapUSD != nil {
		initial = existing.InitialMcapUSD
	}
	o.InitialMcapUSD = initial

	if snap.MarketCapUSD != nil {
		o.PeakMcapUSD = snap.MarketCapUSD
		if initial != nil && *initial > 0 {
			mult := *snap.MarketCapUSD / *initial
			o.PeakMultiplier = &mult
		}
		elapsed := nowMs - t.DiscoveredAtMs
		o.TimeToPeakMs = &elapsed
	}
	if snap.PriceUSD != nil {
		o.PeakPriceUSD = snap.PriceUSD
	}

	// In-flight rug detection: price collapsed at least 90% from peak.
	isRug := false
	peakPrice := o.PeakPriceUSD
	if existing != nil && greaterFloat(existing.PeakPriceUSD, peakPrice) {
		peakPrice = existing.PeakPriceUSD
	}
	if snap.PriceUSD != nil && peakPrice != nil && *peakPrice > 0 &&
		*snap.PriceUSD <= *peakPrice*(1-rugDrawdownFraction) {
		isRug = true
	}
	if existing != nil && existing.IsRug {
		isRug = true
	}
	o.IsRug = isRug

	if t.Stage == domain.StageHour24 {
		o.FinalMcapUSD = snap.MarketCapUSD
		if snap.MarketCapUSD != nil && initial != nil && *initial > 0 {
			final := *snap.MarketCapUSD / *initial
			o.FinalMultiplier = &final

			peakMult := o.PeakMultiplier
			if existing != nil && greaterFloat(existing.PeakMultiplier, peakMult) {
				peakMult = existing.PeakMultiplier
			}
			if peakMult != nil && *peakMult > 0 && final <= *peakMult*(1-rugDrawdownFraction) {
				o.IsRug = true
				isRug = true
			}
		}
	}

	if err := w.stores.Outcomes.Upsert(ctx, o); err != nil {
		w.log.Error().Err(err).Str("address", t.Address).Msg("outcome persist failed")
		return isRug
	}

	w.mirrorSignalOutcome(ctx, t, isRug)

	if t.Stage == domain.StageHour24 {
		w.aggregateCreator(ctx, t, nowMs)
	}
	return isRug
}

// mirrorSignalOutcome copies the stored outcome into the token's
// signal rows for later calibration queries.
func (w *Worker) mirrorSignalOutcome(ctx context.Context, t *Task, isRug bool) {
	stored, err := w.stores.Outcomes.GetByToken(ctx, t.TokenID)
	if err != nil {
		return
	}
	var peakROI *float64
	if stored.PeakMultiplier != nil {
		roi := (*stored.PeakMultiplier - 1) * 100
		peakROI = &roi
	}
	rug := isRug
	if err := w.stores.Signals.UpdateOutcome(ctx, t.TokenID, stored.PeakMultiplier, peakROI, &rug); err != nil {
		w.log.Warn().Err(err).Str("address", t.Address).Msg("signal outcome mirror failed")
	}
}

// aggregateCreator rolls the finalised outcome into the creator's
// profile and recomputes the risk score.
func (w *Worker) aggregateCreator(ctx context.Context, t *Task, nowMs int64) {
	tok, err := w.stores.Tokens.GetByID(ctx, t.TokenID)
	if err != nil || tok.Creator == nil || *tok.Creator == "" {
		return
	}
	outcome, err := w.stores.Outcomes.GetByToken(ctx, t.TokenID)
	if err != nil {
		return
	}

	profile, err := w.stores.Creators.GetByCreator(ctx, *tok.Creator)
	if err != nil {
		profile = &domain.CreatorProfile{Creator: *tok.Creator}
	}

	profile.TotalLaunches++
	if outcome.IsRug {
		profile.RugCount++
	}
	if outcome.PeakMultiplier != nil && *outcome.PeakMultiplier >= successPeakMultiplier {
		profile.SuccessCount++
	}
	if outcome.PeakMultiplier != nil {
		avg := *outcome.PeakMultiplier
		if profile.AvgPeakMult != nil {
			n := float64(profile.TotalLaunches)
			avg = (*profile.AvgPeakMult*(n-1) + avg) / n
		}
		profile.AvgPeakMult = &avg
	}
	if profile.TotalLaunches > 0 {
		profile.RiskScore = profile.RugCount * 100 / profile.TotalLaunches
	}
	profile.UpdatedAt = nowMs

	if err := w.stores.Creators.Upsert(ctx, profile); err != nil {
		w.log.Warn().Err(err).Str("creator", *tok.Creator).Msg("creator profile persist failed")
	}
}

// buildSnapshot assembles the snapshot row from the fetched views.
func buildSnapshot(t *Task, f *fetched, nowMs int64) *domain.Snapshot {
	snap := &domain.Snapshot{
		TokenID:     t.TokenID,
		Stage:       t.Stage,
		TimestampMs: nowMs,
	}
	if f.info != nil {
		snap.PriceUSD = f.info.PriceUSD
		snap.MarketCapUSD = f.info.MarketCapUSD
		snap.LiquidityUSD = f.info.LiquidityUSD
		snap.Volume5mUSD = f.info.Volume5mUSD
		snap.Volume1hUSD = f.info.Volume1hUSD
		snap.Volume24hUSD = f.info.Volume24hUSD
		snap.Buys5m = f.info.Buys5m
		snap.Sells5m = f.info.Sells5m
		snap.Buys1h = f.info.Buys1h
		snap.Sells1h = f.info.Sells1h
		snap.Buys24h = f.info.Buys24h
		snap.Sells24h = f.info.Sells24h
		snap.HolderCount = f.info.HolderCount
		snap.LPRemovedPct = f.info.LPRemovedPct
	}
	if f.holders != nil {
		if snap.HolderCount == nil && f.holders.TotalHolders > 0 {
			n := f.holders.TotalHolders
			snap.HolderCount = &n
		}
		top10 := f.holders.Top10Pct
		snap.Top10Pct = &top10
		smart := f.holders.SmartWallets
		snap.SmartWallets = &smart
	}
	if f.altDEX != nil {
		snap.AltDEXPriceUSD = f.altDEX.PriceUSD
		if snap.PriceUSD == nil {
			snap.PriceUSD = f.altDEX.PriceUSD
		}
		if snap.LiquidityUSD == nil {
			snap.LiquidityUSD = f.altDEX.LiquidityUSD
		}
	}
	if f.agg != nil {
		snap.AggregatorPriceUSD = f.agg.PriceUSD
	}
	if len(f.candles) > 0 {
		vol := candleVolatilityPct(f.candles)
		snap.VolatilityPct = &vol
	}
	return snap
}

// candleVolatilityPct is the high-low range of the recent candles as a
// percent of the last close.
func candleVolatilityPct(candles []providers.Candle) float64 {
	high, low := candles[0].High, candles[0].Low
	for _, c := range candles[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	last := candles[len(candles)-1].Close
	if last <= 0 {
		return 0
	}
	return (high - low) / last * 100
}

// buildContext assembles the scoring/signals context for this step.
func (w *Worker) buildContext(ctx context.Context, t *Task, f *fetched, snap *domain.Snapshot, prev *domain.Snapshot, nowMs int64) *scoring.Context {
	c := &scoring.Context{
		PriceUSD:     snap.PriceUSD,
		MarketCapUSD: snap.MarketCapUSD,
		LiquidityUSD: snap.LiquidityUSD,
		Volume5mUSD:  snap.Volume5mUSD,
		Volume1hUSD:  snap.Volume1hUSD,
		Volume24hUSD: snap.Volume24hUSD,
		Buys5m:       snap.Buys5m,
		Sells5m:      snap.Sells5m,
		Buys1h:       snap.Buys1h,
		Sells1h:      snap.Sells1h,
		HolderCount:  snap.HolderCount,
		Top10Pct:     snap.Top10Pct,
		SmartWallets: snap.SmartWallets,
		LPRemovedPct: snap.LPRemovedPct,
		AgeMs:        nowMs - t.DiscoveredAtMs,

		AltDEXPriceUSD: snap.AltDEXPriceUSD,

		MintRiskBoost: t.RiskBoost,
	}

	if f.info != nil && f.info.IsBanned {
		c.MetadataBanned = true
	}
	if f.agg != nil {
		c.AggregatorPriceUSD = f.agg.PriceUSD
		c.AggregatorHoneypot = f.agg.IsHoneypot
	}

	if prev != nil {
		c.PrevPriceUSD = prev.PriceUSD
		c.PrevHolderCount = prev.HolderCount
		c.PrevVolume5mUSD = prev.Volume5mUSD
		ts := prev.TimestampMs
		c.PrevSnapshotMs = &ts

		if snap.HolderCount != nil && prev.HolderCount != nil && nowMs > prev.TimestampMs {
			minutes := float64(nowMs-prev.TimestampMs) / 60000
			if minutes > 0 {
				v := float64(*snap.HolderCount-*prev.HolderCount) / minutes
				c.HolderVelocityPerMin = &v
			}
		}
	}

	if t.SellSim != nil && t.SellSim.NoRoute && !t.SellSim.APIError {
		c.SellSimFailed = true
	}
	if t.MintInfo != nil && len(t.MintInfo.Dangerous) > 0 {
		c.DangerousExtensions = true
	}

	// Security context: prefer this stage's fetch, fall back to the
	// stored row from an earlier stage.
	sec := f.sec
	if sec == nil {
		if stored, err := w.stores.Security.GetByToken(ctx, t.TokenID); err == nil {
			sec = &providers.SecurityReport{
				Mintable:          stored.Mintable,
				LPBurned:          stored.LPBurned,
				LPLocked:          stored.LPLocked,
				IsHoneypot:        stored.IsHoneypot,
				ContractRenounced: stored.ContractRenounced,
				BuyTaxPct:         stored.BuyTaxPct,
				SellTaxPct:        stored.SellTaxPct,
				Top10Pct:          stored.Top10Pct,
				DevBalancePct:     stored.DevBalancePct,
				RugcheckScore:     stored.RugcheckScore,
				SolSnifferScore:   stored.SolSnifferScore,
				Risks:             stored.Risks,
			}
		}
	}
	if sec != nil {
		c.HasSecurity = true
		c.Mintable = sec.Mintable
		c.LPBurned = sec.LPBurned
		c.LPLocked = sec.LPLocked
		c.IsHoneypot = sec.IsHoneypot
		c.ContractRenounced = sec.ContractRenounced
		c.BuyTaxPct = sec.BuyTaxPct
		c.SellTaxPct = sec.SellTaxPct
		c.DevBalancePct = sec.DevBalancePct
		c.RugcheckScore = sec.RugcheckScore
		c.SolSnifferScore = sec.SolSnifferScore
		c.RugcheckRisks = sec.Risks
	}

	// Creator risk from the aggregated profile.
	if tok, err := w.stores.Tokens.GetByID(ctx, t.TokenID); err == nil {
		c.NoSocials = tok.Twitter == nil && tok.Telegram == nil && tok.Website == nil
		if tok.Creator != nil {
			if profile, err := w.stores.Creators.GetByCreator(ctx, *tok.Creator); err == nil {
				risk := profile.RiskScore
				c.CreatorRiskScore = &risk
				c.SerialDeployer = profile.TotalLaunches >= 5 && profile.RugCount >= 2
			}
		}
		if tok.Symbol != nil {
			if n, err := w.stores.Tokens.CountRugsBySymbol(ctx, *tok.Symbol); err == nil {
				c.SymbolRugCount = n
			}
		}
	}

	return c
}

// greaterFloat reports a > b for nullable floats; nil never wins.
func greaterFloat(a, b *float64) bool {
	if a == nil {
		return false
	}
	return b == nil || *a > *b
}

// mintRiskBoost accumulates the soft-flag risk boost 0..100.
func mintRiskBoost(mi *providers.MintInfo) int {
	if mi == nil || mi.ParseError {
		return 0
	}
	boost := 0
	for _, ext := range mi.Risky {
		switch ext {
		case "transferFeeConfig":
			boost += 25
		case "defaultAccountState":
			boost += 20
		default:
			boost += 10
		}
	}
	// A single live authority is a softer flag than both.
	if (mi.MintAuthority != nil) != (mi.FreezeAuthority != nil) {
		boost += 30
	}
	if boost > 100 {
		boost = 100
	}
	return boost
}
