package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Garsondee/battlecore/internal/battle"
	"github.com/Garsondee/battlecore/internal/config"
	"github.com/Garsondee/battlecore/internal/logging"
	"github.com/Garsondee/battlecore/internal/scenario"
	"github.com/Garsondee/battlecore/internal/stats"
	"github.com/Garsondee/battlecore/internal/telemetry"
)

type runStats struct {
	runIndex int
	seed     int64
	ticks    int
	outcome  battle.Outcome

	firstContactTurn  int
	firstShotTurn     int
	firstCasualtyTurn int
	firstPanicTurn    int

	shots      int
	hits       int
	explosions int
	reactions  int
	panics     int
	dropped    int // AI actions rejected by the engine

	casualties   map[string]int // by victim faction
	friendlyFire int
	survivors    map[string]int
	affected     map[string]struct{}
}

type runSettings struct {
	ticks int
	squad int
	opts  battle.Options
	store *stats.Store
}

func main() {
	var runs int
	var ticks int
	var seedBase int64
	var seedStep int64
	var squad int
	var scenarioName string
	var configPath string

	flag.IntVar(&runs, "runs", 5, "number of headless battles")
	flag.IntVar(&ticks, "ticks", 20000, "tick limit per battle")
	flag.Int64Var(&seedBase, "seed-base", 42, "base RNG seed for run 1")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between runs")
	flag.IntVar(&squad, "squad", 4, "units per side")
	flag.StringVar(&scenarioName, "scenario", scenario.Name, "scenario name")
	flag.StringVar(&configPath, "config", "", "battle config file (json, yaml or toml)")
	flag.Parse()

	if runs <= 0 {
		fmt.Println("error: -runs must be > 0")
		return
	}
	if ticks <= 0 {
		fmt.Println("error: -ticks must be > 0")
		return
	}
	if scenarioName != scenario.Name {
		fmt.Printf("error: unsupported scenario %q (supported: %s)\n", scenarioName, scenario.Name)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, os.Stderr)
	logger.Info().Msg("Logging set up")

	tel := telemetry.New(cfg.Telemetry.Enabled)
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown")
		}
	}()

	store, err := stats.Open(cfg.Stats.Driver, cfg.Stats.DSN, logger)
	switch {
	case errors.Is(err, stats.ErrDisabled):
		store = nil
	case err != nil:
		logger.Error().Err(err).Msg("stats store unavailable, continuing without")
		store = nil
	default:
		defer store.Close()
	}

	opts := cfg.BattleOptions()
	opts.Logger = logger
	opts.Meter = tel.Meter()
	settings := runSettings{ticks: ticks, squad: squad, opts: opts, store: store}

	fmt.Printf("=== Headless Battle Report ===\n")
	fmt.Printf("scenario=%s runs=%d ticks=%d squad=%d seed_base=%d seed_step=%d\n\n", scenarioName, runs, ticks, squad, seedBase, seedStep)

	all := make([]runStats, 0, runs)
	for i := 0; i < runs; i++ {
		seed := seedBase + int64(i)*seedStep
		rs, err := runSkirmish(i+1, seed, settings, logger)
		if err != nil {
			logger.Error().Err(err).Int64("seed", seed).Msg("run failed")
			continue
		}
		all = append(all, rs)
		printRun(os.Stdout, rs)
	}

	printAggregate(os.Stdout, all)
	if store != nil {
		if sum, err := store.Summary(); err != nil {
			logger.Error().Err(err).Msg("stats summary")
		} else {
			printStoreSummary(os.Stdout, sum)
		}
	}
	if tel.Enabled() {
		totals, err := tel.Totals(context.Background())
		if err != nil {
			logger.Error().Err(err).Msg("collect metrics")
		}
		printMetrics(os.Stdout, totals)
	}
}

func runSkirmish(runIndex int, seed int64, s runSettings, logger zerolog.Logger) (runStats, error) {
	sk, err := scenario.Build(seed, scenario.WithSquadSize(s.squad))
	if err != nil {
		return runStats{}, err
	}
	opts := s.opts
	opts.Logger = sk.Logger(logger)
	deps := battle.Dependencies{Options: opts, AutoPlay: true}
	if s.store != nil {
		rec, err := s.store.Begin(seed, opts)
		if err != nil {
			logger.Error().Err(err).Msg("stats recording disabled for this run")
		} else {
			deps.Stats = rec
		}
	}

	g := sk.Start(deps)
	tick := 0
	for ; tick < s.ticks && !g.Outcome().Over; tick++ {
		g.Think()
	}
	return collectRunStats(runIndex, seed, tick, g), nil
}

func collectRunStats(runIndex int, seed int64, ticks int, g *battle.Game) runStats {
	log := g.Log()
	bf := g.Battlefield()
	rs := runStats{
		runIndex:          runIndex,
		seed:              seed,
		ticks:             ticks,
		outcome:           g.Outcome(),
		firstContactTurn:  firstTurn(log.Entries(), battle.CatVision, "spotted", ""),
		firstShotTurn:     firstTurn(log.Entries(), battle.CatShot, "", ""),
		firstCasualtyTurn: firstTurn(log.Entries(), battle.CatCasualty, "casualty", ""),
		firstPanicTurn:    firstTurn(log.Entries(), battle.CatMorale, "panicked", ""),
		shots:             log.Count(battle.CatShot, ""),
		hits:              log.Count(battle.CatHit, ""),
		explosions:        log.Count(battle.CatExplode, "explosion"),
		reactions:         log.Count(battle.CatReaction, "fired"),
		panics:            log.Count(battle.CatMorale, "panicked") + log.Count(battle.CatMorale, "berserk"),
		dropped:           log.Count(battle.CatAction, "ai_dropped"),
		casualties:        map[string]int{},
		survivors:         map[string]int{},
		affected:          map[string]struct{}{},
	}
	for _, e := range log.Filter(battle.CatCasualty, "casualty") {
		rs.casualties[e.Faction]++
		rs.affected[e.Unit] = struct{}{}
		if strings.Contains(e.Value, "friendly=true") {
			rs.friendlyFire++
		}
	}
	for _, f := range []battle.Faction{battle.FactionPlayer, battle.FactionHostile} {
		rs.survivors[f.String()] = bf.LiveUnits(f)
	}
	return rs
}

func firstTurn(entries []battle.LogEntry, category, key, contains string) int {
	for _, e := range entries {
		if e.Category != category || (key != "" && e.Key != key) {
			continue
		}
		if contains == "" || strings.Contains(e.Value, contains) {
			return e.Turn
		}
	}
	return -1
}

// verdict names how a run ended.
func verdict(rs runStats) string {
	switch {
	case !rs.outcome.Over:
		return "unfinished"
	case rs.outcome.Aborted:
		return "aborted"
	default:
		return rs.outcome.Winner.String() + "_win"
	}
}

func printRun(w io.Writer, rs runStats) {
	fmt.Fprintf(w, "--- Run %d (seed=%d) ---\n", rs.runIndex, rs.seed)
	fmt.Fprintf(w, "result: %s reason=%s turns=%d ticks=%d\n", verdict(rs), orNA(rs.outcome.Reason), rs.outcome.Turn, rs.ticks)
	fmt.Fprintf(w, "phase_markers: first_contact=%d first_shot=%d first_casualty=%d first_panic=%d\n",
		rs.firstContactTurn, rs.firstShotTurn, rs.firstCasualtyTurn, rs.firstPanicTurn)
	fmt.Fprintf(w, "event_totals: shots=%d hits=%d explosions=%d reactions=%d panics=%d ai_dropped=%d\n",
		rs.shots, rs.hits, rs.explosions, rs.reactions, rs.panics, rs.dropped)
	fmt.Fprintf(w, "casualties: player=%d hostile=%d friendly_fire=%d\n",
		rs.casualties["player"], rs.casualties["hostile"], rs.friendlyFire)
	fmt.Fprintf(w, "survivors: player=%d hostile=%d\n", rs.survivors["player"], rs.survivors["hostile"])
	fmt.Fprintf(w, "affected_labels: %s\n\n", joinSet(rs.affected))
}

func printAggregate(w io.Writer, all []runStats) {
	verdicts := map[string]int{}
	totalShots := 0
	totalHits := 0
	totalExplosions := 0
	totalReactions := 0
	totalPanics := 0
	totalFriendly := 0
	casualties := map[string]int{}

	contactTurns := make([]int, 0, len(all))
	casualtyTurns := make([]int, 0, len(all))
	lengths := make([]int, 0, len(all))

	for _, rs := range all {
		verdicts[verdict(rs)]++
		totalShots += rs.shots
		totalHits += rs.hits
		totalExplosions += rs.explosions
		totalReactions += rs.reactions
		totalPanics += rs.panics
		totalFriendly += rs.friendlyFire
		for f, n := range rs.casualties {
			casualties[f] += n
		}
		if rs.firstContactTurn >= 0 {
			contactTurns = append(contactTurns, rs.firstContactTurn)
		}
		if rs.firstCasualtyTurn >= 0 {
			casualtyTurns = append(casualtyTurns, rs.firstCasualtyTurn)
		}
		if rs.outcome.Over {
			lengths = append(lengths, rs.outcome.Turn)
		}
	}

	fmt.Fprintln(w, "=== Aggregate ===")
	fmt.Fprintf(w, "runs=%d\n", len(all))
	fmt.Fprintf(w, "results: %s\n", joinCounts(verdicts))
	fmt.Fprintf(w, "avg_events_per_run: shots=%.1f hits=%.1f explosions=%.1f reactions=%.1f panics=%.1f\n",
		avg(totalShots, len(all)), avg(totalHits, len(all)), avg(totalExplosions, len(all)),
		avg(totalReactions, len(all)), avg(totalPanics, len(all)))
	fmt.Fprintf(w, "hit_rate=%s\n", percent(totalHits, totalShots))
	fmt.Fprintf(w, "avg_casualties_per_run: player=%.1f hostile=%.1f friendly_fire=%.1f\n",
		avg(casualties["player"], len(all)), avg(casualties["hostile"], len(all)), avg(totalFriendly, len(all)))
	fmt.Fprintf(w, "phase_marker_avg_turns: first_contact=%s first_casualty=%s battle_length=%s\n",
		avgString(contactTurns), avgString(casualtyTurns), avgString(lengths))
}

func printStoreSummary(w io.Writer, sum stats.Summary) {
	fmt.Fprintln(w, "\n=== Recorded Statistics ===")
	fmt.Fprintf(w, "battles=%d aborted=%d kills=%d friendly_fire=%d\n", sum.Battles, sum.Aborted, sum.Kills, sum.FriendlyFire)
	wins := map[string]int{}
	for k, v := range sum.Wins {
		wins[k] = int(v)
	}
	byRule := map[string]int{}
	for k, v := range sum.KillsByRule {
		byRule[k] = int(v)
	}
	fmt.Fprintf(w, "wins: %s\n", joinCounts(wins))
	fmt.Fprintf(w, "kills_by_rule: %s\n", joinCounts(byRule))
}

func printMetrics(w io.Writer, totals []telemetry.Counter) {
	fmt.Fprintln(w, "\n=== Engine Metrics ===")
	for _, c := range totals {
		fmt.Fprintf(w, "  %s=%d\n", c.Name, c.Value)
	}
}

func avg(sum int, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func avgString(vals []int) string {
	if len(vals) == 0 {
		return "n/a"
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(len(vals)))
}

func percent(n, of int) string {
	if of == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%%", float64(n)/float64(of)*100)
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}

func joinCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}

func joinSet(s map[string]struct{}) string {
	if len(s) == 0 {
		return "none"
	}
	labels := make([]string, 0, len(s))
	for k := range s {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return strings.Join(labels, ",")
}
