package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// GameOptions configure one match. Zero durations disable the
// corresponding wait (no per-tick timeout, no inter-tick delay, no
// registration deadline).
type GameOptions struct {
	NumberOfTicks      int
	TimePerTick        time.Duration
	DelayBetweenTicks  time.Duration
	MaxWaitBeforeStart time.Duration
	ExpectedTeams      int
	UnitsPerTeam       int

	// Seed drives the shuffles (fairness orderings, spawn fallbacks).
	// Zero picks a time-based seed.
	Seed int64

	Rules Rules
}

func DefaultGameOptions() GameOptions {
	return GameOptions{
		NumberOfTicks: 100,
		ExpectedTeams: 3,
		UnitsPerTeam:  3,
		Rules:         DefaultRules(),
	}
}

func (o GameOptions) validate() error {
	if o.DelayBetweenTicks < 0 {
		return &OptionError{Name: "delayBetweenTicks", Reason: "the value needs to be a positive duration"}
	}
	if o.TimePerTick < 0 {
		return &OptionError{Name: "timePerTick", Reason: "the value needs to be a positive duration"}
	}
	if o.MaxWaitBeforeStart < 0 {
		return &OptionError{Name: "maxWaitBeforeStart", Reason: "the value needs to be a positive duration"}
	}
	if err := validateNonZeroPositive(o.NumberOfTicks, "numberOfTicks"); err != nil {
		return err
	}
	if err := validateNonZeroPositive(o.UnitsPerTeam, "unitsPerTeam"); err != nil {
		return err
	}
	if err := validateNonZeroPositive(o.ExpectedTeams, "expectedTeams"); err != nil {
		return err
	}
	if err := validatePositive(o.Rules.WarmUpTicks, "warmUpTicks"); err != nil {
		return err
	}
	return validatePositive(o.Rules.WarmStartTicks, "warmStartTicks")
}

// GameResult is one team's final ranking entry.
type GameResult struct {
	Rank     int    `json:"rank"`
	TeamName string `json:"teamName"`
	Score    int    `json:"score"`
}

// TeamStats accumulates the engine-side telemetry for one team.
type TeamStats struct {
	ResponseTimes   []time.Duration
	ProcessingTimes []time.Duration
	UnitsPerTick    []int
	Timeouts        int
}

// TeamSummary is the end-of-match telemetry rollup for one team.
type TeamSummary struct {
	TeamID            string
	TeamName          string
	Score             int
	Units             int
	Timeouts          int
	AvgResponseTime   time.Duration
	AvgProcessingTime time.Duration
}

// Viewer is a passive observer of the match. Implementations must not
// block the engine; emissions are fire-and-forget.
type Viewer interface {
	OnTick(tick ViewerTick)
	OnCommand(tick ViewerTick, playingTeamID string)
}

// CompletedFunc receives the final ranking, or an empty ranking plus
// the causing error when the match aborts.
type CompletedFunc func(results []GameResult, err error)

// Game drives one match: registration, the tick loop with bounded
// command solicitation, fairness-ordered sequential application, and
// completion. All simulation state is confined to the goroutine
// running Run; only registration and listener lists are guarded for
// concurrent transport access.
type Game struct {
	opts  GameOptions
	rules Rules
	log   *log.Logger
	rng   *rand.Rand

	gameMap *GameMap

	mu          sync.Mutex
	teams       []*Team
	viewers     []Viewer
	onCompleted []CompletedFunc
	running     bool
	completed   bool
	startCh     chan struct{}
	startOnce   sync.Once

	currentTick int
	orderings   PlayOrderings
	stats       map[string]*TeamStats

	unitSeq atomic.Int64
}

// NewGame validates the options and binds the match to an already
// loaded map.
func NewGame(opts GameOptions, m *GameMap, logger *log.Logger) (*Game, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, &OptionError{Name: "map", Reason: "a loaded map is required"}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	g := &Game{
		opts:    opts,
		rules:   opts.Rules,
		log:     logger,
		rng:     rand.New(rand.NewSource(seed)),
		gameMap: m,
		startCh: make(chan struct{}),
		stats:   map[string]*TeamStats{},
	}
	logger.Printf("the game will have %d team(s) and %d unit(s) per team", opts.ExpectedTeams, opts.UnitsPerTeam)
	return g, nil
}

func (g *Game) Map() *GameMap        { return g.gameMap }
func (g *Game) CurrentTick() int     { return g.currentTick }
func (g *Game) Options() GameOptions { return g.opts }

func (g *Game) IsRunning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

func (g *Game) IsCompleted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.completed
}

// Teams returns the registered teams. Stable once the match started.
func (g *Game) Teams() []*Team {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*Team(nil), g.teams...)
}

func (g *Game) GetTeam(teamID string) *Team {
	for _, t := range g.Teams() {
		if t.ID == teamID {
			return t
		}
	}
	return nil
}

func (g *Game) GetUnit(unitID string) *Unit {
	for _, t := range g.Teams() {
		if u := t.GetUnit(unitID); u != nil {
			return u
		}
	}
	return nil
}

func (g *Game) nextUnitID() string {
	return strconv.FormatInt(g.unitSeq.Add(1), 10)
}

func (g *Game) registerTeam(t *Team) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running || g.completed {
		return &TeamError{TeamID: t.ID, TeamName: t.Name, Msg: "game already running or completed, can't add team"}
	}
	for _, existing := range g.teams {
		if existing.ID == t.ID || existing == t {
			return &TeamError{TeamID: t.ID, TeamName: t.Name, Msg: "team already registered"}
		}
	}

	g.log.Printf("registering new %s to the game", t)
	g.teams = append(g.teams, t)

	if len(g.teams) == g.opts.ExpectedTeams {
		g.log.Printf("number of expected teams (%d) reached, starting the game", g.opts.ExpectedTeams)
		g.signalStart()
	}
	return nil
}

func (g *Game) signalStart() {
	g.startOnce.Do(func() { close(g.startCh) })
}

// RegisterViewer adds a passive observer. Allowed at any time.
func (g *Game) RegisterViewer(v Viewer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.viewers = append(g.viewers, v)
}

func (g *Game) DeregisterViewer(v Viewer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, existing := range g.viewers {
		if existing == v {
			g.viewers = append(g.viewers[:i], g.viewers[i+1:]...)
			return
		}
	}
}

// OnGameCompleted registers a completion listener. Delivery is
// synchronous, on the engine goroutine.
func (g *Game) OnGameCompleted(cb CompletedFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onCompleted = append(g.onCompleted, cb)
}

func (g *Game) snapshotViewers() []Viewer {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Viewer(nil), g.viewers...)
}

func (g *Game) notifyCompleted(results []GameResult, err error) {
	g.mu.Lock()
	cbs := append([]CompletedFunc(nil), g.onCompleted...)
	g.mu.Unlock()
	for _, cb := range cbs {
		cb(results, err)
	}
}

// Run waits for the start condition (expected team count reached, or
// the registration deadline elapsing with at least one team), then
// plays the match to completion.
func (g *Game) Run(ctx context.Context) error {
	if g.opts.MaxWaitBeforeStart > 0 {
		g.log.Printf("the game will start automatically after %v or when %d teams will have joined, whichever comes first",
			g.opts.MaxWaitBeforeStart, g.opts.ExpectedTeams)
		timer := time.NewTimer(g.opts.MaxWaitBeforeStart)
		defer timer.Stop()
		select {
		case <-g.startCh:
		case <-timer.C:
			g.mu.Lock()
			registered := len(g.teams)
			g.mu.Unlock()
			if registered == 0 {
				err := fmt.Errorf("max wait time for the game to start of %v exceeded but no teams were registered", g.opts.MaxWaitBeforeStart)
				g.notifyCompleted(nil, err)
				return err
			}
			g.log.Printf("starting the game automatically after waiting for %v with %d teams", g.opts.MaxWaitBeforeStart, registered)
		case <-ctx.Done():
			return ctx.Err()
		}
	} else {
		g.log.Printf("the game will start as soon as %d team(s) will join", g.opts.ExpectedTeams)
		select {
		case <-g.startCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return g.play(ctx)
}

func (g *Game) play(ctx context.Context) error {
	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		return fmt.Errorf("game is already running")
	}
	g.running = true
	teams := append([]*Team(nil), g.teams...)
	g.mu.Unlock()

	teamIDs := make([]string, 0, len(teams))
	for _, t := range teams {
		t.Score = 0
		g.stats[t.ID] = &TeamStats{}
		teamIDs = append(teamIDs, t.ID)
	}
	g.orderings = computePlayOrderings(teamIDs, g.opts.NumberOfTicks, g.rng)

	for tick := 0; tick < g.opts.NumberOfTicks; tick++ {
		if err := ctx.Err(); err != nil {
			g.log.Printf("aborting the match at tick %d: %v", tick, err)
			g.mu.Lock()
			g.running = false
			g.mu.Unlock()
			g.notifyCompleted(nil, err)
			return err
		}
		if err := g.playOneTurn(ctx, tick, teams); err != nil {
			return err
		}
		if len(teams) == 0 || allDead(teams) {
			g.log.Printf("closing game as no more teams are responding")
			break
		}
	}
	g.currentTick++

	g.mu.Lock()
	g.completed = true
	g.running = false
	g.mu.Unlock()

	for _, s := range g.TeamSummaries() {
		g.log.Printf("team stats: name=%s score=%d units=%d response_time_avg=%v processing_time_avg=%v timeouts=%d",
			s.TeamName, s.Score, s.Units, s.AvgResponseTime, s.AvgProcessingTime, s.Timeouts)
	}

	results := g.rankTeams(teams)
	g.notifyCompleted(results, nil)
	return nil
}

type fetchResult struct {
	team     *Team
	cmd      *Command
	timedOut bool
	err      error
	elapsed  time.Duration
}

func (g *Game) playOneTurn(ctx context.Context, tick int, teams []*Team) error {
	g.log.Printf("playing tick %d of %d", tick+1, g.opts.NumberOfTicks)

	g.currentTick = tick
	for _, t := range teams {
		t.computeStartOfTurn()
	}
	starting := g.Serialize()
	for _, t := range teams {
		t.resetStateOfTurn()
	}

	collected := g.collectCommands(ctx, tick, teams, starting)

	// Failures during an individual team's own fetch are isolated: the
	// team just misses the tick, or is marked dead for good when its
	// transport is gone.
	ordered := make([]fetchResult, 0, len(collected))
	for _, res := range collected {
		if res.err != nil {
			g.log.Printf("error while fetching %s command for tick %d: %v", res.team, tick, res.err)
			if isSourceClosed(res.err) && !res.team.IsDead {
				res.team.Kill()
				res.team.pushEvent(TeamEvent{Action: EventDisconnect})
				g.log.Printf("%s disconnected", res.team)
			}
			g.notifyViewersCommand(res.team.ID)
			continue
		}
		ordered = append(ordered, res)
	}

	order := g.orderings[tick]
	rank := make(map[string]int, len(order))
	for i, id := range order {
		rank[id] = i
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return rank[ordered[i].team.ID] < rank[ordered[j].team.ID]
	})

	// Anything failing from here on is fatal to the whole match.
	if err := g.applyCommands(ctx, tick, ordered); err != nil {
		g.log.Printf("an unhandled error occurred: %v", err)
		g.mu.Lock()
		g.running = false
		g.mu.Unlock()
		g.notifyCompleted(nil, err)
		return err
	}
	return nil
}

// collectCommands requests every living team's next command
// concurrently, each raced against the per-tick deadline (plus the
// warm-start allowance early in the match). A deadline expiry never
// cancels the underlying request; a late response is simply ignored.
func (g *Game) collectCommands(ctx context.Context, tick int, teams []*Team, starting Tick) []fetchResult {
	alive := make([]*Team, 0, len(teams))
	for _, t := range teams {
		if !t.IsDead {
			alive = append(alive, t)
		}
	}

	ch := make(chan fetchResult, len(alive))
	for _, team := range alive {
		go g.fetchCommand(ctx, tick, team, g.createStateForPlayer(team, starting), ch)
	}

	collected := make([]fetchResult, 0, len(alive))
	for range alive {
		res := <-ch
		if stats := g.stats[res.team.ID]; stats != nil && g.opts.TimePerTick > 0 && res.err == nil {
			stats.ResponseTimes = append(stats.ResponseTimes, res.elapsed)
			stats.UnitsPerTick = append(stats.UnitsPerTick, len(res.team.Units))
		}
		collected = append(collected, res)
	}
	return collected
}

func (g *Game) fetchCommand(ctx context.Context, tick int, team *Team, pt PlayerTick, out chan<- fetchResult) {
	started := time.Now()

	if g.opts.TimePerTick <= 0 {
		cmd, err := team.source.GetNextCommand(ctx, pt)
		out <- fetchResult{team: team, cmd: cmd, err: err, elapsed: time.Since(started)}
		return
	}

	timeout := g.opts.TimePerTick
	if tick < g.rules.WarmStartTicks {
		timeout += g.rules.WarmStartDelay
	}

	type reply struct {
		cmd *Command
		err error
	}
	inner := make(chan reply, 1)
	go func() {
		cmd, err := team.source.GetNextCommand(ctx, pt)
		inner <- reply{cmd: cmd, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-inner:
		out <- fetchResult{team: team, cmd: r.cmd, err: r.err, elapsed: time.Since(started)}
	case <-timer.C:
		out <- fetchResult{team: team, timedOut: true, elapsed: time.Since(started)}
	case <-ctx.Done():
		out <- fetchResult{team: team, err: ctx.Err(), elapsed: time.Since(started)}
	}
}

func (g *Game) applyCommands(ctx context.Context, tick int, ordered []fetchResult) error {
	for _, res := range ordered {
		stats := g.stats[res.team.ID]
		if res.cmd != nil {
			started := time.Now()
			if err := res.team.ApplyCommand(res.cmd); err != nil {
				return err
			}
			if stats != nil {
				stats.ProcessingTimes = append(stats.ProcessingTimes, time.Since(started))
			}
			// Post-command hooks: summon progress for the acting team,
			// then re-snap carried diamonds so a mid-tick pickup is
			// visible to later-ordered teams.
			for _, u := range res.team.Units {
				u.incrementSummonLevel()
			}
			g.gameMap.Diamonds.UpdatePositionsAfterTurn()
		} else {
			if stats != nil {
				stats.Timeouts++
			}
			res.team.Errors = append(res.team.Errors,
				fmt.Sprintf("No command was received in time on tick %d. Timeout value : %v", tick, g.opts.TimePerTick))
			res.team.pushEvent(TeamEvent{Action: EventCommandTimeout})
			g.log.Printf("no command was received in time for %s on tick %d", res.team, tick)
		}
		g.notifyViewersCommand(res.team.ID)
	}

	g.notifyViewersTick()

	if g.opts.DelayBetweenTicks > 0 {
		timer := time.NewTimer(g.opts.DelayBetweenTicks)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// Post-tick hooks.
	g.gameMap.Diamonds.UpdatePositionsAfterTurn()
	g.gameMap.Diamonds.IncrementPoints()
	return nil
}

func (g *Game) notifyViewersCommand(playingTeamID string) {
	vt := g.SerializeForViewer()
	for _, v := range g.snapshotViewers() {
		v.OnCommand(vt, playingTeamID)
	}
}

func (g *Game) notifyViewersTick() {
	vt := g.SerializeForViewer()
	for _, v := range g.snapshotViewers() {
		v.OnTick(vt)
	}
}

// unitAt returns the first living unit of any team at the position.
func (g *Game) unitAt(at Position) *Unit {
	g.mu.Lock()
	teams := g.teams
	g.mu.Unlock()
	for _, t := range teams {
		if u := t.UnitAt(at); u != nil {
			return u
		}
	}
	return nil
}

func (g *Game) countUnitsAt(at Position) int {
	g.mu.Lock()
	teams := g.teams
	g.mu.Unlock()
	count := 0
	for _, t := range teams {
		for _, u := range t.Units {
			if u.HasSpawned && u.Position == at {
				count++
			}
		}
	}
	return count
}

func (g *Game) createStateForPlayer(team *Team, starting Tick) PlayerTick {
	pt := PlayerTick{Tick: starting, TeamID: team.ID}
	pt.Teams = make([]TickTeam, len(starting.Teams))
	for i, tt := range starting.Teams {
		if tt.ID != team.ID {
			tt.Errors = []string{}
		}
		pt.Teams[i] = tt
	}
	return pt
}

// Serialize builds the canonical tick snapshot.
func (g *Game) Serialize() Tick {
	teams := g.Teams()
	serialized := make([]TickTeam, 0, len(teams))
	for _, t := range teams {
		serialized = append(serialized, t.Serialize())
	}
	return Tick{
		TickNumber:        g.currentTick,
		TotalTick:         g.opts.NumberOfTicks,
		Teams:             serialized,
		Map:               g.gameMap.Serialize(),
		GameConfig:        g.tickGameConfig(),
		TeamPlayOrderings: g.orderings.window(g.currentTick, g.opts.NumberOfTicks, g.rules.OrderingsHorizon),
	}
}

// SerializeForViewer builds the spectator snapshot: display tiles,
// event logs, stats, no fairness table.
func (g *Game) SerializeForViewer() ViewerTick {
	teams := g.Teams()
	serialized := make([]ViewerTickTeam, 0, len(teams))
	for _, t := range teams {
		serialized = append(serialized, ViewerTickTeam{
			TickTeam: t.Serialize(),
			Events:   append([]TeamEvent(nil), t.Events...),
			Stats:    t.Stats,
		})
	}
	return ViewerTick{
		TickNumber: g.currentTick,
		TotalTick:  g.opts.NumberOfTicks,
		Teams:      serialized,
		Map:        g.gameMap.SerializeForViewer(),
		GameConfig: g.tickGameConfig(),
	}
}

func (g *Game) tickGameConfig() TickGameConfig {
	return TickGameConfig{
		WarmUpPeriod:              g.rules.WarmUpTicks,
		PointsPerDiamond:          g.rules.PointsPerDiamond,
		MaximumDiamondSummonLevel: g.rules.MaximumSummonLevel,
		InitialDiamondSummonLevel: g.rules.InitialSummonLevel,
		MaximumUnitPerPosition:    g.rules.MaxUnitsPerPosition,
	}
}

// rankTeams orders teams by score, then pending carried points, then
// fewest deaths, then lowest average response time.
func (g *Game) rankTeams(teams []*Team) []GameResult {
	ranked := append([]*Team(nil), teams...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if ap, bp := a.PendingPoints(), b.PendingPoints(); ap != bp {
			return ap > bp
		}
		if a.NumberOfDeaths != b.NumberOfDeaths {
			return a.NumberOfDeaths < b.NumberOfDeaths
		}
		return g.avgResponseTime(a) < g.avgResponseTime(b)
	})

	results := make([]GameResult, 0, len(ranked))
	for i, t := range ranked {
		results = append(results, GameResult{Rank: i + 1, TeamName: t.Name, Score: t.Score})
	}
	return results
}

func (g *Game) avgResponseTime(t *Team) time.Duration {
	stats := g.stats[t.ID]
	if stats == nil {
		return 0
	}
	return avgDuration(stats.ResponseTimes)
}

// TeamSummaries builds the end-of-match telemetry for every team.
func (g *Game) TeamSummaries() []TeamSummary {
	teams := g.Teams()
	out := make([]TeamSummary, 0, len(teams))
	for _, t := range teams {
		s := TeamSummary{
			TeamID:   t.ID,
			TeamName: t.Name,
			Score:    t.Score,
			Units:    len(t.Units),
		}
		if stats := g.stats[t.ID]; stats != nil {
			s.Timeouts = stats.Timeouts
			s.AvgResponseTime = avgDuration(stats.ResponseTimes)
			s.AvgProcessingTime = avgDuration(stats.ProcessingTimes)
		}
		out = append(out, s)
	}
	return out
}

// StatsForTeam exposes the raw per-tick stats, mainly for tests.
func (g *Game) StatsForTeam(teamID string) *TeamStats {
	return g.stats[teamID]
}

func avgDuration(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total / time.Duration(len(ds))
}

func allDead(teams []*Team) bool {
	for _, t := range teams {
		if !t.IsDead {
			return false
		}
	}
	return true
}

func isSourceClosed(err error) bool {
	return errors.Is(err, ErrCommandSourceClosed)
}
