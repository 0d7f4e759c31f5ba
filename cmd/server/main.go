package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"diamondrush/internal/game"
	"diamondrush/internal/persistence/indexdb"
	"diamondrush/internal/persistence/replay"
	"diamondrush/internal/transport/ws"
	"diamondrush/internal/tuning"
)

func main() {
	var (
		addr       = flag.String("addr", ":8765", "http listen address")
		mapsDir    = flag.String("maps", "./maps", "maps directory")
		mapName    = flag.String("map", "", "map file name, 'empty' for a generated map, empty for a random pick")
		emptySize  = flag.Int("empty_size", 20, "side length of the generated empty map")
		configPath = flag.String("config", "./config/game.yaml", "path to game.yaml")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tokensPath = flag.String("tokens", "", "path to a yaml token->team name table (empty for open registration)")
		seed       = flag.Int64("seed", 0, "match seed (0 picks a time-based seed)")
		ticks      = flag.Int("ticks", 0, "number of ticks (overrides config when set)")
		teams      = flag.Int("teams", 0, "expected number of teams (overrides config when set)")
		record     = flag.Bool("record", true, "record matches to replay files")
		disableDB  = flag.Bool("disable_db", false, "disable the match index database")
		keepAlive  = flag.Bool("keep_alive", false, "start a fresh match after each completed one")

		listMaps     = flag.Bool("list_maps", false, "list available maps and exit")
		validateMaps = flag.Bool("validate_maps", false, "validate all maps in the maps directory and exit")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	if *listMaps || *validateMaps {
		runMapTooling(*mapsDir, *validateMaps, logger)
		return
	}

	tune, err := tuning.Load(*configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("config not found (%s); using defaults", *configPath)
		} else {
			logger.Fatalf("load config: %v", err)
		}
	}
	opts := optionsFromTuning(tune)
	if *ticks > 0 {
		opts.NumberOfTicks = *ticks
	}
	if *teams > 0 {
		opts.ExpectedTeams = *teams
	}
	opts.Seed = *seed

	tokens, err := loadTokens(*tokensPath)
	if err != nil {
		logger.Fatalf("load tokens: %v", err)
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
	}

	ctx, cancel := signalContext()
	defer cancel()

	swap := &handlerSwap{}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/v1/ws", swap)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()
	go func() {
		logger.Printf("listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("ListenAndServe: %v", err)
		}
	}()

	rc := matchRuntime{
		mapsDir:   *mapsDir,
		mapName:   *mapName,
		emptySize: *emptySize,
		dataDir:   *dataDir,
		record:    *record,
		tokens:    tokens,
		idx:       idx,
		swap:      swap,
		log:       logger,
	}

	for {
		if err := rc.playOneMatch(ctx, opts); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Printf("match ended with error: %v", err)
		}
		if !*keepAlive || ctx.Err() != nil {
			return
		}
		logger.Printf("starting a fresh match")
	}
}

type matchRuntime struct {
	mapsDir   string
	mapName   string
	emptySize int
	dataDir   string
	record    bool
	tokens    map[string]string
	idx       *indexdb.SQLiteIndex
	swap      *handlerSwap
	log       *log.Logger
}

func (rc matchRuntime) playOneMatch(ctx context.Context, opts game.GameOptions) error {
	matchID := uuid.NewString()

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
		opts.Seed = seed
	}

	m, chosen, err := pickMap(rc.mapsDir, rc.mapName, rc.emptySize, opts.Rules, seed)
	if err != nil {
		return err
	}
	rc.log.Printf("match %s on map %s (%dx%d, %d spawns)", matchID, chosen, m.Height(), m.Width(), len(m.SpawnPoints))

	g, err := game.NewGame(opts, m, rc.log)
	if err != nil {
		return err
	}

	if rc.record {
		rec, err := replay.NewRecorder(filepath.Join(rc.dataDir, "replays", matchID+".jsonl.zst"), rc.log)
		if err != nil {
			return err
		}
		defer rec.Close()
		g.RegisterViewer(rec)
		g.OnGameCompleted(rec.OnCompleted)
	}

	if rc.idx != nil {
		rc.idx.RecordMatchStart(indexdb.MatchRow{
			ID:        matchID,
			StartedAt: time.Now().UTC().Format(time.RFC3339Nano),
			MapName:   chosen,
			Seed:      seed,
			Ticks:     opts.NumberOfTicks,
			Teams:     opts.ExpectedTeams,
		})
		g.OnGameCompleted(func(results []game.GameResult, err error) {
			errText := ""
			if err != nil {
				errText = err.Error()
			}
			rc.idx.RecordMatchEnd(matchID, errText, results, g.TeamSummaries())
		})
	}

	rc.swap.Set(ws.NewServer(g, rc.tokens, rc.log).Handler())
	defer rc.swap.Set(nil)

	return g.Run(ctx)
}

func optionsFromTuning(t tuning.Tuning) game.GameOptions {
	return game.GameOptions{
		NumberOfTicks:      t.NumberOfTicks,
		TimePerTick:        t.TimePerTick(),
		DelayBetweenTicks:  t.DelayBetweenTicks(),
		MaxWaitBeforeStart: t.MaxWaitBeforeStart(),
		ExpectedTeams:      t.ExpectedTeams,
		UnitsPerTeam:       t.UnitsPerTeam,
		Seed:               t.Seed,
		Rules: game.Rules{
			WarmUpTicks:         t.Rules.WarmUpTicks,
			PointsPerDiamond:    t.Rules.PointsPerDiamond,
			InitialSummonLevel:  t.Rules.InitialSummonLevel,
			MaximumSummonLevel:  t.Rules.MaximumSummonLevel,
			MaxUnitsPerPosition: t.Rules.MaxUnitsPerPosition,
			OrderingsHorizon:    t.Rules.OrderingsHorizon,
			WarmStartTicks:      t.Rules.WarmStartTicks,
			WarmStartDelay:      t.Rules.WarmStartDelay(),
		},
	}
}

// pickMap resolves the map flag: a generated map, a named file, or a
// seeded random pick from the maps directory.
func pickMap(mapsDir, name string, emptySize int, rules game.Rules, seed int64) (*game.GameMap, string, error) {
	if name == "empty" {
		return game.EmptyMap(emptySize, rules), "empty", nil
	}
	if name != "" {
		path := name
		if !strings.ContainsRune(name, os.PathSeparator) {
			path = filepath.Join(mapsDir, name)
		}
		m, err := game.LoadMapFile(path, rules)
		return m, filepath.Base(path), err
	}

	paths, err := game.ListMapFiles(mapsDir)
	if err != nil {
		return nil, "", err
	}
	if len(paths) == 0 {
		return nil, "", fmt.Errorf("no maps found in %s", mapsDir)
	}
	path := paths[rand.New(rand.NewSource(seed)).Intn(len(paths))]
	m, err := game.LoadMapFile(path, rules)
	return m, filepath.Base(path), err
}

func runMapTooling(mapsDir string, validate bool, logger *log.Logger) {
	paths, err := game.ListMapFiles(mapsDir)
	if err != nil {
		logger.Fatalf("list maps: %v", err)
	}
	bad := 0
	for _, p := range paths {
		if !validate {
			fmt.Println(filepath.Base(p))
			continue
		}
		m, err := game.LoadMapFile(p, game.DefaultRules())
		if err != nil {
			bad++
			fmt.Printf("%s: INVALID: %v\n", filepath.Base(p), err)
			continue
		}
		fmt.Printf("%s: ok (%dx%d, %d spawns, %d diamonds)\n",
			filepath.Base(p), m.Height(), m.Width(), len(m.SpawnPoints), len(m.Serialize().Diamonds))
	}
	if bad > 0 {
		os.Exit(1)
	}
}

func loadTokens(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tokens := map[string]string{}
	if err := yaml.Unmarshal(raw, &tokens); err != nil {
		return nil, fmt.Errorf("tokens file: %w", err)
	}
	return tokens, nil
}

// handlerSwap routes the websocket endpoint to the current match's
// handler. Between matches connections are refused.
type handlerSwap struct {
	mu sync.RWMutex
	h  http.HandlerFunc
}

func (s *handlerSwap) Set(h http.HandlerFunc) {
	s.mu.Lock()
	s.h = h
	s.mu.Unlock()
}

func (s *handlerSwap) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	h := s.h
	s.mu.RUnlock()
	if h == nil {
		http.Error(rw, "no match in progress", http.StatusServiceUnavailable)
		return
	}
	h(rw, r)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
