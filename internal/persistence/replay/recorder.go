package replay

import (
	"log"
	"sync"
	"time"

	"diamondrush/internal/game"
)

// Entry kinds, in file order: one "command" per applied team command,
// one "tick" per completed tick, a single trailing "results".
const (
	KindTick    = "tick"
	KindCommand = "command"
	KindResults = "results"
)

type Entry struct {
	Kind          string            `json:"kind"`
	RecordedAt    string            `json:"recordedAt"`
	Tick          *game.ViewerTick  `json:"tick,omitempty"`
	PlayingTeamID string            `json:"playingTeamId,omitempty"`
	Results       []game.GameResult `json:"results,omitempty"`
	Err           string            `json:"error,omitempty"`
}

// Recorder persists the full viewer stream of one match. Entries are
// written by a background goroutine; a recorder that falls behind
// drops entries rather than stalling the engine.
type Recorder struct {
	w   *JSONLZstdWriter
	log *log.Logger

	ch   chan Entry
	wg   sync.WaitGroup
	once sync.Once
}

func NewRecorder(path string, logger *log.Logger) (*Recorder, error) {
	w, err := NewJSONLZstdWriter(path)
	if err != nil {
		return nil, err
	}
	r := &Recorder{
		w:   w,
		log: logger,
		ch:  make(chan Entry, 1024),
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for e := range r.ch {
			if err := r.w.Write(e); err != nil {
				r.log.Printf("write replay entry: %v", err)
			}
		}
	}()
	return r, nil
}

func (r *Recorder) OnTick(tick game.ViewerTick) {
	r.push(Entry{Kind: KindTick, RecordedAt: now(), Tick: &tick})
}

func (r *Recorder) OnCommand(tick game.ViewerTick, playingTeamID string) {
	r.push(Entry{Kind: KindCommand, RecordedAt: now(), Tick: &tick, PlayingTeamID: playingTeamID})
}

// OnCompleted writes the trailing results entry. Register it with the
// game's completion hook.
func (r *Recorder) OnCompleted(results []game.GameResult, err error) {
	e := Entry{Kind: KindResults, RecordedAt: now(), Results: results}
	if err != nil {
		e.Err = err.Error()
	}
	r.push(e)
}

func (r *Recorder) push(e Entry) {
	select {
	case r.ch <- e:
	default:
		r.log.Printf("replay recorder behind, dropping %s entry", e.Kind)
	}
}

// Close drains pending entries and closes the underlying file.
func (r *Recorder) Close() error {
	var err error
	r.once.Do(func() {
		close(r.ch)
		r.wg.Wait()
		err = r.w.Close()
	})
	return err
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
