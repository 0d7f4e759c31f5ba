package replay

import (
	"io"
	"log"
	"path/filepath"
	"testing"

	"diamondrush/internal/game"
)

func testTick(n int) game.ViewerTick {
	return game.ViewerTick{TickNumber: n, TotalTick: 3}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "match.jsonl.zst")

	w, err := NewJSONLZstdWriter(path)
	if err != nil {
		t.Fatalf("NewJSONLZstdWriter: %v", err)
	}
	for i := 0; i < 3; i++ {
		tick := testTick(i)
		if err := w.Write(Entry{Kind: KindTick, Tick: &tick}); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Write(Entry{Kind: KindTick}); err == nil {
		t.Fatalf("write after close must fail")
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()
	for i := 0; i < 3; i++ {
		e, err := r.Next()
		if err != nil {
			t.Fatalf("Next %d: %v", i, err)
		}
		if e.Kind != KindTick || e.Tick == nil || e.Tick.TickNumber != i {
			t.Fatalf("entry %d = %+v", i, e)
		}
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("want io.EOF at end, got %v", err)
	}
}

func TestRecorderWritesViewerStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replays", "match.jsonl.zst")
	rec, err := NewRecorder(path, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	rec.OnCommand(testTick(0), "team-1")
	rec.OnTick(testTick(0))
	rec.OnCommand(testTick(1), "team-2")
	rec.OnTick(testTick(1))
	rec.OnCompleted([]game.GameResult{{Rank: 1, TeamName: "team-1", Score: 4}}, nil)
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	var kinds []string
	var last Entry
	for {
		e, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		kinds = append(kinds, e.Kind)
		last = e
	}

	want := []string{KindCommand, KindTick, KindCommand, KindTick, KindResults}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}
	if len(last.Results) != 1 || last.Results[0].TeamName != "team-1" || last.Err != "" {
		t.Fatalf("results entry = %+v", last)
	}
	if last.RecordedAt == "" {
		t.Fatalf("entries must carry a timestamp")
	}
}

func TestRecorderRecordsAbortError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "match.jsonl.zst")
	rec, err := NewRecorder(path, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	rec.OnCompleted(nil, io.ErrUnexpectedEOF)
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()
	e, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if e.Kind != KindResults || e.Err != io.ErrUnexpectedEOF.Error() {
		t.Fatalf("entry = %+v", e)
	}
}
