package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"diamondrush/internal/persistence/replay"
)

// Inspects a recorded match: summarizes it by default, or dumps raw
// entries as JSON lines with -dump.
func main() {
	var (
		path = flag.String("file", "", "replay file to read")
		dump = flag.Bool("dump", false, "print every entry as a JSON line")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	if *path == "" {
		logger.Fatalf("-file is required")
	}

	r, err := replay.OpenReader(*path)
	if err != nil {
		logger.Fatalf("open replay: %v", err)
	}
	defer r.Close()

	var (
		ticks           int
		commandsPerTeam = map[string]int{}
		results         *replay.Entry
	)
	for {
		e, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Fatalf("read replay: %v", err)
		}
		if *dump {
			b, _ := json.Marshal(e)
			fmt.Println(string(b))
			continue
		}
		switch e.Kind {
		case replay.KindTick:
			ticks++
		case replay.KindCommand:
			commandsPerTeam[e.PlayingTeamID]++
		case replay.KindResults:
			ec := e
			results = &ec
		}
	}
	if *dump {
		return
	}

	fmt.Printf("ticks recorded: %d\n", ticks)
	for id, n := range commandsPerTeam {
		fmt.Printf("team %s: %d commands\n", id, n)
	}
	if results == nil {
		fmt.Println("no results entry (match did not finish cleanly)")
		return
	}
	if results.Err != "" {
		fmt.Printf("match aborted: %s\n", results.Err)
	}
	for _, res := range results.Results {
		fmt.Printf("#%d %s score=%d\n", res.Rank, res.TeamName, res.Score)
	}
}
