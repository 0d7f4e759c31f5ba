package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "modernc.org/sqlite"
)

// Queries the match index database: recent matches, and the full
// ranking plus telemetry of one match.
func main() {
	var (
		dbPath  = flag.String("db", "./data/index.db", "path to the match index database")
		matchID = flag.String("match", "", "show details for one match id")
		limit   = flag.Int("limit", 20, "number of recent matches to list")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[admin] ", log.LstdFlags)

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if *matchID != "" {
		if err := showMatch(db, *matchID); err != nil {
			logger.Fatalf("show match: %v", err)
		}
		return
	}
	if err := listMatches(db, *limit); err != nil {
		logger.Fatalf("list matches: %v", err)
	}
}

func listMatches(db *sql.DB, limit int) error {
	rows, err := db.Query(
		`SELECT id, started_at, COALESCE(finished_at,''), map, seed, ticks, teams, COALESCE(error,'')
		 FROM matches ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, started, finished, mapName, errText string
			seed                                    int64
			ticks, teams                            int
		)
		if err := rows.Scan(&id, &started, &finished, &mapName, &seed, &ticks, &teams, &errText); err != nil {
			return err
		}
		status := "finished"
		if finished == "" {
			status = "in progress"
		}
		if errText != "" {
			status = "aborted: " + errText
		}
		fmt.Printf("%s  %s  map=%s ticks=%d teams=%d seed=%d  %s\n", id, started, mapName, ticks, teams, seed, status)
	}
	return rows.Err()
}

func showMatch(db *sql.DB, matchID string) error {
	rows, err := db.Query(
		`SELECT rank, team_name, score FROM results WHERE match_id=? ORDER BY rank`, matchID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			rank, score int
			name        string
		)
		if err := rows.Scan(&rank, &name, &score); err != nil {
			return err
		}
		fmt.Printf("#%d %s score=%d\n", rank, name, score)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	stats, err := db.Query(
		`SELECT team_name, units, timeouts, response_time_avg_ms, processing_time_avg_ms
		 FROM team_stats WHERE match_id=? ORDER BY team_name`, matchID)
	if err != nil {
		return err
	}
	defer stats.Close()
	for stats.Next() {
		var (
			name            string
			units, timeouts int
			respMs, procMs  float64
		)
		if err := stats.Scan(&name, &units, &timeouts, &respMs, &procMs); err != nil {
			return err
		}
		fmt.Printf("%s: units=%d timeouts=%d response_avg=%.1fms processing_avg=%.3fms\n",
			name, units, timeouts, respMs, procMs)
	}
	return stats.Err()
}
