package game

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Map files are plain text, one row per line:
//
//	.  floor
//	#  stone wall
//	~  water wall
//	S  spawn point
//	D  diamond
//	T  trap
//
// All rows must have the same length.
var mapRunes = map[rune]int{
	'.': RawFloor,
	'#': RawStoneWall,
	'~': RawWaterWall,
	'S': RawSpawn,
	'D': RawDiamond,
	'T': RawTrap,
}

// ParseMapText decodes a text map into a raw tile grid.
func ParseMapText(r io.Reader) ([][]int, error) {
	var raw [][]int
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		row := make([]int, 0, len(line))
		for col, r := range line {
			code, ok := mapRunes[r]
			if !ok {
				return nil, fmt.Errorf("unknown map character %q at line %d, column %d", r, lineNo, col+1)
			}
			row = append(row, code)
		}
		if len(raw) > 0 && len(row) != len(raw[0]) {
			return nil, fmt.Errorf("line %d has %d tiles, expected %d", lineNo, len(row), len(raw[0]))
		}
		raw = append(raw, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("map is empty")
	}
	return raw, nil
}

// LoadMapFile reads and validates a text map file. A playable map needs
// at least one spawn point and at least one diamond.
func LoadMapFile(path string, rules Rules) (*GameMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map file: %w", err)
	}
	defer f.Close()

	raw, err := ParseMapText(f)
	if err != nil {
		return nil, fmt.Errorf("parse map file %s: %w", path, err)
	}
	m, err := MapFromRaw(raw, rules)
	if err != nil {
		return nil, fmt.Errorf("build map from %s: %w", path, err)
	}
	if len(m.SpawnPoints) == 0 {
		return nil, fmt.Errorf("map %s has no spawn points", path)
	}
	if len(m.Diamonds.diamonds) == 0 {
		return nil, fmt.Errorf("map %s has no diamonds", path)
	}
	return m, nil
}

// ListMapFiles returns the .txt map files of a directory, sorted by
// name.
func ListMapFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read maps directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
