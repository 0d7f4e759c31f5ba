package tuning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning is the match configuration loaded from game.yaml. Flags on
// the server binary override individual fields. Durations are plain
// millisecond integers in the file.
type Tuning struct {
	NumberOfTicks        int   `yaml:"number_of_ticks"`
	TimePerTickMs        int   `yaml:"time_per_tick_ms"`
	DelayBetweenTicksMs  int   `yaml:"delay_between_ticks_ms"`
	MaxWaitBeforeStartMs int   `yaml:"max_wait_before_start_ms"`
	ExpectedTeams        int   `yaml:"expected_teams"`
	UnitsPerTeam         int   `yaml:"units_per_team"`
	Seed                 int64 `yaml:"seed"`

	Rules Rules `yaml:"rules"`
}

type Rules struct {
	WarmUpTicks         int `yaml:"warm_up_ticks"`
	PointsPerDiamond    int `yaml:"points_per_diamond"`
	InitialSummonLevel  int `yaml:"initial_summon_level"`
	MaximumSummonLevel  int `yaml:"maximum_summon_level"`
	MaxUnitsPerPosition int `yaml:"max_units_per_position"`
	OrderingsHorizon    int `yaml:"orderings_horizon"`
	WarmStartTicks      int `yaml:"warm_start_ticks"`
	WarmStartDelayMs    int `yaml:"warm_start_delay_ms"`
}

func Default() Tuning {
	return Tuning{
		NumberOfTicks:        500,
		TimePerTickMs:        1000,
		DelayBetweenTicksMs:  0,
		MaxWaitBeforeStartMs: 180000,
		ExpectedTeams:        3,
		UnitsPerTeam:         3,
		Rules: Rules{
			WarmUpTicks:         25,
			PointsPerDiamond:    1,
			InitialSummonLevel:  1,
			MaximumSummonLevel:  5,
			MaxUnitsPerPosition: 1,
			OrderingsHorizon:    5,
			WarmStartTicks:      10,
			WarmStartDelayMs:    1000,
		},
	}
}

func (t Tuning) TimePerTick() time.Duration        { return time.Duration(t.TimePerTickMs) * time.Millisecond }
func (t Tuning) DelayBetweenTicks() time.Duration  { return time.Duration(t.DelayBetweenTicksMs) * time.Millisecond }
func (t Tuning) MaxWaitBeforeStart() time.Duration { return time.Duration(t.MaxWaitBeforeStartMs) * time.Millisecond }

func (r Rules) WarmStartDelay() time.Duration { return time.Duration(r.WarmStartDelayMs) * time.Millisecond }

// Load reads a tuning file, applying defaults for absent fields.
func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("game.yaml: %w", err)
	}
	return t, nil
}
