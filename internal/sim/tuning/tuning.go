package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickDurationMs      int `yaml:"tick_duration_ms"`
	SnapshotEveryTicks  int `yaml:"snapshot_every_ticks"`
	PreloadRadiusChunks int `yaml:"preload_radius_chunks"`

	World  World  `yaml:"world"`
	Liquid Liquid `yaml:"liquid"`
}

type World struct {
	Height         int `yaml:"height"`
	BoundaryR      int `yaml:"boundary_r"`
	SurfaceY       int `yaml:"surface_y"`
	SpringPermille int `yaml:"spring_permille"`
}

type Liquid struct {
	QueueCapacity         int  `yaml:"queue_capacity"`
	MaxBudget             int  `yaml:"max_budget"`
	MinBudget             int  `yaml:"min_budget"`
	MaxPerChunk           int  `yaml:"max_per_chunk"`
	FullTicksToThrottle   int  `yaml:"full_ticks_to_throttle"`
	LowWaterMark          int  `yaml:"low_water_mark"`
	SettleTicks           int  `yaml:"settle_ticks"`
	MaxConversionsPerTick int  `yaml:"max_conversions_per_tick"`
	PathSearchRange       int  `yaml:"path_search_range"`
	FallCap               int  `yaml:"fall_cap"`
	DissipateAtFallCap    bool `yaml:"dissipate_at_fall_cap"`
	SplashMinDepth        int  `yaml:"splash_min_depth"`
	CascadeSearchLimit    int  `yaml:"cascade_search_limit"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:     "1.0",
		TickDurationMs:      250,
		SnapshotEveryTicks:  2400,
		PreloadRadiusChunks: 4,
		World: World{
			Height:         64,
			BoundaryR:      1024,
			SurfaceY:       16,
			SpringPermille: 2,
		},
		Liquid: Liquid{
			QueueCapacity:         1 << 15,
			MaxBudget:             512,
			MinBudget:             32,
			MaxPerChunk:           64,
			FullTicksToThrottle:   4,
			LowWaterMark:          64,
			SettleTicks:           4,
			MaxConversionsPerTick: 4,
			PathSearchRange:       4,
			FallCap:               12,
			DissipateAtFallCap:    true,
			SplashMinDepth:        2,
			CascadeSearchLimit:    256,
		},
	}
}
