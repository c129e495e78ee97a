package config

import (
	"os"
	"strconv"
	"time"
)

// FloorConfig carries the floor-session tunables: grid snapping, the
// click-versus-drag threshold, undo history depth and the timing knobs
// around refresh suspension and completed-entry removal.  All have
// sensible defaults; none are required.
type FloorConfig struct {
	GridStep           float64       // snap step in plan units
	DragThresholdPx    float64       // screen px below which a release is a click
	UndoDepth          int           // bounded undo history size
	CompletionGrace    time.Duration // completed pool entry stays visible this long
	RefreshInterval    time.Duration // periodic index reload cadence
	RefreshResumeDelay time.Duration // refresh stays suspended this long past commit settlement
}

// LoadFloorConfig reads the FLOOR_* environment variables, falling back
// to defaults when unset.
func LoadFloorConfig() FloorConfig {
	cfg := FloorConfig{
		GridStep:           envFloat("FLOOR_GRID_STEP", 10),
		DragThresholdPx:    envFloat("FLOOR_DRAG_THRESHOLD_PX", 4),
		UndoDepth:          envInt("FLOOR_UNDO_DEPTH", 20),
		CompletionGrace:    envDur("FLOOR_COMPLETION_GRACE", 1500*time.Millisecond),
		RefreshInterval:    envDur("FLOOR_REFRESH_INTERVAL", 30*time.Second),
		RefreshResumeDelay: envDur("FLOOR_REFRESH_RESUME_DELAY", 750*time.Millisecond),
	}
	if cfg.GridStep < 0 {
		cfg.GridStep = 0 // snapping disabled
	}
	if cfg.DragThresholdPx < 0 {
		cfg.DragThresholdPx = 0
	}
	if cfg.UndoDepth < 1 {
		cfg.UndoDepth = 1
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 30 * time.Second
	}
	return cfg
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return d
}
