package board

import (
	"math"
	"strings"
	"time"

	"github.com/ent0n29/streamtasks/internal/fields"
)

const (
	DefaultSessionSummary   = "Session Goals"
	DefaultListName         = "Viewers"
	DefaultGoalListName     = "Stream Goals"
	DefaultViewerTaskLimit  = 3
	DefaultOfflineThreshold = 5 * time.Minute
	PendingCapacity         = 100
)

type TierThresholds struct {
	Tier1 int `json:"tier1"`
	Tier2 int `json:"tier2"`
	Tier3 int `json:"tier3"`
}

type Appearance struct {
	BackgroundColor  string `json:"backgroundColor"`
	TextColor        string `json:"textColor"`
	ProgressBarColor string `json:"progressBarColor"`
	Theme            string `json:"theme"`
}

// Config is derived once per load-configuration event and stays fixed until
// the next one.
type Config struct {
	SessionSummary   string         `json:"sessionSummary"`
	TierThresholds   TierThresholds `json:"tierThresholds"`
	ViewerTaskLimit  int            `json:"viewerTaskLimit"`
	OfflineThreshold time.Duration  `json:"offlineThreshold"`
	DefaultListName  string         `json:"defaultListName"`
	Appearance       Appearance     `json:"appearance"`
}

// NewConfig applies the documented defaults to raw field data.
func NewConfig(f fields.FieldData) Config {
	return Config{
		SessionSummary: stringOr(f.SessionSummary, DefaultSessionSummary),
		TierThresholds: TierThresholds{
			Tier1: positiveOr(f.Tier1Threshold, 3),
			Tier2: positiveOr(f.Tier2Threshold, 7),
			Tier3: positiveOr(f.Tier3Threshold, 12),
		},
		ViewerTaskLimit:  positiveOr(f.ViewerTaskLimit, DefaultViewerTaskLimit),
		OfflineThreshold: DefaultOfflineThreshold,
		DefaultListName:  DefaultListName,
		Appearance: Appearance{
			BackgroundColor:  stringOr(f.BackgroundColor, "#1E1E1E"),
			TextColor:        stringOr(f.TextColor, "#FFFFFF"),
			ProgressBarColor: stringOr(f.ProgressBarColor, "#4CAF50"),
			Theme:            strings.ToLower(stringOr(f.Theme, "dark")),
		},
	}
}

// Tier returns 0 below tier1, otherwise the highest tier reached.
func (c Config) Tier(points int) int {
	switch {
	case points >= c.TierThresholds.Tier3:
		return 3
	case points >= c.TierThresholds.Tier2:
		return 2
	case points >= c.TierThresholds.Tier1:
		return 1
	default:
		return 0
	}
}

// Percent is the progress bar fill, capped at 100.
func (c Config) Percent(points int) float64 {
	max := c.TierThresholds.Tier3
	if max <= 0 || points <= 0 {
		return 0
	}
	return math.Min(float64(points)/float64(max)*100, 100)
}

func stringOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
