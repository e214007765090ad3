package beastgames

import "time"

const (
	// ActiveWindow bounds the aggregate activeUsers count. Both windows
	// include their edge.
	ActiveWindow = 5 * time.Minute
	// OnlineWindow bounds the per-user online marker in admin listings.
	OnlineWindow = 10 * time.Minute
)

type GameDistribution struct {
	Strength int `json:"strength"`
	Mind     int `json:"mind"`
	Chance   int `json:"chance"`
}

// GameStats is derived from the current profile set and never persisted.
type GameStats struct {
	TotalUsers       int              `json:"totalUsers"`
	ActiveUsers      int              `json:"activeUsers"`
	GameDistribution GameDistribution `json:"gameDistribution"`
}

func activeWithin(p Profile, now time.Time, window time.Duration) bool {
	t, ok := ParseTime(p.LastActive)
	if !ok {
		return false
	}
	return now.Sub(t) <= window
}

// IsOnline reports whether p was active within OnlineWindow of now.
func IsOnline(p Profile, now time.Time) bool {
	return activeWithin(p, now, OnlineWindow)
}

func ComputeStats(profiles []Profile, now time.Time) GameStats {
	stats := GameStats{TotalUsers: len(profiles)}
	for _, p := range profiles {
		if activeWithin(p, now, ActiveWindow) {
			stats.ActiveUsers++
		}
		if p.CurrentGame == nil {
			continue
		}
		switch *p.CurrentGame {
		case GameStrength:
			stats.GameDistribution.Strength++
		case GameMind:
			stats.GameDistribution.Mind++
		case GameChance:
			stats.GameDistribution.Chance++
		}
	}
	return stats
}
