package learning

import (
	"gonum.org/v1/gonum/stat"

	"neontrail/internal/core"
)

// Summary is the mean and sample standard deviation of one trait
type Summary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

// Stats describes the live AI population for analytics consumers
type Stats struct {
	Count          int     `json:"count"`
	AvoidDistance  Summary `json:"avoidDistance"`
	PowerupWeight  Summary `json:"powerupWeight"`
	TurnRandomness Summary `json:"turnRandomness"`
	RiskTolerance  Summary `json:"riskTolerance"`
	// LeftHanded is the fraction of bikes preferring left turns
	LeftHanded float64 `json:"leftHanded"`
}

// Population summarizes a set of trait vectors
func Population(traits []Traits) Stats {
	n := len(traits)
	if n == 0 {
		return Stats{}
	}

	avoid := make([]float64, n)
	powerup := make([]float64, n)
	random := make([]float64, n)
	risk := make([]float64, n)
	left := 0
	for i, t := range traits {
		avoid[i] = t.AvoidDistance
		powerup[i] = t.PowerupWeight
		random[i] = t.TurnRandomness
		risk[i] = t.RiskTolerance
		if t.PreferredTurn == core.TurnLeft {
			left++
		}
	}

	return Stats{
		Count:          n,
		AvoidDistance:  summarize(avoid),
		PowerupWeight:  summarize(powerup),
		TurnRandomness: summarize(random),
		RiskTolerance:  summarize(risk),
		LeftHanded:     float64(left) / float64(n),
	}
}

func summarize(xs []float64) Summary {
	if len(xs) == 1 {
		return Summary{Mean: xs[0]}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	return Summary{Mean: mean, StdDev: std}
}
