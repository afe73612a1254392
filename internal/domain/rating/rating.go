// Package rating maps chart difficulty and achievement to a player rating.
package rating

import "math"

// MaxEffectiveAchievement caps the achievement used in the multiplicative term.
const MaxEffectiveAchievement = 100.5

// step is one bucket of the achievement step function. A bucket applies when
// achievement < below.
type step struct {
	below      float64
	multiplier float64
	rate       Rate
}

// steps is ordered by ascending threshold; the final bucket is open-ended.
var steps = [...]step{
	{50.0, 7.0, RateD},
	{60.0, 8.0, RateC},
	{70.0, 9.6, RateB},
	{75.0, 11.2, RateBB},
	{80.0, 12.0, RateBBB},
	{90.0, 13.6, RateA},
	{94.0, 15.2, RateAA},
	{97.0, 16.8, RateAAA},
	{98.0, 20.0, RateS},
	{99.0, 20.3, RateSP},
	{99.5, 20.8, RateSS},
	{100.0, 21.1, RateSSP},
	{100.5, 21.6, RateSSS},
	{math.Inf(1), 22.4, RateSSSP},
}

func bucket(achievement float64) step {
	for _, s := range steps {
		if achievement < s.below {
			return s
		}
	}
	return steps[len(steps)-1]
}

// Multiplier returns the base multiplier selected by the unclamped achievement.
func Multiplier(achievement float64) float64 {
	return bucket(sanitize(achievement)).multiplier
}

// Compute returns floor(ds * min(achievement, 100.5)/100 * multiplier).
// NaN and negative inputs are treated as zero.
func Compute(ds, achievement float64) int {
	ds = sanitize(ds)
	achievement = sanitize(achievement)
	effective := math.Min(achievement, MaxEffectiveAchievement)
	return int(math.Floor(ds * (effective / 100.0) * bucket(achievement).multiplier))
}

func sanitize(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	return x
}
