package rating

// Rate is the achievement rank label shown next to a score.
type Rate string

// Rank labels in ascending order.
const (
	RateD    Rate = "d"
	RateC    Rate = "c"
	RateB    Rate = "b"
	RateBB   Rate = "bb"
	RateBBB  Rate = "bbb"
	RateA    Rate = "a"
	RateAA   Rate = "aa"
	RateAAA  Rate = "aaa"
	RateS    Rate = "s"
	RateSP   Rate = "sp"
	RateSS   Rate = "ss"
	RateSSP  Rate = "ssp"
	RateSSS  Rate = "sss"
	RateSSSP Rate = "sssp"
)

// RateOf returns the rank label for an achievement percentage. It shares the
// thresholds of the rating step function.
func RateOf(achievement float64) Rate {
	return bucket(sanitize(achievement)).rate
}

// plateBounds are the exclusive upper bounds of name-plate tiers 1..9.
var plateBounds = [...]int{1000, 2000, 4000, 7000, 10000, 12000, 13000, 14500, 15000}

// PlateOf maps a player's total rating to its name-plate tier, 1 through 10.
func PlateOf(total int) int {
	for i, b := range plateBounds {
		if total < b {
			return i + 1
		}
	}
	return len(plateBounds) + 1
}
