// Package score implements the developer strength model: weighted,
// diminishing-returns transforms of GitHub, LeetCode and HackerRank activity,
// combined with a language diversity bonus and a cross-platform synergy
// multiplier. Everything in this package is pure and safe for concurrent use.
package score

import "math"

const (
	// GitHub caps and weights, applied as ln(1+min(x,cap))*weight.
	reposCap, reposWeight         = 30, 12
	starsCap, starsWeight         = 3000, 32
	followersCap, followersWeight = 4000, 42
	forksCap, forksWeight         = 600, 8

	// Contributions use a cube root instead of a log.
	contributionsCap, contributionsWeight = 4500, 28

	// LeetCode caps, exponents and weights, applied as (min(x,cap)/cap)^exp*weight.
	easyCap, easyExp, easyWeight       = 250, 0.6, 20
	mediumCap, mediumExp, mediumWeight = 150, 0.8, 56
	hardCap, hardExp, hardWeight       = 70, 1.2, 110

	badgesWeight     = 9
	badgesBonusMin   = 12
	badgesBonus      = 15
	skillsWeight     = 4
	roundingDecimals = 2
)

var (
	// highest tier first
	diversityTiers = []struct {
		min   int
		bonus float64
	}{
		{7, 35},
		{5, 22},
		{3, 11},
	}

	// checked in order, first match wins
	synergyTiers = []struct {
		hard, medium, stars, badges float64
		multiplier                  float64
	}{
		{hard: 40, stars: 1000, badges: 10, multiplier: 1.18},
		{medium: 75, stars: 500, badges: 6, multiplier: 1.10},
	}
)

// Breakdown is the itemized computation of a score.
type Breakdown struct {
	GitHub     float64 `json:"github" yaml:"github"`
	LeetCode   float64 `json:"leetcode" yaml:"leetcode"`
	HackerRank float64 `json:"hackerrank" yaml:"hackerrank"`
	Diversity  float64 `json:"diversity" yaml:"diversity"`
	Subtotal   float64 `json:"subtotal" yaml:"subtotal"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
	Score      float64 `json:"score" yaml:"score"`
}

// Result is the scored outcome for one profile.
type Result struct {
	Score float64 `json:"score" yaml:"score"`
	Label Label   `json:"label" yaml:"label"`
}

// Evaluate scores and labels the metrics.
func Evaluate(m ProfileMetrics) Result {
	s := Compute(m)
	return Result{Score: s, Label: Classify(s)}
}

// Compute returns the smart score for the metrics, rounded to two decimals.
func Compute(m ProfileMetrics) float64 {
	return Explain(m).Score
}

// Explain computes the score and reports each stage's contribution.
func Explain(m ProfileMetrics) Breakdown {
	var b Breakdown

	stars := Normalize(m.GitHubStars, 0)
	medium := Normalize(m.LeetCodeMedium, 0)
	hard := Normalize(m.LeetCodeHard, 0)
	badges := Normalize(m.HackerRankBadges, 0)

	b.GitHub = logTerm(Normalize(m.GitHubRepos, 0), reposCap, reposWeight) +
		logTerm(stars, starsCap, starsWeight) +
		logTerm(Normalize(m.GitHubFollowers, 0), followersCap, followersWeight) +
		logTerm(Normalize(m.GitHubForks, 0), forksCap, forksWeight) +
		math.Cbrt(math.Min(Normalize(m.Contributions, 0), contributionsCap))*contributionsWeight

	b.LeetCode = powTerm(Normalize(m.LeetCodeEasy, 0), easyCap, easyExp, easyWeight) +
		powTerm(medium, mediumCap, mediumExp, mediumWeight) +
		powTerm(hard, hardCap, hardExp, hardWeight)

	b.HackerRank = math.Sqrt(badges)*badgesWeight + math.Sqrt(Normalize(m.HackerRankSkills, 0))*skillsWeight
	if badges >= badgesBonusMin {
		b.HackerRank += badgesBonus
	}

	b.Diversity = diversityBonus(len(NormalizeLanguages(m.TopLanguages)))
	b.Subtotal = b.GitHub + b.LeetCode + b.HackerRank + b.Diversity
	b.Multiplier = synergy(hard, medium, stars, badges)
	b.Score = round(b.Subtotal*b.Multiplier, roundingDecimals)

	return b
}

func logTerm(x, limit, weight float64) float64 {
	return math.Log1p(math.Min(x, limit)) * weight
}

func powTerm(x, limit, exp, weight float64) float64 {
	return math.Pow(math.Min(x, limit)/limit, exp) * weight
}

func diversityBonus(distinct int) float64 {
	for _, t := range diversityTiers {
		if distinct >= t.min {
			return t.bonus
		}
	}
	return 0
}

func synergy(hard, medium, stars, badges float64) float64 {
	for _, t := range synergyTiers {
		if hard >= t.hard && medium >= t.medium && stars >= t.stars && badges >= t.badges {
			return t.multiplier
		}
	}
	return 1
}

// round uses half away from zero.
func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
