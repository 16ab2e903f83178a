package review

import (
	"fmt"
	"strings"

	"github.com/mchmarny/devscore/pkg/score"
)

// Input is everything the reviewer knows about a scored developer.
type Input struct {
	GitHub     string
	LeetCode   string
	HackerRank string
	Metrics    score.ProfileMetrics
	Breakdown  score.Breakdown
	Label      score.Label
}

// BuildPrompt renders the review request for the generative model.
func BuildPrompt(in Input) string {
	m := in.Metrics
	var b strings.Builder

	b.WriteString("You are a senior engineering mentor reviewing a developer's public profiles.\n")
	b.WriteString("Write a short, section-by-section review with concrete, actionable advice.\n\n")

	fmt.Fprintf(&b, "GitHub (%s):\n", in.GitHub)
	fmt.Fprintf(&b, "- public repositories: %d\n", m.GitHubRepos.Int())
	fmt.Fprintf(&b, "- stars: %d\n", m.GitHubStars.Int())
	fmt.Fprintf(&b, "- followers: %d\n", m.GitHubFollowers.Int())
	fmt.Fprintf(&b, "- forks: %d\n", m.GitHubForks.Int())
	fmt.Fprintf(&b, "- contributions in the last year: %d\n", m.Contributions.Int())
	fmt.Fprintf(&b, "- languages: %s\n\n", languages(m.TopLanguages))

	fmt.Fprintf(&b, "LeetCode (%s):\n", in.LeetCode)
	fmt.Fprintf(&b, "- easy solved: %d\n", m.LeetCodeEasy.Int())
	fmt.Fprintf(&b, "- medium solved: %d\n", m.LeetCodeMedium.Int())
	fmt.Fprintf(&b, "- hard solved: %d\n\n", m.LeetCodeHard.Int())

	fmt.Fprintf(&b, "HackerRank (%s):\n", in.HackerRank)
	fmt.Fprintf(&b, "- badges: %d\n", m.HackerRankBadges.Int())
	fmt.Fprintf(&b, "- verified skills: %d\n\n", m.HackerRankSkills.Int())

	bd := in.Breakdown
	fmt.Fprintf(&b, "Overall score: %.2f (%s)\n", bd.Score, in.Label)
	fmt.Fprintf(&b, "Score parts: GitHub %.2f, LeetCode %.2f, HackerRank %.2f, language diversity %.2f, synergy x%.2f\n\n",
		bd.GitHub, bd.LeetCode, bd.HackerRank, bd.Diversity, bd.Multiplier)

	b.WriteString("Respond with these sections:\n")
	b.WriteString("1. GitHub\n2. LeetCode\n3. HackerRank\n4. Overall strengths and next steps\n")

	return b.String()
}

func languages(l score.Languages) string {
	if len(l) == 0 {
		return "none reported"
	}
	return strings.Join(l, ", ")
}
