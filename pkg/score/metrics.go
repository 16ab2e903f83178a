package score

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Count is an optional numeric metric as reported by an upstream platform.
// The zero value is a missing metric.
type Count struct {
	Value float64
	Valid bool
}

// Of returns a present metric.
func Of(v float64) Count {
	return Count{Value: v, Valid: true}
}

// OfInt returns a present metric from an integer count.
func OfInt(v int) Count {
	return Of(float64(v))
}

// Int returns the normalized metric as an integer.
func (c Count) Int() int {
	return int(Normalize(c, 0))
}

// MarshalJSON writes null for a missing metric.
func (c Count) MarshalJSON() ([]byte, error) {
	if !c.Valid || math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

// UnmarshalJSON accepts numbers, numeric strings and null. Anything else
// decodes as a missing metric.
func (c *Count) UnmarshalJSON(b []byte) error {
	*c = parseCount(strings.Trim(strings.TrimSpace(string(b)), `"`))
	return nil
}

// MarshalYAML writes null for a missing metric.
func (c Count) MarshalYAML() (any, error) {
	if !c.Valid || math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
		return nil, nil
	}
	return c.Value, nil
}

// UnmarshalYAML accepts scalar numbers; anything else is a missing metric.
func (c *Count) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		*c = Count{}
		return nil
	}
	*c = parseCount(n.Value)
	return nil
}

func parseCount(s string) Count {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" || s == "~" {
		return Count{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return Count{}
	}
	return Of(v)
}

// Languages is the canonical list of languages a developer uses. On the wire
// it may be either a comma-separated string or a list of strings.
type Languages []string

// ParseLanguages splits a comma-separated list into its trimmed, non-empty entries.
func ParseLanguages(s string) Languages {
	parts := strings.Split(s, ",")
	list := make(Languages, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	return list
}

// String joins the languages the way the platforms report them.
func (l Languages) String() string {
	return strings.Join(l, ",")
}

// UnmarshalJSON decodes either form. Values of any other type decode as empty.
func (l *Languages) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		*l = Languages{}
		return nil //nolint:nilerr // malformed input normalizes to no languages
	}
	*l = toLanguages(raw)
	return nil
}

// UnmarshalYAML decodes either form. Values of any other type decode as empty.
func (l *Languages) UnmarshalYAML(n *yaml.Node) error {
	var raw any
	if err := n.Decode(&raw); err != nil {
		*l = Languages{}
		return nil //nolint:nilerr // malformed input normalizes to no languages
	}
	*l = toLanguages(raw)
	return nil
}

func toLanguages(raw any) Languages {
	list := Languages{}
	seen := make(map[string]struct{})
	for _, s := range flatten(raw) {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		list = append(list, s)
	}
	return list
}

// ProfileMetrics is the merged set of activity signals for one developer.
type ProfileMetrics struct {
	GitHubRepos      Count     `json:"github_repos" yaml:"github_repos"`
	GitHubStars      Count     `json:"github_stars" yaml:"github_stars"`
	GitHubFollowers  Count     `json:"github_followers" yaml:"github_followers"`
	GitHubForks      Count     `json:"github_forks" yaml:"github_forks"`
	Contributions    Count     `json:"contributions_1yr" yaml:"contributions_1yr"`
	TopLanguages     Languages `json:"top_languages" yaml:"top_languages"`
	LeetCodeEasy     Count     `json:"leetcode_easy" yaml:"leetcode_easy"`
	LeetCodeMedium   Count     `json:"leetcode_medium" yaml:"leetcode_medium"`
	LeetCodeHard     Count     `json:"leetcode_hard" yaml:"leetcode_hard"`
	HackerRankBadges Count     `json:"hackerrank_badges" yaml:"hackerrank_badges"`
	HackerRankSkills Count     `json:"hackerrank_skills" yaml:"hackerrank_skills"`
}

// Merge returns a copy of m with every metric present in o copied over.
func (m ProfileMetrics) Merge(o ProfileMetrics) ProfileMetrics {
	pick := func(dst *Count, src Count) {
		if src.Valid {
			*dst = src
		}
	}
	pick(&m.GitHubRepos, o.GitHubRepos)
	pick(&m.GitHubStars, o.GitHubStars)
	pick(&m.GitHubFollowers, o.GitHubFollowers)
	pick(&m.GitHubForks, o.GitHubForks)
	pick(&m.Contributions, o.Contributions)
	pick(&m.LeetCodeEasy, o.LeetCodeEasy)
	pick(&m.LeetCodeMedium, o.LeetCodeMedium)
	pick(&m.LeetCodeHard, o.LeetCodeHard)
	pick(&m.HackerRankBadges, o.HackerRankBadges)
	pick(&m.HackerRankSkills, o.HackerRankSkills)
	if o.TopLanguages != nil {
		m.TopLanguages = append(Languages(nil), o.TopLanguages...)
	}
	return m
}
