// Package category assigns coarse category labels to events by keyword.
//
// Matching is plain substring containment over the lowercased title and
// description, evaluated in table order. There is no scoring: the first
// matching rule decides the primary category.
package category

import "strings"

// Other is the label used when nothing matches and no fallback is set.
const Other = "Other"

// Rule maps a keyword to a category label.
type Rule struct {
	Keyword string `yaml:"keyword" json:"keyword"`
	Label   string `yaml:"label" json:"label"`
}

// Table is an ordered keyword table plus venue defaults.
type Table struct {
	Rules []Rule
	// Fallback is the primary category when no rule matches.
	Fallback string
	// Defaults are always included in Result.All, ahead of matched labels.
	Defaults []string
}

// Result holds the primary label and every label that applies.
type Result struct {
	Primary string
	All     []string
}

// DefaultRules is used by venues that do not define their own table.
var DefaultRules = []Rule{
	{Keyword: "trivia", Label: "Trivia Night"},
	{Keyword: "quiz", Label: "Trivia Night"},
	{Keyword: "karaoke", Label: "Karaoke"},
	{Keyword: "comedy", Label: "Comedy"},
	{Keyword: "stand-up", Label: "Comedy"},
	{Keyword: "concert", Label: "Music"},
	{Keyword: "live music", Label: "Music"},
	{Keyword: "dj", Label: "Music"},
	{Keyword: "jazz", Label: "Music"},
	{Keyword: "band", Label: "Music"},
	{Keyword: "festival", Label: "Festival"},
	{Keyword: "market", Label: "Market"},
	{Keyword: "fair", Label: "Market"},
	{Keyword: "theatre", Label: "Theatre"},
	{Keyword: "theater", Label: "Theatre"},
	{Keyword: "musical", Label: "Theatre"},
	{Keyword: "opera", Label: "Theatre"},
	{Keyword: "film", Label: "Film"},
	{Keyword: "movie", Label: "Film"},
	{Keyword: "cinema", Label: "Film"},
	{Keyword: "exhibition", Label: "Art"},
	{Keyword: "gallery", Label: "Art"},
	{Keyword: "workshop", Label: "Workshop"},
	{Keyword: "class", Label: "Workshop"},
	{Keyword: "yoga", Label: "Wellness"},
	{Keyword: "meditation", Label: "Wellness"},
	{Keyword: "tasting", Label: "Food & Drink"},
	{Keyword: "food", Label: "Food & Drink"},
	{Keyword: "beer", Label: "Food & Drink"},
	{Keyword: "tournament", Label: "Sports"},
	{Keyword: "game", Label: "Sports"},
	{Keyword: "kids", Label: "Family"},
	{Keyword: "family", Label: "Family"},
	{Keyword: "outdoor", Label: "Outdoor"},
	{Keyword: "park", Label: "Outdoor"},
}

// DefaultTable returns a table over DefaultRules.
func DefaultTable() Table {
	return Table{Rules: DefaultRules}
}

// Categorize matches title and description against the table.
func (t Table) Categorize(title, description string) Result {
	text := strings.ToLower(title + " " + description)

	all := make([]string, 0, len(t.Defaults)+2)
	seen := make(map[string]bool)
	add := func(label string) {
		if label == "" || seen[label] {
			return
		}
		seen[label] = true
		all = append(all, label)
	}
	for _, label := range t.Defaults {
		add(label)
	}

	primary := ""
	for _, rule := range t.Rules {
		keyword := strings.ToLower(strings.TrimSpace(rule.Keyword))
		if keyword == "" || !strings.Contains(text, keyword) {
			continue
		}
		if primary == "" {
			primary = rule.Label
		}
		add(rule.Label)
	}

	if primary == "" {
		primary = t.Fallback
	}
	if primary == "" {
		primary = Other
	}
	add(primary)

	return Result{Primary: primary, All: all}
}
