package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_Categorize(t *testing.T) {
	table := Table{
		Rules: []Rule{
			{Keyword: "trivia", Label: "Trivia Night"},
			{Keyword: "yoga", Label: "Wellness"},
			{Keyword: "beer", Label: "Beer Event"},
		},
		Fallback: "Brewery Event",
		Defaults: []string{"calgary", "brewery"},
	}

	tests := []struct {
		name        string
		title       string
		description string
		wantPrimary string
		wantAll     []string
	}{
		{
			name:        "single keyword",
			title:       "Tuesday Trivia",
			wantPrimary: "Trivia Night",
			wantAll:     []string{"calgary", "brewery", "Trivia Night"},
		},
		{
			name:        "table order decides ties",
			title:       "Beer & Yoga",
			description: "Trivia after class",
			wantPrimary: "Trivia Night",
			wantAll:     []string{"calgary", "brewery", "Trivia Night", "Wellness", "Beer Event"},
		},
		{
			name:        "matches description",
			title:       "Sunday Session",
			description: "Gentle YOGA on the patio",
			wantPrimary: "Wellness",
			wantAll:     []string{"calgary", "brewery", "Wellness"},
		},
		{
			name:        "fallback when nothing matches",
			title:       "Anniversary Party",
			wantPrimary: "Brewery Event",
			wantAll:     []string{"calgary", "brewery", "Brewery Event"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Categorize(tt.title, tt.description)
			assert.Equal(t, tt.wantPrimary, got.Primary)
			assert.Equal(t, tt.wantAll, got.All)
		})
	}
}

func TestTable_CategorizeWithoutFallback(t *testing.T) {
	got := Table{}.Categorize("Something Unusual", "")
	assert.Equal(t, Other, got.Primary)
	assert.Equal(t, []string{Other}, got.All)
}

func TestTable_CategorizeDeterministic(t *testing.T) {
	table := DefaultTable()
	first := table.Categorize("Summer Jazz Festival", "Live music in the park")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, table.Categorize("Summer Jazz Festival", "Live music in the park"))
	}
	assert.Equal(t, "Music", first.Primary)
	assert.Contains(t, first.All, "Festival")
	assert.Contains(t, first.All, "Outdoor")
}
